package testutil

import (
	"testing"

	"cms-go/internal/archive"
	"cms-go/internal/cms"
)

// NewTestRepository creates a Repository over a temp directory, backed by a memory
// archive driven by clock. A nil clock selects FixedClock.
func NewTestRepository(t *testing.T, clock cms.Clock) (*cms.Repository, *archive.MemoryArchive) {
	t.Helper()
	if clock == nil {
		clock = FixedClock()
	}
	arch := archive.NewMemoryArchive(clock)
	repo, err := cms.NewRepository(t.TempDir(), arch, cms.NewNopLogger())
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	return repo, arch
}
