package archive

import (
	"bytes"
	"fmt"
	"sync"

	"cms-go/internal/cms"
)

// MemoryArchive is an in-memory implementation of the cms.Archive interface.
// It is useful for testing. This implementation is safe for concurrent use.
type MemoryArchive struct {
	clock   cms.Clock
	buckets map[string]map[string][]byte // document -> snapshot id -> content
	mu      sync.RWMutex
}

// NewMemoryArchive creates a new empty in-memory archive.
func NewMemoryArchive(clock cms.Clock) *MemoryArchive {
	if clock == nil {
		clock = cms.RealClock{}
	}
	return &MemoryArchive{
		clock:   clock,
		buckets: make(map[string]map[string][]byte),
	}
}

func (m *MemoryArchive) CreateBucket(document string) error {
	if err := checkSegment(document); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buckets[document]; !ok {
		m.buckets[document] = make(map[string][]byte)
	}
	return nil
}

func (m *MemoryArchive) RecordVersion(document string, previous []byte) (*cms.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.buckets[document]
	if !ok {
		return nil, cms.StorageError(fmt.Errorf("history bucket for %s does not exist", document))
	}

	now := m.clock.Now()
	for seq := 0; ; seq++ {
		id := cms.SnapshotID(document, now, seq)
		if _, taken := bucket[id]; taken {
			continue
		}
		bucket[id] = bytes.Clone(previous)
		snap, _ := cms.NewSnapshot(document, id)
		return snap, nil
	}
}

func (m *MemoryArchive) ListVersions(document string) ([]*cms.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var snaps []*cms.Snapshot
	for id := range m.buckets[document] {
		if snap, ok := cms.NewSnapshot(document, id); ok {
			snaps = append(snaps, snap)
		}
	}
	cms.SortSnapshots(snaps)
	return snaps, nil
}

func (m *MemoryArchive) ReadVersion(document string, snapshotID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.buckets[document][snapshotID]
	if !ok {
		return nil, fmt.Errorf("%w: snapshot %s of %s", cms.ErrNotFound, snapshotID, document)
	}
	return bytes.Clone(data), nil
}

func (m *MemoryArchive) DeleteAll(document string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets, document)
	return nil
}

// HasBucket reports whether a bucket exists for document.
func (m *MemoryArchive) HasBucket(document string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.buckets[document]
	return ok
}

// ValidateSetup always succeeds for the in-memory archive.
func (m *MemoryArchive) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryArchive implements cms.Archive interface
var _ cms.Archive = (*MemoryArchive)(nil)
