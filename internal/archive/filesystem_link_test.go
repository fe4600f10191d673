package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func TestFileSystemArchive_RecordVersion_WithoutHardLinks(t *testing.T) {
	orig := linkFile
	linkFile = func(oldname, newname string) error {
		return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: errors.ErrUnsupported}
	}
	t.Cleanup(func() { linkFile = orig })

	root := t.TempDir()
	a, err := NewFileSystemArchive(root, fixedClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("NewFileSystemArchive() error = %v", err)
	}
	if err := a.CreateBucket("notes.md"); err != nil {
		t.Fatalf("CreateBucket() error = %v", err)
	}

	first, err := a.RecordVersion("notes.md", []byte("v1"))
	if err != nil {
		t.Fatalf("RecordVersion() error = %v", err)
	}
	second, err := a.RecordVersion("notes.md", []byte("v2"))
	if err != nil {
		t.Fatalf("RecordVersion() error = %v", err)
	}

	if first.ID != "notes_20240115T103000.000000000Z.md" {
		t.Errorf("first ID = %q", first.ID)
	}
	if second.ID != "notes_20240115T103000.000000000Z-1.md" {
		t.Errorf("second ID = %q, want the -1 suffix", second.ID)
	}
	for id, want := range map[string]string{first.ID: "v1", second.ID: "v2"} {
		got, err := os.ReadFile(filepath.Join(root, "notes.md", id))
		if err != nil || string(got) != want {
			t.Errorf("snapshot %s = %q, %v, want %q", id, got, err, want)
		}
	}

	entries, err := os.ReadDir(filepath.Join(root, "notes.md"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("bucket holds %d entries, want 2 (temp files removed)", len(entries))
	}
}
