package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cms-go/internal/cms"
)

// FileSystemArchive is a filesystem-based implementation of the cms.Archive interface.
// It keeps one directory per document:
//
//	<root>/
//	  <document name>/
//	    <base>_<timestamp><ext>    (one file per snapshot)
//
// Snapshots are placed with a hard link. On filesystems without hard links they are
// written in place with an exclusive create instead, which a crash can leave partial.
type FileSystemArchive struct {
	root  string
	clock cms.Clock
}

// linkFile is os.Link; replaced in tests.
var linkFile = os.Link

// NewFileSystemArchive creates a new filesystem archive rooted at the given path.
func NewFileSystemArchive(root string, clock cms.Clock) (*FileSystemArchive, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, cms.StorageError(fmt.Errorf("failed to create history directory: %w", err))
	}
	if clock == nil {
		clock = cms.RealClock{}
	}
	return &FileSystemArchive{root: root, clock: clock}, nil
}

func (a *FileSystemArchive) bucketPath(document string) (string, error) {
	if err := checkSegment(document); err != nil {
		return "", err
	}
	return filepath.Join(a.root, document), nil
}

// CreateBucket creates the history directory for document.
func (a *FileSystemArchive) CreateBucket(document string) error {
	bucket, err := a.bucketPath(document)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(bucket, 0755); err != nil {
		return cms.StorageError(fmt.Errorf("creating bucket %s: %w", document, err))
	}
	return nil
}

// RecordVersion writes previous as a new snapshot file. The file is fully written
// under a temporary name and then hard-linked into place, so an existing snapshot
// with the same id is never replaced.
func (a *FileSystemArchive) RecordVersion(document string, previous []byte) (*cms.Snapshot, error) {
	bucket, err := a.bucketPath(document)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(bucket)
	if err != nil || !info.IsDir() {
		return nil, cms.StorageError(fmt.Errorf("history bucket for %s does not exist", document))
	}

	tmp, err := os.CreateTemp(bucket, ".tmp-*")
	if err != nil {
		return nil, cms.StorageError(fmt.Errorf("failed to create temp file: %w", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(previous); err != nil {
		tmp.Close()
		return nil, cms.StorageError(fmt.Errorf("failed to write snapshot: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return nil, cms.StorageError(fmt.Errorf("failed to close temp file: %w", err))
	}

	now := a.clock.Now()
	for seq := 0; ; seq++ {
		id := cms.SnapshotID(document, now, seq)
		dst := filepath.Join(bucket, id)
		err := linkFile(tmpPath, dst)
		if err != nil && !errors.Is(err, fs.ErrExist) {
			err = writeExclusive(dst, previous)
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, cms.StorageError(fmt.Errorf("storing snapshot %s: %w", id, err))
		}
		snap, _ := cms.NewSnapshot(document, id)
		return snap, nil
	}
}

// ListVersions returns the snapshots in the document's bucket, oldest first.
func (a *FileSystemArchive) ListVersions(document string) ([]*cms.Snapshot, error) {
	bucket, err := a.bucketPath(document)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(bucket)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, cms.StorageError(fmt.Errorf("reading bucket %s: %w", document, err))
	}

	var snaps []*cms.Snapshot
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if snap, ok := cms.NewSnapshot(document, entry.Name()); ok {
			snaps = append(snaps, snap)
		}
	}
	cms.SortSnapshots(snaps)
	return snaps, nil
}

// ReadVersion returns the content of one snapshot.
func (a *FileSystemArchive) ReadVersion(document string, snapshotID string) ([]byte, error) {
	bucket, err := a.bucketPath(document)
	if err != nil {
		return nil, err
	}
	if err := checkSegment(snapshotID); err != nil {
		return nil, fmt.Errorf("%w: snapshot %s of %s", cms.ErrNotFound, snapshotID, document)
	}

	data, err := os.ReadFile(filepath.Join(bucket, snapshotID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: snapshot %s of %s", cms.ErrNotFound, snapshotID, document)
		}
		return nil, cms.StorageError(fmt.Errorf("reading snapshot %s: %w", snapshotID, err))
	}
	return data, nil
}

// DeleteAll removes the document's bucket. A missing bucket is not an error.
func (a *FileSystemArchive) DeleteAll(document string) error {
	bucket, err := a.bucketPath(document)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(bucket); err != nil {
		return cms.StorageError(fmt.Errorf("removing bucket %s: %w", document, err))
	}
	return nil
}

// ValidateSetup verifies that the history root exists and is a directory.
func (a *FileSystemArchive) ValidateSetup() error {
	info, err := os.Stat(a.root)
	if err != nil {
		return fmt.Errorf("history root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("history root is not a directory: %s", a.root)
	}
	return nil
}

// checkSegment rejects names that would escape their parent directory.
func checkSegment(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", cms.ErrInvalidName, name)
	}
	return nil
}

// Compile-time check that FileSystemArchive implements cms.Archive interface
var _ cms.Archive = (*FileSystemArchive)(nil)

// writeExclusive creates path with data, failing with fs.ErrExist if it is taken.
func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
