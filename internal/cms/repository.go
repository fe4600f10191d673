package cms

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Repository manages a flat directory of documents and keeps the history of every
// document in an Archive. Mutations of the same document name are serialized.
type Repository struct {
	dir     string
	archive Archive
	logger  Logger
	locks   *keyLock
}

// NewRepository creates a Repository over dir, creating the directory if needed.
func NewRepository(dir string, archive Archive, logger Logger) (*Repository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, StorageError(fmt.Errorf("creating documents directory: %w", err))
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Repository{
		dir:     dir,
		archive: archive,
		logger:  logger,
		locks:   newKeyLock(),
	}, nil
}

// Dir returns the documents directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Archive returns the archive holding the history of every document.
func (r *Repository) Archive() Archive {
	return r.archive
}

// List returns the names of all documents, sorted. Hidden entries (temp files) and
// sub-directories are not documents.
func (r *Repository) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, StorageError(fmt.Errorf("reading documents directory: %w", err))
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Create writes a new text or image document. An existing document is only replaced
// when overwrite is set, in which case its previous content is archived first.
func (r *Repository) Create(name string, content []byte, overwrite bool) (*Document, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	category := Classify(name)
	if !category.Supported() {
		return nil, fmt.Errorf("%w: %s (allowed: %s)", ErrUnsupportedType, name,
			strings.Join(append(append([]string{}, TextExtensions...), ImageExtensions...), ", "))
	}

	doc, err := r.put(name, content, overwrite)
	if err != nil {
		return nil, err
	}
	r.logger.Info("document created", "name", name, "category", category.String(), "size", len(content))
	return doc, nil
}

// Upload stores an image read from src under filename. Only image types are accepted.
func (r *Repository) Upload(filename string, src io.Reader, overwrite bool) (*Document, error) {
	name, err := cleanName(filename)
	if err != nil {
		return nil, err
	}
	if !Classify(name).IsImage() {
		return nil, fmt.Errorf("%w: %s (allowed: %s)", ErrUnsupportedType, name, strings.Join(ImageExtensions, ", "))
	}

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, StorageError(fmt.Errorf("reading upload %s: %w", name, err))
	}

	doc, err := r.put(name, content, overwrite)
	if err != nil {
		return nil, err
	}
	r.logger.Info("document uploaded", "name", name, "size", len(content))
	return doc, nil
}

// put writes content under name, archiving whatever it replaces.
func (r *Repository) put(name string, content []byte, overwrite bool) (*Document, error) {
	unlock := r.locks.Lock(name)
	defer unlock()

	old, err := r.readFile(name)
	exists := err == nil
	switch {
	case exists && !overwrite:
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, err
	}

	if err := r.archive.CreateBucket(name); err != nil {
		return nil, fmt.Errorf("creating history for %s: %w", name, err)
	}
	if exists {
		if _, err := r.archive.RecordVersion(name, old); err != nil {
			return nil, fmt.Errorf("archiving %s: %w", name, err)
		}
	}

	if err := r.writeFile(name, content); err != nil {
		return nil, err
	}
	return &Document{Name: name, Content: content, Category: Classify(name)}, nil
}

// Read returns a document and its category. The category carries the canonical
// subtype; the file on disk keeps its original name.
func (r *Repository) Read(name string) (*Document, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	content, err := r.readFile(name)
	if err != nil {
		return nil, err
	}
	return &Document{Name: name, Content: content, Category: Classify(name)}, nil
}

// Update replaces the content of an existing document. The content being replaced is
// recorded in the archive before the document is written; if archiving fails the
// document is left untouched.
func (r *Repository) Update(name string, content []byte) (*Snapshot, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	unlock := r.locks.Lock(name)
	defer unlock()

	old, err := r.readFile(name)
	if err != nil {
		return nil, err
	}

	snap, err := r.archive.RecordVersion(name, old)
	if err != nil {
		return nil, fmt.Errorf("archiving %s: %w", name, err)
	}

	if err := r.writeFile(name, content); err != nil {
		return nil, err
	}

	r.logger.Info("document updated", "name", name, "snapshot", snap.ID, "size", len(content))
	return snap, nil
}

// Duplicate copies a document under a collision-free name and returns that name.
// The copy starts with an empty history.
func (r *Repository) Duplicate(name string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}

	for {
		names, err := r.List()
		if err != nil {
			return "", err
		}
		target := ResolveUniqueName(name, names)

		unlock := r.locks.Lock(name, target)
		if _, err := r.readFile(target); err == nil {
			// Created concurrently since List; resolve again.
			unlock()
			continue
		} else if !errors.Is(err, ErrNotFound) {
			unlock()
			return "", err
		}

		err = r.copyTo(name, target)
		unlock()
		if err != nil {
			return "", err
		}

		r.logger.Info("document duplicated", "name", name, "copy", target)
		return target, nil
	}
}

// copyTo must be called with both name and target locked.
func (r *Repository) copyTo(name, target string) error {
	content, err := r.readFile(name)
	if err != nil {
		return err
	}
	if err := r.archive.CreateBucket(target); err != nil {
		return fmt.Errorf("creating history for %s: %w", target, err)
	}
	return r.writeFile(target, content)
}

// Delete removes a document and all of its archived versions.
// Deleting a document that does not exist fails with ErrNotFound.
func (r *Repository) Delete(name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}

	unlock := r.locks.Lock(name)
	defer unlock()

	if _, err := r.stat(name); err != nil {
		return err
	}
	if err := os.Remove(r.path(name)); err != nil {
		return StorageError(fmt.Errorf("removing %s: %w", name, err))
	}
	if err := r.archive.DeleteAll(name); err != nil {
		return fmt.Errorf("deleting history of %s: %w", name, err)
	}

	r.logger.Info("document deleted", "name", name)
	return nil
}

// Versions lists the archived snapshots of a document, oldest first.
func (r *Repository) Versions(name string) ([]*Snapshot, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	snaps, err := r.archive.ListVersions(name)
	if err != nil {
		return nil, fmt.Errorf("listing versions of %s: %w", name, err)
	}
	return snaps, nil
}

// ReadVersion returns one archived version of a document. The returned Document is
// named after the snapshot and categorized like the document it belongs to.
func (r *Repository) ReadVersion(name, snapshotID string) (*Document, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	content, err := r.archive.ReadVersion(name, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("reading version %s of %s: %w", snapshotID, name, err)
	}
	return &Document{Name: snapshotID, Content: content, Category: Classify(name)}, nil
}

func (r *Repository) path(name string) string {
	return filepath.Join(r.dir, name)
}

// stat returns ErrNotFound for missing names and for anything that is not a regular file.
func (r *Repository) stat(name string) (fs.FileInfo, error) {
	info, err := os.Stat(r.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, StorageError(fmt.Errorf("stat %s: %w", name, err))
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return info, nil
}

func (r *Repository) readFile(name string) ([]byte, error) {
	if _, err := r.stat(name); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(r.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, StorageError(fmt.Errorf("reading %s: %w", name, err))
	}
	return content, nil
}

// writeFile writes content to the document using atomic write (temp file + rename).
func (r *Repository) writeFile(name string, content []byte) error {
	if err := WriteFileAtomic(r.path(name), content, 0644); err != nil {
		return StorageError(fmt.Errorf("writing %s: %w", name, err))
	}
	return nil
}

// WriteFileAtomic writes data to path through a hidden temp file in the same
// directory, renamed into place once fully written.
func WriteFileAtomic(path string, data []byte, perm fs.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// cleanName trims a document name and rejects anything that is not a plain,
// visible file name.
func cleanName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	switch {
	case name == "":
		return "", fmt.Errorf("%w: a name is required", ErrInvalidName)
	case strings.ContainsAny(name, `/\`), name == ".", name == "..":
		return "", fmt.Errorf("%w: %q must not contain a path", ErrInvalidName, raw)
	case strings.HasPrefix(name, "."):
		return "", fmt.Errorf("%w: %q must not start with a dot", ErrInvalidName, raw)
	}
	return name, nil
}
