package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cms-go/internal/archive"
	"cms-go/internal/cms"
	"cms-go/internal/config"
	"cms-go/internal/credentials"
	"cms-go/internal/encryption"
)

var (
	// ErrUnauthorized is returned when a username/password pair does not verify.
	ErrUnauthorized = errors.New("invalid username or password")

	// ErrSignInRequired is returned by mutating operations before SignIn succeeds.
	ErrSignInRequired = errors.New("you must be signed in to do that")

	// ErrEncryptionDisabled is returned by key operations when [encryption] type is "none".
	ErrEncryptionDisabled = errors.New("snapshot encryption is not enabled in the config")
)

// DocumentInfo is one row of the document listing.
type DocumentInfo struct {
	Name     string
	Category cms.Category
}

// CMSApp is the application layer between the CLI and the document repository.
// It constructs every dependency from config, gates mutations behind a signed-in
// user, and logs the outcome of the operation on Close.
type CMSApp struct {
	cfg       *config.Config
	repo      *cms.Repository
	sealed    *archive.SealedArchive // nil unless snapshots are encrypted
	encryptor cms.Encryptor
	users     cms.CredentialStore
	logger    cms.Logger
	clock     cms.Clock
	op        *Operation
	logFile   *os.File
}

// NewCMSApp creates a fully wired CMSApp from the given config. operation names the
// CLI command being run. The caller must call Close when done.
func NewCMSApp(cfg *config.Config, operation string) (*CMSApp, error) {
	return newCMSApp(cfg, operation, cms.RealClock{}, os.Stderr)
}

func newCMSApp(cfg *config.Config, operation string, clock cms.Clock, console io.Writer) (*CMSApp, error) {
	op := NewOperation(operation, clock.Now())

	slogger, logFile, err := newLogger(cfg.LogDir, cfg.LogLevel, op.ID, console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	a := &CMSApp{cfg: cfg, logger: logger, clock: clock, op: op, logFile: logFile}
	if err := a.wire(); err != nil {
		a.closeResources()
		return nil, err
	}
	logger.Debug("operation started", "operation", operation)
	return a, nil
}

func (a *CMSApp) wire() error {
	hist, err := archive.NewArchiveFromConfig(a.cfg.History, a.clock)
	if err != nil {
		return fmt.Errorf("creating history archive: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if enc != nil {
		a.encryptor = enc
		a.sealed = archive.NewSealedArchive(hist, enc)
		hist = a.sealed
	}

	a.repo, err = cms.NewRepository(a.cfg.Documents.Dir, hist, a.logger)
	if err != nil {
		return fmt.Errorf("opening documents directory: %w", err)
	}

	a.users, err = credentials.NewStoreFromConfig(a.cfg.Credentials, a.logger, a.clock)
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}
	return nil
}

// SignUp registers a new user. Validation failures come back as *cms.ValidationError.
func (a *CMSApp) SignUp(username, password string) error {
	return a.op.Record(a.users.Register(username, password))
}

// SignIn verifies the credentials and, on success, authorizes mutating operations
// for the rest of this app's lifetime.
func (a *CMSApp) SignIn(username, password string) error {
	ok, err := a.users.Verify(username, password)
	if err != nil {
		return a.op.Record(fmt.Errorf("verifying credentials: %w", err))
	}
	if !ok {
		a.logger.Warn("sign-in rejected", "username", username)
		return a.op.Record(ErrUnauthorized)
	}
	a.op.User = username
	a.logger.Info("signed in", "username", username)
	return nil
}

func (a *CMSApp) requireUser() error {
	if a.op.User == "" {
		return a.op.Record(ErrSignInRequired)
	}
	return nil
}

// ListDocuments returns every document with its category.
func (a *CMSApp) ListDocuments() ([]DocumentInfo, error) {
	names, err := a.repo.List()
	if err != nil {
		return nil, a.op.Record(err)
	}
	docs := make([]DocumentInfo, len(names))
	for i, name := range names {
		docs[i] = DocumentInfo{Name: name, Category: cms.Classify(name)}
	}
	return docs, nil
}

// ShowDocument returns a document's content and category.
func (a *CMSApp) ShowDocument(name string) (*cms.Document, error) {
	doc, err := a.repo.Read(name)
	return doc, a.op.Record(err)
}

// CreateDocument creates a text or image document.
func (a *CMSApp) CreateDocument(name string, content []byte, overwrite bool) (*cms.Document, error) {
	if err := a.requireUser(); err != nil {
		return nil, err
	}
	doc, err := a.repo.Create(name, content, overwrite)
	return doc, a.op.Record(err)
}

// EditDocument replaces a document's content, archiving what it replaces.
func (a *CMSApp) EditDocument(name string, content []byte) (*cms.Snapshot, error) {
	if err := a.requireUser(); err != nil {
		return nil, err
	}
	snap, err := a.repo.Update(name, content)
	return snap, a.op.Record(err)
}

// DuplicateDocument copies a document under a free name and returns that name.
func (a *CMSApp) DuplicateDocument(name string) (string, error) {
	if err := a.requireUser(); err != nil {
		return "", err
	}
	target, err := a.repo.Duplicate(name)
	return target, a.op.Record(err)
}

// DeleteDocument removes a document and its history.
func (a *CMSApp) DeleteDocument(name string) error {
	if err := a.requireUser(); err != nil {
		return err
	}
	return a.op.Record(a.repo.Delete(name))
}

// UploadFile stores the image at path under its base name.
func (a *CMSApp) UploadFile(path string, overwrite bool) (*cms.Document, error) {
	if err := a.requireUser(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, a.op.Record(fmt.Errorf("opening upload: %w", err))
	}
	defer f.Close()

	doc, err := a.repo.Upload(filepath.Base(path), f, overwrite)
	return doc, a.op.Record(err)
}

// History lists a document's archived versions, oldest first.
func (a *CMSApp) History(name string) ([]*cms.Snapshot, error) {
	snaps, err := a.repo.Versions(name)
	return snaps, a.op.Record(err)
}

// HistoryLocked reports whether reading history needs UnlockHistory first.
func (a *CMSApp) HistoryLocked() bool {
	return a.sealed != nil
}

// UnlockHistory opens encrypted snapshots with the key passphrase.
func (a *CMSApp) UnlockHistory(passphrase string) error {
	if a.sealed == nil {
		return nil
	}
	return a.op.Record(a.sealed.Unlock(passphrase))
}

// ShowVersion returns one archived version of a document.
func (a *CMSApp) ShowVersion(name, snapshotID string) (*cms.Document, error) {
	doc, err := a.repo.ReadVersion(name, snapshotID)
	return doc, a.op.Record(err)
}

// SetupKeys generates the snapshot encryption key pair.
func (a *CMSApp) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return a.op.Record(ErrEncryptionDisabled)
	}
	if err := a.encryptor.Setup(passphrase); err != nil {
		return a.op.Record(fmt.Errorf("setting up keys: %w", err))
	}
	a.logger.Info("encryption keys created", "public_key", a.cfg.Encryption.PublicKeyPath)
	return nil
}

// Validate checks that the configured archive and keys are usable.
func (a *CMSApp) Validate() error {
	if err := a.repo.Archive().ValidateSetup(); err != nil {
		return a.op.Record(fmt.Errorf("history archive: %w", err))
	}
	return nil
}

// Close logs the outcome of the operation and releases all resources.
func (a *CMSApp) Close() error {
	args := []any{"operation", a.op.Name, "status", a.op.Status(), "duration", a.clock.Now().Sub(a.op.StartedAt).Round(time.Millisecond)}
	if a.op.User != "" {
		args = append(args, "user", a.op.User)
	}
	if a.op.Err != nil {
		args = append(args, "error", a.op.Err)
		a.logger.Warn("operation finished", args...)
	} else {
		a.logger.Info("operation finished", args...)
	}
	return a.closeResources()
}

func (a *CMSApp) closeResources() error {
	var firstErr error
	if a.users != nil {
		if err := a.users.Close(); err != nil {
			firstErr = fmt.Errorf("closing credential store: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
