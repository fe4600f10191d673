package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bobg/flock"
	"gopkg.in/yaml.v3"

	"cms-go/internal/cms"
)

// YAMLStore keeps credentials in a YAML mapping of username to bcrypt verifier.
//
// Every registration is a read-modify-write of the whole file. It runs under an
// advisory lock on a sidecar "<path>.lock" file, which serializes writers across
// processes, and the new file replaces the old one atomically. The lock cannot live
// on the credentials file itself because the rename swaps that inode out. Writers
// within one process also queue on mu before taking the file lock.
type YAMLStore struct {
	path   string
	hasher hasher
	logger cms.Logger

	mu     sync.Mutex
	locker flock.Locker
}

var _ cms.CredentialStore = (*YAMLStore)(nil)

// NewYAMLStore creates a store backed by the file at path. The file is created on
// the first registration.
func NewYAMLStore(path string, cost int, logger cms.Logger) (*YAMLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("path required for yaml credential store")
	}
	h, err := newHasher(cost)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating credential directory: %w", err)
	}
	if logger == nil {
		logger = cms.NewNopLogger()
	}
	return &YAMLStore{path: path, hasher: h, logger: logger}, nil
}

func (s *YAMLStore) lockPath() string {
	return s.path + ".lock"
}

func (s *YAMLStore) lock() (func(), error) {
	s.mu.Lock()
	f, err := os.OpenFile(s.lockPath(), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("creating lock file: %w", err)
	}
	f.Close()

	if err := s.locker.Lock(s.lockPath()); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("locking %s: %w", s.path, err)
	}
	return func() {
		if err := s.locker.Unlock(s.lockPath()); err != nil {
			s.logger.Warn("failed to unlock credential file", "path", s.path, "error", err)
		}
		s.mu.Unlock()
	}, nil
}

// load reads the verifier map. A missing file is an empty map.
func (s *YAMLStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, cms.StorageError(fmt.Errorf("reading %s: %w", s.path, err))
	}

	verifiers := map[string]string{}
	if err := yaml.Unmarshal(data, &verifiers); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	// A null document ("~", "---") decodes to a nil map.
	if verifiers == nil {
		verifiers = map[string]string{}
	}
	return verifiers, nil
}

// Verify reads the file without taking the lock; writers never expose a partial file.
func (s *YAMLStore) Verify(username, password string) (bool, error) {
	verifiers, err := s.load()
	if err != nil {
		return false, err
	}
	verifier, ok := verifiers[username]
	if !ok {
		return false, nil
	}
	return matches(verifier, password)
}

func (s *YAMLStore) Register(username, password string) error {
	unlock, err := s.lock()
	if err != nil {
		return cms.StorageError(err)
	}
	defer unlock()

	verifiers, err := s.load()
	if err != nil {
		return err
	}
	_, taken := verifiers[username]
	if err := cms.ValidateRegistration(username, password, taken); err != nil {
		return err
	}

	verifier, err := s.hasher.hash(password)
	if err != nil {
		return err
	}
	verifiers[username] = verifier

	data, err := yaml.Marshal(verifiers)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := cms.WriteFileAtomic(s.path, data, 0600); err != nil {
		return cms.StorageError(fmt.Errorf("writing %s: %w", s.path, err))
	}

	s.logger.Info("user registered", "username", username, "store", "yaml")
	return nil
}

func (s *YAMLStore) Close() error { return nil }
