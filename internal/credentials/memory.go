package credentials

import (
	"sync"

	"cms-go/internal/cms"
)

// MemoryStore keeps credentials in process memory. Intended for testing.
type MemoryStore struct {
	mu        sync.RWMutex
	verifiers map[string]string
	hasher    hasher
	logger    cms.Logger
}

var _ cms.CredentialStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore hashing with bcrypt at cost.
func NewMemoryStore(cost int, logger cms.Logger) (*MemoryStore, error) {
	h, err := newHasher(cost)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = cms.NewNopLogger()
	}
	return &MemoryStore{verifiers: make(map[string]string), hasher: h, logger: logger}, nil
}

func (s *MemoryStore) Verify(username, password string) (bool, error) {
	s.mu.RLock()
	verifier, ok := s.verifiers[username]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return matches(verifier, password)
}

func (s *MemoryStore) Register(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, taken := s.verifiers[username]
	if err := cms.ValidateRegistration(username, password, taken); err != nil {
		return err
	}
	verifier, err := s.hasher.hash(password)
	if err != nil {
		return err
	}
	s.verifiers[username] = verifier
	s.logger.Info("user registered", "username", username, "store", "memory")
	return nil
}

func (s *MemoryStore) Close() error { return nil }
