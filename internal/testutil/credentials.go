package testutil

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"cms-go/internal/credentials"
)

// NewTestCredentialStore creates a memory credential store at the cheapest bcrypt
// cost, seeded with the given username/password pairs.
func NewTestCredentialStore(t *testing.T, users ...string) *credentials.MemoryStore {
	t.Helper()
	if len(users)%2 != 0 {
		t.Fatalf("NewTestCredentialStore: users must be username/password pairs")
	}
	store, err := credentials.NewMemoryStore(bcrypt.MinCost, nil)
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}
	for i := 0; i < len(users); i += 2 {
		if err := store.Register(users[i], users[i+1]); err != nil {
			t.Fatalf("Register(%q) error = %v", users[i], err)
		}
	}
	return store
}
