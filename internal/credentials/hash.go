// Package credentials implements cms.CredentialStore backends. Every backend stores
// bcrypt verifiers only; plaintext passwords are never persisted or logged.
package credentials

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type hasher struct {
	cost int
}

// newHasher returns a hasher for cost. Zero selects bcrypt.DefaultCost.
func newHasher(cost int) (hasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return hasher{}, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return hasher{cost: cost}, nil
}

// hash salts and hashes password. Two calls never return the same verifier.
func (h hasher) hash(password string) (string, error) {
	verifier, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(verifier), nil
}

// matches compares password against verifier in constant time.
func matches(verifier, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(verifier), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("checking password: %w", err)
	}
}
