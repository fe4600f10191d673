package archive

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"cms-go/internal/cms"
)

// ErrLocked is returned when reading from a SealedArchive that has not been unlocked.
var ErrLocked = errors.New("archive is locked: unlock with the encryption passphrase to read history")

// SealedArchive encrypts snapshot content before handing it to the wrapped archive.
// Recording needs only the public key; reading requires Unlock.
type SealedArchive struct {
	cms.Archive
	enc cms.Encryptor

	mu  sync.RWMutex
	dec cms.DecryptionContext
}

// NewSealedArchive wraps inner so that every snapshot is stored encrypted by enc.
func NewSealedArchive(inner cms.Archive, enc cms.Encryptor) *SealedArchive {
	return &SealedArchive{Archive: inner, enc: enc}
}

// Unlock decrypts the private key for the rest of the session.
func (s *SealedArchive) Unlock(passphrase string) error {
	dec, err := s.enc.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking archive: %w", err)
	}
	s.mu.Lock()
	s.dec = dec
	s.mu.Unlock()
	return nil
}

// RecordVersion encrypts previous and stores the ciphertext.
func (s *SealedArchive) RecordVersion(document string, previous []byte) (*cms.Snapshot, error) {
	var sealed bytes.Buffer
	if err := s.enc.Encrypt(bytes.NewReader(previous), &sealed); err != nil {
		return nil, fmt.Errorf("sealing snapshot of %s: %w", document, err)
	}
	return s.Archive.RecordVersion(document, sealed.Bytes())
}

// ReadVersion fetches and decrypts one snapshot.
func (s *SealedArchive) ReadVersion(document string, snapshotID string) ([]byte, error) {
	s.mu.RLock()
	dec := s.dec
	s.mu.RUnlock()
	if dec == nil {
		return nil, ErrLocked
	}

	sealed, err := s.Archive.ReadVersion(document, snapshotID)
	if err != nil {
		return nil, err
	}

	var plain bytes.Buffer
	if err := dec.Decrypt(bytes.NewReader(sealed), &plain); err != nil {
		return nil, fmt.Errorf("opening snapshot %s of %s: %w", snapshotID, document, err)
	}
	return plain.Bytes(), nil
}

// ValidateSetup checks the wrapped archive and that the key pair exists.
func (s *SealedArchive) ValidateSetup() error {
	if !s.enc.IsConfigured() {
		return fmt.Errorf("encryption keys are not configured")
	}
	return s.Archive.ValidateSetup()
}

// Compile-time check that SealedArchive implements cms.Archive interface
var _ cms.Archive = (*SealedArchive)(nil)
