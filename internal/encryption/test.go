package encryption

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"cms-go/internal/cms"
)

// testMagic marks content sealed by TestEncryptor.
var testMagic = []byte("CMSSEAL\n")

// TestEncryptor is a deterministic stand-in for age. It frames content with a magic
// line and checks the passphrase it was set up with, so tests can tell sealed
// snapshots from plain ones without paying for scrypt.
type TestEncryptor struct {
	passphrase string
	configured bool
}

var _ cms.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a TestEncryptor that accepts any passphrase until Setup.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{configured: true}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.passphrase = passphrase
	e.configured = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testMagic); err != nil {
		return fmt.Errorf("writing magic: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (cms.DecryptionContext, error) {
	if e.passphrase != "" && passphrase != e.passphrase {
		return nil, fmt.Errorf("incorrect passphrase")
	}
	return testDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return e.configured
}

type testDecryptionContext struct{}

func (testDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	magic := make([]byte, len(testMagic))
	if _, err := io.ReadFull(br, magic); err != nil || !bytes.Equal(magic, testMagic) {
		return fmt.Errorf("content was not sealed by the test encryptor")
	}
	if _, err := br.WriteTo(w); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
