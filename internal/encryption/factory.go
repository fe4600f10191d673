package encryption

import (
	"fmt"

	"cms-go/internal/cms"
	"cms-go/internal/config"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// It returns nil without error when snapshots are stored in the clear.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (cms.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
