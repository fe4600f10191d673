package credentials

import (
	"fmt"

	"cms-go/internal/cms"
	"cms-go/internal/config"
)

// NewStoreFromConfig creates a CredentialStore based on the credentials config type.
func NewStoreFromConfig(cfg config.CredentialsConfig, logger cms.Logger, clock cms.Clock) (cms.CredentialStore, error) {
	switch cfg.Type {
	case "yaml":
		return NewYAMLStore(cfg.Path, cfg.BcryptCost, logger)
	case "sqlite":
		return NewSQLiteStore(cfg.DataDir, cfg.BcryptCost, logger, clock)
	case "memory":
		return NewMemoryStore(cfg.BcryptCost, logger)
	default:
		return nil, fmt.Errorf("unknown credentials type: %q", cfg.Type)
	}
}
