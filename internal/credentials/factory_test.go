package credentials

import (
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"cms-go/internal/config"
)

func TestNewStoreFromConfig(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		cfg     config.CredentialsConfig
		wantErr bool
	}{
		{"yaml", config.CredentialsConfig{Type: "yaml", Path: filepath.Join(dir, "users.yml"), BcryptCost: bcrypt.MinCost}, false},
		{"sqlite", config.CredentialsConfig{Type: "sqlite", DataDir: filepath.Join(dir, "db"), BcryptCost: bcrypt.MinCost}, false},
		{"memory", config.CredentialsConfig{Type: "memory"}, false},
		{"yaml without path", config.CredentialsConfig{Type: "yaml"}, true},
		{"bad cost", config.CredentialsConfig{Type: "memory", BcryptCost: 99}, true},
		{"unknown", config.CredentialsConfig{Type: "ldap"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStoreFromConfig(tt.cfg, nil, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStoreFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				s.Close()
			}
		})
	}
}
