package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		InstanceID: "instance-abc",
		BaseDir:    "/home/user/.local/share/cms",
		LogDir:     "/home/user/.local/share/cms/log",
		LogLevel:   "debug",
		Documents:  DocumentsConfig{Dir: "/srv/cms/data"},
		History: HistoryConfig{
			Type:        "s3",
			S3Bucket:    "cms-history",
			S3Prefix:    "prod",
			S3Region:    "eu-north-1",
			S3Endpoint:  "localhost:9000",
			S3PathStyle: true,
		},
		Credentials: CredentialsConfig{Type: "sqlite", DataDir: "/srv/cms/db", BcryptCost: 4},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  "/srv/cms/keys/cms.pub",
			PrivateKeyPath: "/srv/cms/keys/cms.key",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.InstanceID != original.InstanceID {
		t.Errorf("InstanceID = %q, want %q", got.InstanceID, original.InstanceID)
	}
	if got.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", got.LogLevel, "debug")
	}
	if got.Documents.Dir != "/srv/cms/data" {
		t.Errorf("Documents.Dir = %q, want %q", got.Documents.Dir, "/srv/cms/data")
	}
	if got.History != original.History {
		t.Errorf("History = %+v, want %+v", got.History, original.History)
	}
	if got.Credentials != original.Credentials {
		t.Errorf("Credentials = %+v, want %+v", got.Credentials, original.Credentials)
	}
	if got.Encryption != original.Encryption {
		t.Errorf("Encryption = %+v, want %+v", got.Encryption, original.Encryption)
	}
}

func TestManager_Read_InvalidTOML(t *testing.T) {
	m := &Manager{}
	if _, err := m.Read(strings.NewReader("instance_id = ")); err == nil {
		t.Fatal("Read() expected error for malformed TOML")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("instance-1", "/data/cms")

	checks := []struct {
		field string
		got   string
		want  string
	}{
		{"InstanceID", cfg.InstanceID, "instance-1"},
		{"BaseDir", cfg.BaseDir, "/data/cms"},
		{"LogDir", cfg.LogDir, "/data/cms/log"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"Documents.Dir", cfg.Documents.Dir, "/data/cms/data"},
		{"History.Type", cfg.History.Type, "filesystem"},
		{"History.Dir", cfg.History.Dir, "/data/cms/history"},
		{"Credentials.Type", cfg.Credentials.Type, "yaml"},
		{"Credentials.Path", cfg.Credentials.Path, "/data/cms/users.yml"},
		{"Encryption.Type", cfg.Encryption.Type, "none"},
		{"Encryption.PublicKeyPath", cfg.Encryption.PublicKeyPath, "/data/cms/keys/cms.pub"},
		{"Encryption.PrivateKeyPath", cfg.Encryption.PrivateKeyPath, "/data/cms/keys/cms.key"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "cms.toml")
		cfg := NewConfig("i1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "cms.toml")
		cfg := NewConfig("i1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "cms.toml")
		cfg := NewConfig("read-test", dir)
		cfg.Credentials = CredentialsConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.InstanceID != "read-test" {
			t.Errorf("InstanceID = %q, want %q", got.InstanceID, "read-test")
		}
		if got.Credentials.Type != "memory" {
			t.Errorf("Credentials.Type = %q, want %q", got.Credentials.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/cms.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
