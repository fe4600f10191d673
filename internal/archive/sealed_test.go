package archive_test

import (
	"bytes"
	"errors"
	"testing"

	"cms-go/internal/archive"
	"cms-go/internal/encryption"
	"cms-go/internal/testutil"
)

func TestSealedArchive_StoresCiphertext(t *testing.T) {
	inner := archive.NewMemoryArchive(testutil.FixedClock())
	sealed := archive.NewSealedArchive(inner, encryption.NewTestEncryptor())

	if err := sealed.CreateBucket("secret.md"); err != nil {
		t.Fatalf("CreateBucket() error = %v", err)
	}
	snap, err := sealed.RecordVersion("secret.md", []byte("plain"))
	if err != nil {
		t.Fatalf("RecordVersion() error = %v", err)
	}

	raw, err := inner.ReadVersion("secret.md", snap.ID)
	if err != nil {
		t.Fatalf("inner ReadVersion() error = %v", err)
	}
	if bytes.Equal(raw, []byte("plain")) {
		t.Error("inner archive holds plaintext")
	}

	if _, err := sealed.ReadVersion("secret.md", snap.ID); !errors.Is(err, archive.ErrLocked) {
		t.Fatalf("ReadVersion() before Unlock error = %v, want ErrLocked", err)
	}

	if err := sealed.Unlock("any"); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	got, err := sealed.ReadVersion("secret.md", snap.ID)
	if err != nil {
		t.Fatalf("ReadVersion() error = %v", err)
	}
	if string(got) != "plain" {
		t.Errorf("ReadVersion() = %q, want %q", got, "plain")
	}

	// Listing does not need the key.
	snaps, err := sealed.ListVersions("secret.md")
	if err != nil || len(snaps) != 1 {
		t.Errorf("ListVersions() = %d, %v, want 1 snapshot", len(snaps), err)
	}
}

func TestSealedArchive_WrongPassphrase(t *testing.T) {
	enc := encryption.NewTestEncryptor()
	if err := enc.Setup("right"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	sealed := archive.NewSealedArchive(archive.NewMemoryArchive(nil), enc)
	if err := sealed.Unlock("wrong"); err == nil {
		t.Error("Unlock() with wrong passphrase expected error")
	}
}

func TestSealedArchive_UnencryptedSnapshot(t *testing.T) {
	inner := archive.NewMemoryArchive(testutil.FixedClock())
	if err := inner.CreateBucket("a.md"); err != nil {
		t.Fatal(err)
	}
	snap, err := inner.RecordVersion("a.md", []byte("recorded before sealing was enabled"))
	if err != nil {
		t.Fatal(err)
	}

	sealed := archive.NewSealedArchive(inner, encryption.NewTestEncryptor())
	if err := sealed.Unlock(""); err != nil {
		t.Fatal(err)
	}
	if _, err := sealed.ReadVersion("a.md", snap.ID); err == nil {
		t.Error("ReadVersion() of a plaintext snapshot expected error")
	}
}
