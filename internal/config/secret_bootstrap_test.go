package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureSecrets_GeneratesMissingKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := &Config{Auth: AuthConfig{StoreDir: dir}}
	if err := cfg.ensureSecrets(); err != nil {
		t.Fatalf("ensureSecrets() error = %v", err)
	}

	// 32 random bytes hex-encoded -> 64 chars.
	if len(cfg.Security.EncryptionKey) != 64 {
		t.Fatalf("encryption key length = %d, want 64", len(cfg.Security.EncryptionKey))
	}

	key := cfg.Security.EncryptionKeyBytes()
	if key == [32]byte{} {
		t.Fatal("decoded key should not be all zero")
	}

	info, err := os.Stat(filepath.Join(dir, KeyFileName))
	if err != nil {
		t.Fatalf("key file not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("key file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestEnsureSecrets_ReusesPersistedKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := &Config{Auth: AuthConfig{StoreDir: dir}}
	if err := first.ensureSecrets(); err != nil {
		t.Fatalf("ensureSecrets() error = %v", err)
	}

	second := &Config{Auth: AuthConfig{StoreDir: dir}}
	if err := second.ensureSecrets(); err != nil {
		t.Fatalf("ensureSecrets() error = %v", err)
	}
	if first.Security.EncryptionKey != second.Security.EncryptionKey {
		t.Fatal("second boot generated a new key instead of reusing the persisted one")
	}
}

func TestEnsureSecrets_PreservesProvidedKey(t *testing.T) {
	t.Parallel()

	const provided = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	dir := t.TempDir()
	cfg := &Config{Auth: AuthConfig{StoreDir: dir}, Security: SecurityConfig{EncryptionKey: provided}}

	if err := cfg.ensureSecrets(); err != nil {
		t.Fatalf("ensureSecrets() error = %v", err)
	}
	if cfg.Security.EncryptionKey != provided {
		t.Fatalf("encryption key changed unexpectedly: %q", cfg.Security.EncryptionKey)
	}
	if _, err := os.Stat(filepath.Join(dir, KeyFileName)); !os.IsNotExist(err) {
		t.Fatalf("provided key must not be written to disk, stat err = %v", err)
	}
	key := cfg.Security.EncryptionKeyBytes()
	if key[0] != 0x00 || key[1] != 0x11 || key[31] != 0xff {
		t.Fatalf("EncryptionKeyBytes() decoded incorrectly: %x", key)
	}
}
