package auth

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
)

// SessionFileName is the file holding the sealed session record.
const SessionFileName = "session"

const nonceSize = 24

// ErrCorruptStore is returned when the session file cannot be opened with
// the configured key.
var ErrCorruptStore = errors.New("session store is corrupt or sealed with another key")

// Record is the persisted part of an auth session.
type Record struct {
	Token   string    `json:"token"`
	Email   string    `json:"email,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// Store persists the session record across restarts.
type Store interface {
	// Load returns nil, nil when nothing is stored.
	Load() (*Record, error)
	Save(rec *Record) error
	Clear() error
}

// FileStore keeps the record in one file sealed with NaCl secretbox.
type FileStore struct {
	path string
	key  [32]byte
}

// NewFileStore stores the record under dir.
func NewFileStore(dir string, key [32]byte) *FileStore {
	return &FileStore{path: filepath.Join(dir, SessionFileName), key: key}
}

// Path returns the session file path.
func (s *FileStore) Path() string { return s.path }

// Load implements Store.
func (s *FileStore) Load() (*Record, error) {
	sealed, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrCorruptStore
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrCorruptStore
	}

	var rec Record
	if err := json.Unmarshal(plain, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	return &rec, nil
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(rec *Record) error {
	plain, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &s.key)

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, SessionFileName+".*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
