package vault

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const saltLen = 16

// FileVault seals the token pair into a single file with XChaCha20-Poly1305.
// The key is derived from a device passphrase with argon2id over a per-vault
// random salt; salt and nonce travel in the file header, so nothing secret
// lives outside the passphrase. Save writes a temp file and renames it over
// the old one, which on POSIX replaces the previous credential atomically.
type FileVault struct {
	path       string
	passphrase []byte
}

var _ Vault = (*FileVault)(nil)

// NewFileVault creates a vault at path. The passphrase is whatever device
// secret the host application can supply (OS keychain entry, machine key).
func NewFileVault(path, passphrase string) *FileVault {
	return &FileVault{path: path, passphrase: []byte(passphrase)}
}

func (v *FileVault) key(salt []byte) []byte {
	return argon2.IDKey(v.passphrase, salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
}

// Save seals and atomically replaces the stored credential.
func (v *FileVault) Save(ctx context.Context, pair TokenPair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	plain, err := json.Marshal(pair)
	if err != nil {
		return err
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(v.key(salt))
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}

	// File layout: salt | nonce | ciphertext.
	blob := append(append(salt, nonce...), aead.Seal(nil, nonce, plain, nil)...)

	if err := os.MkdirAll(filepath.Dir(v.path), 0o700); err != nil {
		return err
	}
	tmp := v.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, v.path)
}

// Load opens and unseals the stored credential. Every failure mode — file
// missing, truncated, tampered with, wrong passphrase, partial pair — is
// reported as ErrNotFound: credential loss degrades to "log in again".
func (v *FileVault) Load(ctx context.Context) (TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return TokenPair{}, err
	}
	blob, err := os.ReadFile(v.path)
	if err != nil {
		return TokenPair{}, ErrNotFound
	}

	aeadNonce := chacha20poly1305.NonceSizeX
	if len(blob) < saltLen+aeadNonce {
		return TokenPair{}, ErrNotFound
	}
	salt, nonce, box := blob[:saltLen], blob[saltLen:saltLen+aeadNonce], blob[saltLen+aeadNonce:]

	aead, err := chacha20poly1305.NewX(v.key(salt))
	if err != nil {
		return TokenPair{}, ErrNotFound
	}
	plain, err := aead.Open(nil, nonce, box, nil)
	if err != nil {
		return TokenPair{}, ErrNotFound
	}

	var pair TokenPair
	if err := json.Unmarshal(plain, &pair); err != nil || !pair.complete() {
		return TokenPair{}, ErrNotFound
	}
	return pair, nil
}

// Clear removes the stored credential. Clearing an empty vault is a no-op.
func (v *FileVault) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(v.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// HasSaved reports whether a complete credential can be loaded.
func (v *FileVault) HasSaved(ctx context.Context) bool {
	_, err := v.Load(ctx)
	return err == nil
}
