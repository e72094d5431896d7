package vault

import (
	"crypto/rand"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

func newNonce() ([NonceLen]byte, error) {
	var nonce [NonceLen]byte
	b, err := randBytes(NonceLen)
	if err != nil {
		return nonce, errors.Wrap(err, "generate nonce")
	}
	copy(nonce[:], b)
	return nonce, nil
}

// Encrypt seals plaintext with ChaCha20-Poly1305. The tag is appended to
// the returned ciphertext.
func Encrypt(key, nonce, plaintext, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.Wrap(ErrEncrypt, err.Error())
	}
	if len(nonce) != aead.NonceSize() {
		return nil, errors.Wrapf(ErrEncrypt, "nonce length %d", len(nonce))
	}
	return aead.Seal(nil, nonce, plaintext, ad), nil
}

// Decrypt opens a ciphertext produced by Encrypt. A wrong key, a modified
// ciphertext or modified associated data all yield ErrAuthFailed.
func Decrypt(key, nonce, ciphertext, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.Wrap(ErrEncrypt, err.Error())
	}
	if len(nonce) != aead.NonceSize() {
		return nil, errors.Wrapf(ErrEncrypt, "nonce length %d", len(nonce))
	}
	pt, err := aead.Open(nil, nonce, ciphertext, ad)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return pt, nil
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrap(err, "create vault directory")
	}

	tmpPath := filepath.Join(dir, "."+filepath.Base(path)+"-"+uuid.NewString()+".tmp")
	tmpFile, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return errors.Wrap(err, "write temp file")
	}
	if err := tmpFile.Sync(); err != nil {
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmpFile.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(err, "replace vault file")
	}

	_ = syncDir(dir)
	_ = os.Chmod(path, perm)
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
