package vault

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	key := bytes.Repeat([]byte{1}, KeyLen)
	nonce := bytes.Repeat([]byte{2}, NonceLen)
	ad := []byte("header")
	plaintext := []byte("the entries")

	ct, err := Encrypt(key, nonce, plaintext, ad)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if len(ct) != len(plaintext)+16 {
		t.Errorf("ciphertext length = %d; want %d", len(ct), len(plaintext)+16)
	}

	pt, err := Decrypt(key, nonce, ct, ad)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Errorf("Decrypt = %q; want %q", pt, plaintext)
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	key := bytes.Repeat([]byte{1}, KeyLen)
	nonce := bytes.Repeat([]byte{2}, NonceLen)
	ct, _ := Encrypt(key, nonce, []byte("secret"), nil)

	wrongKey := bytes.Repeat([]byte{3}, KeyLen)
	if _, err := Decrypt(wrongKey, nonce, ct, nil); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("wrong key: error = %v; want ErrAuthFailed", err)
	}

	for i := range ct {
		flipped := append([]byte(nil), ct...)
		flipped[i] ^= 0x01
		if pt, err := Decrypt(key, nonce, flipped, nil); !errors.Is(err, ErrAuthFailed) || pt != nil {
			t.Errorf("bit flip at %d: got (%q, %v); want ErrAuthFailed", i, pt, err)
		}
	}

	if _, err := Decrypt(key, nonce, ct, []byte("other header")); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("wrong ad: error = %v; want ErrAuthFailed", err)
	}
	if _, err := Decrypt(key, nonce, ct[:len(ct)-1], nil); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("truncated: error = %v; want ErrAuthFailed", err)
	}
}

func TestEncryptBadParameters(t *testing.T) {
	if _, err := Encrypt(make([]byte, 16), make([]byte, NonceLen), nil, nil); !errors.Is(err, ErrEncrypt) {
		t.Errorf("short key: error = %v; want ErrEncrypt", err)
	}
	if _, err := Encrypt(make([]byte, KeyLen), make([]byte, 24), nil, nil); !errors.Is(err, ErrEncrypt) {
		t.Errorf("long nonce: error = %v; want ErrEncrypt", err)
	}
	if _, err := Decrypt(make([]byte, KeyLen), make([]byte, 8), nil, nil); !errors.Is(err, ErrEncrypt) {
		t.Errorf("short nonce: error = %v; want ErrEncrypt", err)
	}
}

func TestAtomicWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	path := filepath.Join(dir, "vault.bin")

	if err := atomicWriteFile(path, []byte("one"), 0600); err != nil {
		t.Fatalf("atomicWriteFile failed: %v", err)
	}
	if err := atomicWriteFile(path, []byte("two"), 0600); err != nil {
		t.Fatalf("atomicWriteFile failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "two" {
		t.Errorf("content = %q; want %q", got, "two")
	}

	files, _ := os.ReadDir(dir)
	if len(files) != 1 {
		t.Errorf("directory has %d files; want only the vault", len(files))
	}
}
