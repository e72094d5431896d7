package vault

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

// DeriveKey derives a key from password under a freshly generated salt.
func DeriveKey(password []byte) ([]byte, [SaltLen]byte, error) {
	var salt [SaltLen]byte
	b, err := randBytes(SaltLen)
	if err != nil {
		return nil, salt, errors.Wrap(err, "generate salt")
	}
	copy(salt[:], b)

	key, err := DeriveKeyWithSalt(password, salt)
	if err != nil {
		return nil, salt, err
	}
	return key, salt, nil
}

// DeriveKeyWithSalt runs Argon2id over password and salt. The result is
// deterministic for fixed inputs.
func DeriveKeyWithSalt(password []byte, salt [SaltLen]byte) ([]byte, error) {
	key := argon2.IDKey(password, salt[:], argonTime, argonMemory, argonThreads, KeyLen)
	if len(key) != KeyLen {
		zero(key)
		return nil, ErrKDF
	}
	return key, nil
}

// CreateVerifier computes the password verifier stored in the header.
func CreateVerifier(key []byte) [VerifierLen]byte {
	var out [VerifierLen]byte
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(verifierContext))
	copy(out[:], mac.Sum(nil))
	return out
}

// VerifyPassword reports whether password matches the verifier computed
// at vault creation.
func VerifyPassword(password []byte, salt [SaltLen]byte, expected [VerifierLen]byte) bool {
	key, err := unlockKey(password, salt, expected)
	if err != nil {
		return false
	}
	zero(key)
	return true
}

// unlockKey is VerifyPassword that hands back the derived key on success.
func unlockKey(password []byte, salt [SaltLen]byte, expected [VerifierLen]byte) ([]byte, error) {
	key, err := DeriveKeyWithSalt(password, salt)
	if err != nil {
		return nil, err
	}
	got := CreateVerifier(key)
	if subtle.ConstantTimeCompare(got[:], expected[:]) != 1 {
		zero(key)
		return nil, ErrInvalidPassword
	}
	return key, nil
}
