package vault

import "github.com/pkg/errors"

var (
	ErrInvalidFormat   = errors.New("vault: invalid file format")
	ErrTruncated       = errors.New("vault: truncated file")
	ErrInvalidPassword = errors.New("vault: invalid password")
	ErrAuthFailed      = errors.New("vault: authentication failed")
	ErrCorruptEntries  = errors.New("vault: corrupt entry data")
	ErrKDF             = errors.New("vault: key derivation failed")
	ErrEncrypt         = errors.New("vault: encryption failed")

	ErrTooManyEntries = errors.New("vault: too many entries")
	ErrFieldTooLong   = errors.New("vault: entry field too long")
	ErrInvalidEntry   = errors.New("vault: invalid entry")
	ErrNoEntry        = errors.New("vault: no such entry")
	ErrLocked         = errors.New("vault: locked")
	ErrExists         = errors.New("vault: file already exists")
)

// UnlockFailedMessage is shown for every failure that depends on the master
// password, so callers cannot tell a wrong password from a tampered file.
const UnlockFailedMessage = "wrong password or corrupted vault"

// UserMessage turns an engine error into text suitable for the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrAuthFailed),
		errors.Is(err, ErrCorruptEntries):
		return UnlockFailedMessage
	default:
		return err.Error()
	}
}

// IsUnlockFailure reports whether err is one of the errors covered by
// UnlockFailedMessage.
func IsUnlockFailure(err error) bool {
	return errors.Is(err, ErrInvalidPassword) ||
		errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, ErrCorruptEntries)
}
