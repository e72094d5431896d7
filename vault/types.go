package vault

const (
	KeyLen      = 32
	SaltLen     = 16
	VerifierLen = 32
	NonceLen    = 12
	Magic       = "PMGR"
	Version     = 0x0001

	// HeaderLen is the fixed size of the on-disk header; the ciphertext
	// starts right after it.
	HeaderLen = len(Magic) + 2 + SaltLen + VerifierLen + NonceLen

	// MaxEntries and MaxFieldLen are imposed by the 1-byte length prefixes
	// of the entry encoding.
	MaxEntries  = 255
	MaxFieldLen = 255
)

// Argon2id parameters. They are not stored in the header, so changing any
// of them requires a Version bump.
const (
	argonTime    = 2
	argonMemory  = 64 * 1024
	argonThreads = 1
)

// verifierContext is the domain-separation input of the password verifier.
const verifierContext = "magic-pwd"

// Entry is one stored credential. An empty Username means no username.
type Entry struct {
	Service  string
	Username string
	Password []byte
}

// Header is the fixed-layout record at the start of a vault file.
type Header struct {
	Version  uint16
	Salt     [SaltLen]byte
	Verifier [VerifierLen]byte
	Nonce    [NonceLen]byte
}
