// Package vault implements a single-file password store protected by a
// master password.
//
// The file is a fixed 66-byte header (magic, version, Argon2id salt,
// password verifier, nonce) followed by the ChaCha20-Poly1305 encryption
// of the serialized entry list. The header is bound to the ciphertext as
// associated data. Every save rewrites the whole file under a fresh nonce.
package vault

import (
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Option configures a Vault.
type Option func(*Vault)

// WithLogger sets the logger used for vault lifecycle events. Secrets are
// never logged.
func WithLogger(l *slog.Logger) Option {
	return func(v *Vault) {
		if l != nil {
			v.log = l
		}
	}
}

// A Vault is an in-memory view of one vault file. It is not safe for
// concurrent use.
type Vault struct {
	Filename string

	header  Header
	key     []byte
	locked  bool
	entries []Entry
	log     *slog.Logger
}

// NewVault returns a locked vault bound to filename. Call Create or Open
// before using it.
func NewVault(filename string, opts ...Option) *Vault {
	v := &Vault{
		Filename: filename,
		locked:   true,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// CreateVault creates a new empty vault file at path.
func CreateVault(path string, password []byte, opts ...Option) (*Vault, error) {
	v := NewVault(path, opts...)
	if err := v.Create(password); err != nil {
		return nil, err
	}
	return v, nil
}

// OpenVault opens and authenticates the vault file at path.
func OpenVault(path string, password []byte, opts ...Option) (*Vault, error) {
	v := NewVault(path, opts...)
	if err := v.Open(password); err != nil {
		return nil, err
	}
	return v, nil
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func (v *Vault) Exists() bool { return FileExists(v.Filename) }

// Locked reports whether the vault holds no key material.
func (v *Vault) Locked() bool { return v.locked }

// Header returns the header as last written or read.
func (v *Vault) Header() Header { return v.header }

// Create initialises a new vault protected by password and writes it.
// An existing file is never overwritten.
func (v *Vault) Create(password []byte) error {
	if _, err := os.Lstat(v.Filename); err == nil {
		return errors.Wrap(ErrExists, v.Filename)
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, "stat vault")
	}

	key, salt, err := DeriveKey(password)
	if err != nil {
		return err
	}

	v.Lock()
	v.header = Header{
		Version:  Version,
		Salt:     salt,
		Verifier: CreateVerifier(key),
	}
	v.key = key
	v.entries = []Entry{}
	v.locked = false

	if err := v.Save(); err != nil {
		v.Lock()
		return err
	}
	v.log.Info("vault created", "path", v.Filename)
	return nil
}

// Open reads the vault file, checks password against the stored verifier
// and decrypts the entries. A wrong password fails with
// ErrInvalidPassword before any decryption is attempted. A failed Open
// leaves v unchanged.
func (v *Vault) Open(password []byte) error {
	f, err := os.Open(v.Filename)
	if err != nil {
		return errors.Wrap(err, "open vault")
	}
	defer f.Close()

	header, err := ReadHeader(f)
	if err != nil {
		return err
	}

	key, err := unlockKey(password, header.Salt, header.Verifier)
	if err != nil {
		v.log.Warn("vault unlock failed", "path", v.Filename)
		return err
	}

	entries, err := readEntries(f, key, header)
	if err != nil {
		zero(key)
		v.log.Warn("vault decrypt failed", "path", v.Filename)
		return err
	}

	v.Lock()
	v.header = header
	v.key = key
	v.entries = entries
	v.locked = false
	v.log.Info("vault opened", "path", v.Filename, "entries", len(entries))
	return nil
}

func readEntries(r io.Reader, key []byte, header Header) ([]Entry, error) {
	ct, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read ciphertext")
	}
	ad, err := header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	pt, err := Decrypt(key, header.Nonce[:], ct, ad)
	if err != nil {
		return nil, err
	}
	defer zero(pt)
	return DecodeEntries(pt)
}

// Save encrypts the entries under a fresh nonce and atomically replaces
// the vault file.
func (v *Vault) Save() error {
	if v.locked {
		return ErrLocked
	}

	pt, err := EncodeEntries(v.entries)
	if err != nil {
		return err
	}
	defer zero(pt)

	nonce, err := newNonce()
	if err != nil {
		return err
	}
	header := v.header
	header.Nonce = nonce

	hdr, err := header.MarshalBinary()
	if err != nil {
		return err
	}
	ct, err := Encrypt(v.key, nonce[:], pt, hdr)
	if err != nil {
		return err
	}

	raw := append(hdr, ct...)
	if err := atomicWriteFile(v.Filename, raw, 0600); err != nil {
		return err
	}
	v.header = header
	v.log.Debug("vault saved", "path", v.Filename, "bytes", len(raw), "entries", len(v.entries))
	return nil
}

// Lock wipes the key and entry passwords from memory.
func (v *Vault) Lock() {
	zero(v.key)
	v.key = nil
	for i := range v.entries {
		zero(v.entries[i].Password)
	}
	v.entries = nil
	v.locked = true
}

// CRUD operations. Every mutation is saved immediately and rolled back in
// memory if the save fails.

func (v *Vault) Len() int { return len(v.entries) }

// List returns a copy of all entries in insertion order.
func (v *Vault) List() []Entry {
	out := make([]Entry, len(v.entries))
	for i, e := range v.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

// Get returns a copy of the entry at index i.
func (v *Vault) Get(i int) (Entry, bool) {
	if i < 0 || i >= len(v.entries) {
		return Entry{}, false
	}
	return cloneEntry(v.entries[i]), true
}

func (v *Vault) Add(e Entry) error {
	if v.locked {
		return ErrLocked
	}
	if len(v.entries) >= MaxEntries {
		return errors.Wrapf(ErrTooManyEntries, "max %d", MaxEntries)
	}
	if err := validateEntry(e); err != nil {
		return err
	}

	v.entries = append(v.entries, cloneEntry(e))
	if err := v.Save(); err != nil {
		last := len(v.entries) - 1
		zero(v.entries[last].Password)
		v.entries = v.entries[:last]
		return err
	}
	return nil
}

func (v *Vault) Update(i int, e Entry) error {
	if v.locked {
		return ErrLocked
	}
	if i < 0 || i >= len(v.entries) {
		return errors.Wrapf(ErrNoEntry, "index %d", i)
	}
	if err := validateEntry(e); err != nil {
		return err
	}

	old := v.entries[i]
	v.entries[i] = cloneEntry(e)
	if err := v.Save(); err != nil {
		zero(v.entries[i].Password)
		v.entries[i] = old
		return err
	}
	zero(old.Password)
	return nil
}

func (v *Vault) Delete(i int) error {
	if v.locked {
		return ErrLocked
	}
	if i < 0 || i >= len(v.entries) {
		return errors.Wrapf(ErrNoEntry, "index %d", i)
	}

	prev := v.entries
	next := make([]Entry, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	next = append(next, prev[i+1:]...)

	v.entries = next
	if err := v.Save(); err != nil {
		v.entries = prev
		return err
	}
	zero(prev[i].Password)
	return nil
}

func validateEntry(e Entry) error {
	switch {
	case e.Service == "":
		return errors.Wrap(ErrInvalidEntry, "service is empty")
	case !utf8.ValidString(e.Service), !utf8.ValidString(e.Username):
		return errors.Wrap(ErrInvalidEntry, "service and username must be valid utf-8")
	case len(e.Service) > MaxFieldLen, len(e.Username) > MaxFieldLen, len(e.Password) > MaxFieldLen:
		return errors.Wrapf(ErrFieldTooLong, "max %d bytes per field", MaxFieldLen)
	}
	return nil
}

func cloneEntry(e Entry) Entry {
	e.Password = append([]byte(nil), e.Password...)
	return e
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	zero(b)
}
