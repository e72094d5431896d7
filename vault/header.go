package vault

import (
	"bytes"
	"crypto/subtle"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// WriteTo writes the fixed-size header. Multi-byte integers are little
// endian.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, 0, HeaderLen)

	// Magic
	buf = append(buf, Magic...)

	// Version
	buf = binary.LittleEndian.AppendUint16(buf, h.Version)

	// Key material
	buf = append(buf, h.Salt[:]...)
	buf = append(buf, h.Verifier[:]...)
	buf = append(buf, h.Nonce[:]...)

	n, err := w.Write(buf)
	if err != nil {
		return int64(n), errors.Wrap(err, "write header")
	}
	return int64(n), nil
}

// MarshalBinary returns the encoded header.
func (h Header) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := h.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadHeader reads and validates a header. Magic and version are checked
// before the key material is read.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header

	// Magic
	magic := make([]byte, len(Magic))
	if err := readFull(r, magic, "magic"); err != nil {
		return h, err
	}
	if subtle.ConstantTimeCompare(magic, []byte(Magic)) != 1 {
		return h, errors.Wrap(ErrInvalidFormat, "bad magic")
	}

	// Version
	var version [2]byte
	if err := readFull(r, version[:], "version"); err != nil {
		return h, err
	}
	h.Version = binary.LittleEndian.Uint16(version[:])
	if h.Version != Version {
		return h, errors.Wrapf(ErrInvalidFormat, "unsupported version %d", h.Version)
	}

	// Key material
	if err := readFull(r, h.Salt[:], "salt"); err != nil {
		return h, err
	}
	if err := readFull(r, h.Verifier[:], "verifier"); err != nil {
		return h, err
	}
	if err := readFull(r, h.Nonce[:], "nonce"); err != nil {
		return h, err
	}
	return h, nil
}

func readFull(r io.Reader, buf []byte, field string) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return errors.Wrapf(ErrTruncated, "read %s", field)
		}
		return errors.Wrapf(err, "read %s", field)
	}
	return nil
}
