package vault

import (
	"bytes"
	"errors"
	"testing"
)

func sampleHeader() Header {
	h := Header{Version: Version}
	for i := range h.Salt {
		h.Salt[i] = byte(i + 1)
	}
	for i := range h.Verifier {
		h.Verifier[i] = byte(0x80 + i)
	}
	for i := range h.Nonce {
		h.Nonce[i] = byte(0xf0 + i)
	}
	return h
}

func TestHeaderLayout(t *testing.T) {
	if HeaderLen != 66 {
		t.Fatalf("HeaderLen = %d; want 66", HeaderLen)
	}

	h := sampleHeader()
	raw, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(raw) != HeaderLen {
		t.Fatalf("encoded length = %d; want %d", len(raw), HeaderLen)
	}

	if string(raw[0:4]) != Magic {
		t.Errorf("magic = %q; want %q", raw[0:4], Magic)
	}
	if raw[4] != 1 || raw[5] != 0 {
		t.Errorf("version bytes = % x; want 01 00", raw[4:6])
	}
	if !bytes.Equal(raw[6:22], h.Salt[:]) {
		t.Error("salt not at offset 6")
	}
	if !bytes.Equal(raw[22:54], h.Verifier[:]) {
		t.Error("verifier not at offset 22")
	}
	if !bytes.Equal(raw[54:66], h.Nonce[:]) {
		t.Error("nonce not at offset 54")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := sampleHeader()
	var buf bytes.Buffer
	n, err := h.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if n != int64(HeaderLen) {
		t.Errorf("WriteTo wrote %d bytes; want %d", n, HeaderLen)
	}

	// Trailing ciphertext must be left unread.
	buf.WriteString("ciphertext")

	got, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if got != h {
		t.Errorf("ReadHeader = %+v; want %+v", got, h)
	}
	if buf.String() != "ciphertext" {
		t.Errorf("remaining = %q; want %q", buf.String(), "ciphertext")
	}
}

// countingReader records how many bytes were consumed.
type countingReader struct {
	r *bytes.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestReadHeaderBadMagic(t *testing.T) {
	raw, _ := sampleHeader().MarshalBinary()
	raw[2] ^= 0x01

	cr := &countingReader{r: bytes.NewReader(raw)}
	_, err := ReadHeader(cr)
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("ReadHeader error = %v; want ErrInvalidFormat", err)
	}
	if cr.n != len(Magic) {
		t.Errorf("consumed %d bytes before rejecting magic; want %d", cr.n, len(Magic))
	}
}

func TestReadHeaderBadVersion(t *testing.T) {
	for _, version := range []uint16{0, 2, 0x0100} {
		h := sampleHeader()
		h.Version = version
		raw, _ := h.MarshalBinary()

		if _, err := ReadHeader(bytes.NewReader(raw)); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("version %d: error = %v; want ErrInvalidFormat", version, err)
		}
	}
}

func TestReadHeaderTruncated(t *testing.T) {
	raw, _ := sampleHeader().MarshalBinary()

	for _, n := range []int{0, 3, 4, 5, 6, 21, 53, HeaderLen - 1} {
		_, err := ReadHeader(bytes.NewReader(raw[:n]))
		if !errors.Is(err, ErrTruncated) {
			t.Errorf("ReadHeader(%d bytes) error = %v; want ErrTruncated", n, err)
		}
	}
}
