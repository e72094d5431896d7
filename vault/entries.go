package vault

import (
	"unicode/utf8"

	"github.com/pkg/errors"
)

// EncodeEntries serializes entries in order: a count byte, then for each
// entry the length-prefixed service, username and password.
func EncodeEntries(entries []Entry) ([]byte, error) {
	if len(entries) > MaxEntries {
		return nil, errors.Wrapf(ErrTooManyEntries, "%d entries, max %d", len(entries), MaxEntries)
	}

	size := 1
	for _, e := range entries {
		size += 3 + len(e.Service) + len(e.Username) + len(e.Password)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, byte(len(entries)))

	for i, e := range entries {
		var err error
		if buf, err = appendField(buf, []byte(e.Service)); err != nil {
			return nil, errors.Wrapf(err, "entry %d service", i)
		}
		if buf, err = appendField(buf, []byte(e.Username)); err != nil {
			return nil, errors.Wrapf(err, "entry %d username", i)
		}
		if buf, err = appendField(buf, e.Password); err != nil {
			return nil, errors.Wrapf(err, "entry %d password", i)
		}
	}
	return buf, nil
}

func appendField(buf, field []byte) ([]byte, error) {
	if len(field) > MaxFieldLen {
		return buf, errors.Wrapf(ErrFieldTooLong, "%d bytes", len(field))
	}
	buf = append(buf, byte(len(field)))
	return append(buf, field...), nil
}

// DecodeEntries is the inverse of EncodeEntries. Any malformed input,
// including trailing bytes, is reported as ErrCorruptEntries.
func DecodeEntries(data []byte) ([]Entry, error) {
	d := entryDecoder{data: data}

	count, ok := d.readByte()
	if !ok {
		return nil, errors.Wrap(ErrCorruptEntries, "missing entry count")
	}

	entries := make([]Entry, 0, count)
	for i := 0; i < int(count); i++ {
		service, ok := d.readField()
		if !ok {
			return nil, errors.Wrapf(ErrCorruptEntries, "entry %d: service out of bounds", i)
		}
		username, ok := d.readField()
		if !ok {
			return nil, errors.Wrapf(ErrCorruptEntries, "entry %d: username out of bounds", i)
		}
		password, ok := d.readField()
		if !ok {
			return nil, errors.Wrapf(ErrCorruptEntries, "entry %d: password out of bounds", i)
		}
		if !utf8.Valid(service) || !utf8.Valid(username) {
			return nil, errors.Wrapf(ErrCorruptEntries, "entry %d: invalid utf-8", i)
		}

		entries = append(entries, Entry{
			Service:  string(service),
			Username: string(username),
			Password: append([]byte(nil), password...),
		})
	}

	if d.off != len(d.data) {
		return nil, errors.Wrapf(ErrCorruptEntries, "%d trailing bytes", len(d.data)-d.off)
	}
	return entries, nil
}

type entryDecoder struct {
	data []byte
	off  int
}

func (d *entryDecoder) readByte() (byte, bool) {
	if d.off >= len(d.data) {
		return 0, false
	}
	b := d.data[d.off]
	d.off++
	return b, true
}

func (d *entryDecoder) readField() ([]byte, bool) {
	n, ok := d.readByte()
	if !ok || int(n) > len(d.data)-d.off {
		return nil, false
	}
	f := d.data[d.off : d.off+int(n)]
	d.off += int(n)
	return f, true
}
