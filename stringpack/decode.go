package stringpack

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/minios-linux/strpack/locale"
	"github.com/minios-linux/strpack/translation"
)

// ErrCorrupt is wrapped by every DecodeError.
var ErrCorrupt = errors.New("corrupt string pack")

// DecodeError reports where and why pack bytes could not be decoded.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v at offset %d: %s", ErrCorrupt, e.Offset, e.Reason)
}

func (e *DecodeError) Unwrap() error { return ErrCorrupt }

func corrupt(off int, format string, args ...any) error {
	return &DecodeError{Offset: off, Reason: fmt.Sprintf(format, args...)}
}

// cursor reads little-endian fields from data[pos:end], failing instead of
// reading past end.
type cursor struct {
	data []byte
	pos  int
	end  int
}

func (c *cursor) take(n int, what string) ([]byte, error) {
	if n < 0 || c.pos > c.end-n {
		return nil, corrupt(c.pos, "truncated %s: need %d bytes, %d left", what, n, c.end-c.pos)
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) u8(what string) (uint8, error) {
	b, err := c.take(1, what)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) u16(what string) (uint16, error) {
	b, err := c.take(2, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *cursor) u32(what string) (uint32, error) {
	b, err := c.take(4, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Header is the fixed-size prefix of a pack.
type Header struct {
	NumLocales        uint16
	LocaleDataOffset  uint32
	Encoding          Encoding
	ContentPoolOffset uint32
}

// ReadHeader decodes and validates the pack header.
func ReadHeader(data []byte) (Header, error) {
	c := &cursor{data: data, end: len(data)}
	var (
		h   Header
		enc uint8
		err error
	)
	if h.NumLocales, err = c.u16("header"); err != nil {
		return h, err
	}
	if h.LocaleDataOffset, err = c.u32("header"); err != nil {
		return h, err
	}
	if enc, err = c.u8("header"); err != nil {
		return h, err
	}
	if h.ContentPoolOffset, err = c.u32("header"); err != nil {
		return h, err
	}
	h.Encoding = Encoding(enc)

	if !h.Encoding.Valid() {
		return h, corrupt(6, "unknown encoding id %d", enc)
	}
	if want := headerSize + localeEntrySize*int(h.NumLocales); int(h.LocaleDataOffset) != want {
		return h, corrupt(2, "locale data offset %d, want %d for %d locales", h.LocaleDataOffset, want, h.NumLocales)
	}
	if h.ContentPoolOffset < h.LocaleDataOffset || int64(h.ContentPoolOffset) > int64(len(data)) {
		return h, corrupt(7, "content pool offset %d outside [%d, %d]", h.ContentPoolOffset, h.LocaleDataOffset, len(data))
	}
	return h, nil
}

// Decode parses a pack back into a dictionary. It is the inverse of Compile,
// except that empty texts come back from their (0, 0) handle as "".
func Decode(data []byte) (*translation.Dict, Encoding, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, 0, err
	}
	d := &decoder{
		data:  data,
		enc:   h.Encoding,
		first: int(h.LocaleDataOffset),
		pool:  int(h.ContentPoolOffset),
	}

	dict := translation.NewDict()
	dir := &cursor{data: data, pos: headerSize, end: d.first}
	for range h.NumLocales {
		at := dir.pos
		slot, err := dir.take(locale.SlotSize, "locale tag")
		if err != nil {
			return nil, 0, err
		}
		tag := tagFromSlot(slot)
		if err := locale.Validate(tag); err != nil {
			return nil, 0, corrupt(at, "bad locale tag %q", tag)
		}
		if dict.Entries(tag) != nil {
			return nil, 0, corrupt(at, "duplicate locale %q", tag)
		}
		off, err := dir.u32("locale table offset")
		if err != nil {
			return nil, 0, err
		}
		entries, err := d.table(int64(off))
		if err != nil {
			return nil, 0, fmt.Errorf("locale %s: %w", tag, err)
		}
		dict.Add(tag, entries)
	}
	return dict, h.Encoding, nil
}

// tagFromSlot infers the tag length from its zero padding. Six-byte area
// tags ("es-419") carry a single trailing zero.
func tagFromSlot(slot []byte) string {
	switch {
	case slot[2] == 0:
		return string(slot[:2])
	case slot[5] == 0:
		return string(slot[:5])
	case slot[6] == 0:
		return string(slot[:6])
	}
	return string(slot)
}

type decoder struct {
	data  []byte
	enc   Encoding
	first int // start of the locale tables
	pool  int // start of the content pool
}

func (d *decoder) table(off int64) (map[uint16]translation.Value, error) {
	start := int64(d.first) + off
	if start >= int64(d.pool) {
		return nil, corrupt(d.first, "locale table offset %d outside table region", off)
	}
	c := &cursor{data: d.data, pos: int(start), end: d.pool}

	numStrings, err := c.u16("string count")
	if err != nil {
		return nil, err
	}
	numPlurals, err := c.u16("plural count")
	if err != nil {
		return nil, err
	}

	entries := make(map[uint16]translation.Value, int(numStrings)+int(numPlurals))
	prev := -1
	for range numStrings {
		at := c.pos
		id, err := c.u16("string id")
		if err != nil {
			return nil, err
		}
		if int(id) <= prev {
			return nil, corrupt(at, "string id %d not ascending", id)
		}
		prev = int(id)
		text, err := d.text(c)
		if err != nil {
			return nil, err
		}
		entries[id] = translation.StringValue(text)
	}

	prev = -1
	for range numPlurals {
		at := c.pos
		id, err := c.u16("plural id")
		if err != nil {
			return nil, err
		}
		if int(id) <= prev {
			return nil, corrupt(at, "plural id %d not ascending", id)
		}
		prev = int(id)
		if _, dup := entries[id]; dup {
			return nil, corrupt(at, "id %d is both string and plural", id)
		}
		count, err := c.u8("quantity count")
		if err != nil {
			return nil, err
		}
		forms := make(map[translation.Quantity]string, count)
		for range count {
			qat := c.pos
			raw, err := c.u8("quantity")
			if err != nil {
				return nil, err
			}
			q := translation.Quantity(raw)
			if !q.Valid() {
				return nil, corrupt(qat, "quantity ordinal %d", raw)
			}
			if _, dup := forms[q]; dup {
				return nil, corrupt(qat, "duplicate quantity %s", q)
			}
			text, err := d.text(c)
			if err != nil {
				return nil, err
			}
			forms[q] = text
		}
		entries[id] = translation.PluralValue(forms)
	}
	return entries, nil
}

// text reads an (offset, length) handle from c and resolves it in the pool.
func (d *decoder) text(c *cursor) (string, error) {
	at := c.pos
	off, err := c.u32("text offset")
	if err != nil {
		return "", err
	}
	n, err := c.u16("text length")
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	start := int64(d.pool) + int64(off)
	if start+int64(n) > int64(len(d.data)) {
		return "", corrupt(at, "text [%d, +%d) past end of pool", off, n)
	}
	s, err := d.enc.Decode(d.data[start : start+int64(n)])
	if err != nil {
		return "", corrupt(at, "%v", err)
	}
	return s, nil
}
