package stringpack

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Encoding is the byte encoding of the content pool. The numeric value is the
// encodingId stored in the pack header; the runtime reader keeps the same
// table.
type Encoding uint8

const (
	UTF8    Encoding = 0
	UTF16BE Encoding = 1
)

// ErrInvalidText is returned for text that is not valid UTF-8. The UTF-16
// encoder would replace the bad bytes with U+FFFD, so such text could not be
// decoded back unchanged.
var ErrInvalidText = errors.New("text is not valid UTF-8")

// encodings lists the candidates in trial order. On equal pool sizes the
// first one wins.
var encodings = []Encoding{UTF8, UTF16BE}

// Valid reports whether e is a known encoding id.
func (e Encoding) Valid() bool { return e == UTF8 || e == UTF16BE }

func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "UTF-8"
	case UTF16BE:
		return "UTF-16BE"
	}
	return fmt.Sprintf("Encoding(%d)", uint8(e))
}

func (e Encoding) codec() encoding.Encoding {
	if e == UTF16BE {
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	}
	return unicode.UTF8
}

// Encode converts text into the bytes stored in the pool.
func (e Encoding) Encode(text string) ([]byte, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidText, text)
	}
	if e == UTF8 {
		return []byte(text), nil
	}
	b, err := e.codec().NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", e, err)
	}
	return b, nil
}

// Decode converts pool bytes back into text.
func (e Encoding) Decode(b []byte) (string, error) {
	if e == UTF8 {
		return string(b), nil
	}
	if len(b)%2 != 0 {
		return "", fmt.Errorf("decoding %s: odd byte count %d", e, len(b))
	}
	out, err := e.codec().NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", e, err)
	}
	return string(out), nil
}
