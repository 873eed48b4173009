package stringpack

import (
	"bytes"
	"fmt"
)

// Pool is the shared byte buffer every (offset, length) handle of a pack
// points into. Texts that already occur in the buffer, in full or as an
// overlap with its tail, are not stored again.
type Pool struct {
	enc Encoding
	buf []byte
}

// NewPool returns an empty pool storing text in enc.
func NewPool(enc Encoding) *Pool {
	return &Pool{enc: enc}
}

// Add stores text and returns its location. Empty text is (0, 0) and leaves
// the buffer untouched.
func (p *Pool) Add(text string) (offset uint32, length uint16, err error) {
	if text == "" {
		return 0, 0, nil
	}
	b, err := p.enc.Encode(text)
	if err != nil {
		return 0, 0, err
	}
	if len(b) > maxLength {
		return 0, 0, fmt.Errorf("%w: text of %d bytes exceeds %d", ErrTooLarge, len(b), maxLength)
	}

	start := bytes.Index(p.buf, b)
	if start < 0 {
		k := len(b) - 1
		for k > 0 && !bytes.HasSuffix(p.buf, b[:k]) {
			k--
		}
		start = len(p.buf) - k
		p.buf = append(p.buf, b[k:]...)
	}
	if len(p.buf) > maxOffset {
		return 0, 0, fmt.Errorf("%w: content pool exceeds %d bytes", ErrTooLarge, maxOffset)
	}
	return uint32(start), uint16(len(b)), nil
}

// Len returns the pool size in bytes.
func (p *Pool) Len() int { return len(p.buf) }

// Bytes returns the pool content. The slice is owned by p.
func (p *Pool) Bytes() []byte { return p.buf }
