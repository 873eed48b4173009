// Package stringpack reads and writes the binary string pack format loaded
// by the Android runtime reader.
//
// A pack holds, for a group of locales, every packed string and plural of an
// application keyed by 16-bit resource id:
//
//	header            11 bytes
//	locale directory  11 bytes per locale, sorted by tag
//	locale tables     one per locale, same order
//	content pool      deduplicated encoded text
//
// All integers are little-endian. Table offsets in the directory are
// relative to the start of the locale tables; text offsets are relative to
// the start of the content pool.
package stringpack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/strpack/locale"
	"github.com/minios-linux/strpack/translation"
)

// ErrTooLarge is returned when a dictionary does not fit the fixed-width
// fields of the format.
var ErrTooLarge = errors.New("string pack limit exceeded")

// Pack is a compiled string pack.
type Pack struct {
	enc     Encoding
	locales []string
	tables  [][]byte
	pool    *Pool
}

// Compile builds the pack in every supported encoding and keeps the one with
// the smallest content pool. On a tie UTF-8 wins.
func Compile(dict *translation.Dict) (*Pack, error) {
	candidates := make([]*Pack, len(encodings))

	// The trials share nothing but the read-only dict.
	var g errgroup.Group
	for i, enc := range encodings {
		g.Go(func() error {
			p, err := CompileWith(dict, enc)
			if err != nil {
				return err
			}
			candidates[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := candidates[0]
	for _, p := range candidates[1:] {
		if p.PoolSize() < best.PoolSize() {
			best = p
		}
	}
	return best, nil
}

// CompileWith builds the pack with a fixed content encoding.
func CompileWith(dict *translation.Dict, enc Encoding) (*Pack, error) {
	if !enc.Valid() {
		return nil, fmt.Errorf("unknown encoding %v", enc)
	}
	locales := dict.Locales()
	if len(locales) > maxCount {
		return nil, fmt.Errorf("%w: %d locales", ErrTooLarge, len(locales))
	}

	p := &Pack{
		enc:     enc,
		locales: locales,
		tables:  make([][]byte, len(locales)),
		pool:    NewPool(enc),
	}
	for i, tag := range locales {
		if err := locale.Validate(tag); err != nil {
			return nil, err
		}
		table, err := buildTable(p.pool, dict.Entries(tag))
		if err != nil {
			return nil, fmt.Errorf("locale %s: %w", tag, err)
		}
		p.tables[i] = table
	}
	if size := p.Size(); size > maxOffset {
		return nil, fmt.Errorf("%w: pack of %d bytes", ErrTooLarge, size)
	}
	return p, nil
}

// Encoding returns the content pool encoding.
func (p *Pack) Encoding() Encoding { return p.enc }

// PoolSize returns the content pool size in bytes.
func (p *Pack) PoolSize() int { return p.pool.Len() }

// Locales returns the packed locales in file order.
func (p *Pack) Locales() []string { return append([]string(nil), p.locales...) }

// Size returns the total file size in bytes.
func (p *Pack) Size() int {
	n := p.localeDataOffset() + p.pool.Len()
	for _, t := range p.tables {
		n += len(t)
	}
	return n
}

func (p *Pack) localeDataOffset() int {
	return headerSize + localeEntrySize*len(p.locales)
}

// Bytes returns the serialized pack.
func (p *Pack) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(p.Size())
	_, _ = p.WriteTo(&buf)
	return buf.Bytes()
}

// WriteTo writes the serialized pack to w.
func (p *Pack) WriteTo(w io.Writer) (int64, error) {
	head := make([]byte, 0, p.localeDataOffset())

	tablesSize := 0
	for _, t := range p.tables {
		tablesSize += len(t)
	}
	head = binary.LittleEndian.AppendUint16(head, uint16(len(p.locales)))
	head = binary.LittleEndian.AppendUint32(head, uint32(p.localeDataOffset()))
	head = append(head, byte(p.enc))
	head = binary.LittleEndian.AppendUint32(head, uint32(p.localeDataOffset()+tablesSize))

	tableOffset := 0
	for i, tag := range p.locales {
		var slot [locale.SlotSize]byte
		copy(slot[:], tag)
		head = append(head, slot[:]...)
		head = binary.LittleEndian.AppendUint32(head, uint32(tableOffset))
		tableOffset += len(p.tables[i])
	}

	var total int64
	write := func(b []byte) error {
		n, err := w.Write(b)
		total += int64(n)
		return err
	}
	if err := write(head); err != nil {
		return total, err
	}
	for _, t := range p.tables {
		if err := write(t); err != nil {
			return total, err
		}
	}
	if err := write(p.pool.Bytes()); err != nil {
		return total, err
	}
	return total, nil
}
