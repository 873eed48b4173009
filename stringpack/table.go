package stringpack

import (
	"encoding/binary"
	"fmt"
	"maps"
	"slices"

	"github.com/minios-linux/strpack/translation"
)

// Sizes of the fixed-width records of the pack layout.
const (
	headerSize      = 11 // numLocales u16, localeDataOffset u32, encoding u8, contentPoolOffset u32
	localeEntrySize = 11 // tag [7]byte, tableOffset u32
	tableHeaderSize = 4  // stringCount u16, pluralCount u16
	stringEntrySize = 8  // id u16, offset u32, length u16
	pluralEntrySize = 3  // id u16, quantityCount u8
	quantitySize    = 7  // quantity u8, offset u32, length u16
)

const (
	maxCount  = 0xFFFF
	maxLength = 0xFFFF
	// The runtime reader holds offsets in signed 32-bit ints.
	maxOffset = 1<<31 - 1
)

type handle struct {
	off uint32
	n   uint16
}

type quantityHandle struct {
	q translation.Quantity
	handle
}

// buildTable encodes one locale. Texts enter the pool in ascending id order;
// the table then lists strings first and plurals second, each sorted by id.
func buildTable(pool *Pool, entries map[uint16]translation.Value) ([]byte, error) {
	var stringIDs, pluralIDs []uint16
	stringHandles := make(map[uint16]handle)
	pluralHandles := make(map[uint16][]quantityHandle)
	for _, id := range slices.Sorted(maps.Keys(entries)) {
		v := entries[id]
		if !v.IsPlural() {
			off, n, err := pool.Add(v.Text)
			if err != nil {
				return nil, fmt.Errorf("string %d: %w", id, err)
			}
			stringIDs = append(stringIDs, id)
			stringHandles[id] = handle{off, n}
			continue
		}
		qs := v.Quantities()
		hs := make([]quantityHandle, 0, len(qs))
		for _, q := range qs {
			if !q.Valid() {
				return nil, fmt.Errorf("plural %d: invalid quantity %v", id, q)
			}
			off, n, err := pool.Add(v.Plural[q])
			if err != nil {
				return nil, fmt.Errorf("plural %d/%s: %w", id, q, err)
			}
			hs = append(hs, quantityHandle{q, handle{off, n}})
		}
		pluralIDs = append(pluralIDs, id)
		pluralHandles[id] = hs
	}
	if len(stringIDs) > maxCount || len(pluralIDs) > maxCount {
		return nil, fmt.Errorf("%w: %d strings, %d plurals", ErrTooLarge, len(stringIDs), len(pluralIDs))
	}

	out := make([]byte, 0, tableHeaderSize+stringEntrySize*len(stringIDs)+(pluralEntrySize+2*quantitySize)*len(pluralIDs))
	out = binary.LittleEndian.AppendUint16(out, uint16(len(stringIDs)))
	out = binary.LittleEndian.AppendUint16(out, uint16(len(pluralIDs)))
	for _, id := range stringIDs {
		h := stringHandles[id]
		out = binary.LittleEndian.AppendUint16(out, id)
		out = binary.LittleEndian.AppendUint32(out, h.off)
		out = binary.LittleEndian.AppendUint16(out, h.n)
	}
	for _, id := range pluralIDs {
		hs := pluralHandles[id]
		out = binary.LittleEndian.AppendUint16(out, id)
		out = append(out, byte(len(hs)))
		for _, h := range hs {
			out = append(out, byte(h.q))
			out = binary.LittleEndian.AppendUint32(out, h.off)
			out = binary.LittleEndian.AppendUint16(out, h.n)
		}
	}
	return out, nil
}
