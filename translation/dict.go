package translation

import (
	"maps"
	"slices"
)

// Dict maps locale -> resource id -> value. Within a locale an id is unique;
// adding the same id again replaces the previous value.
//
// A Dict is not safe for concurrent mutation. Each pack job owns its own.
type Dict struct {
	store map[string]map[uint16]Value
}

// NewDict returns an empty dictionary.
func NewDict() *Dict {
	return &Dict{store: make(map[string]map[uint16]Value)}
}

// Add merges entries into locale, last write wins. The locale is created
// even when entries is empty, matching a source file that exists but
// contributes nothing.
func (d *Dict) Add(locale string, entries map[uint16]Value) {
	m, ok := d.store[locale]
	if !ok {
		m = make(map[uint16]Value, len(entries))
		d.store[locale] = m
	}
	for id, v := range entries {
		m[id] = v
	}
}

// Set stores a single value.
func (d *Dict) Set(locale string, id uint16, v Value) {
	d.Add(locale, map[uint16]Value{id: v})
}

// Merge adds every locale of other into d.
func (d *Dict) Merge(other *Dict) {
	for locale, entries := range other.store {
		d.Add(locale, entries)
	}
}

// Remove deletes the given ids from every locale, then drops locales left
// without entries. Returns the number of deleted entries.
func (d *Dict) Remove(ids []uint16) int {
	removed := 0
	for _, m := range d.store {
		for _, id := range ids {
			if _, ok := m[id]; ok {
				delete(m, id)
				removed++
			}
		}
	}
	d.DropEmpty()
	return removed
}

// DropEmpty deletes locales that hold no entries.
func (d *Dict) DropEmpty() {
	for locale, m := range d.store {
		if len(m) == 0 {
			delete(d.store, locale)
		}
	}
}

// Locales returns the locales in ascending order.
func (d *Dict) Locales() []string {
	return slices.Sorted(maps.Keys(d.store))
}

// Entries returns the id -> value map of a locale. The map is owned by d.
func (d *Dict) Entries(locale string) map[uint16]Value {
	return d.store[locale]
}

// Get returns a single value.
func (d *Dict) Get(locale string, id uint16) (Value, bool) {
	v, ok := d.store[locale][id]
	return v, ok
}

// Len returns the number of locales.
func (d *Dict) Len() int { return len(d.store) }

// Equal reports whether d and other hold the same locales with the same
// content.
func (d *Dict) Equal(other *Dict) bool {
	if len(d.store) != len(other.store) {
		return false
	}
	for locale, m := range d.store {
		om, ok := other.store[locale]
		if !ok {
			return false
		}
		if !maps.EqualFunc(m, om, Value.Equal) {
			return false
		}
	}
	return true
}
