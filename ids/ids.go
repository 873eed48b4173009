// Package ids resolves Android string and plural resource names to the
// stable 16-bit ids used inside string pack files.
//
// An id is the position of the resource name in an id source file. Two
// sources are understood:
//
//   - the aapt2 stable-ids file passed to "--stable-ids"
//     (lines like "com.example:string/app_name = 0x7f120000")
//   - a generated pack-ids class listing R.string.* / R.plurals.* fields
//
// The same file must be used to build the application and the packs, or the
// runtime reader will resolve the wrong strings.
package ids

import (
	"errors"
	"fmt"
	"os"
	"regexp"
)

// ErrTooManyIDs is returned when a source names more resources than fit in
// a 16-bit id.
var ErrTooManyIDs = errors.New("too many resource ids")

// MaxID is the largest id a pack can store.
const MaxID = 0xFFFF

// Resolver maps a resource name to its id.
type Resolver interface {
	ID(name string) (uint16, bool)
}

// Kind identifies the format of an id source file.
type Kind string

const (
	// KindStableIDs is an aapt2 stable-ids file.
	KindStableIDs Kind = "stable"
	// KindPackIDsClass is a generated class listing R.string/R.plurals fields.
	KindPackIDsClass Kind = "class"
)

var (
	reStableID  = regexp.MustCompile(`(?s):(?:string|plurals)/(\w+) =`)
	rePackClass = regexp.MustCompile(`(?s)R\.(?:string|plurals)(?:.*?)\.(\w+),`)
)

// Table is an ordered list of resource names; a name's id is its index.
type Table struct {
	names  []string
	byName map[string]uint16
}

// NewTable builds a table from names in id order. When a name appears more
// than once, the last occurrence wins.
func NewTable(names []string) (*Table, error) {
	if len(names) > MaxID+1 {
		return nil, fmt.Errorf("%w: %d names", ErrTooManyIDs, len(names))
	}
	t := &Table{
		names:  append([]string(nil), names...),
		byName: make(map[string]uint16, len(names)),
	}
	for i, name := range names {
		t.byName[name] = uint16(i)
	}
	return t, nil
}

// Parse extracts resource names from id source data.
func Parse(data []byte, kind Kind) (*Table, error) {
	var re *regexp.Regexp
	switch kind {
	case KindStableIDs:
		re = reStableID
	case KindPackIDsClass:
		re = rePackClass
	default:
		return nil, fmt.Errorf("unknown id source kind %q (valid: stable, class)", kind)
	}

	matches := re.FindAllSubmatch(data, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, string(m[1]))
	}
	return NewTable(names)
}

// Load reads and parses an id source file.
func Load(path string, kind Kind) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	t, err := Parse(data, kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ID returns the id assigned to name.
func (t *Table) ID(name string) (uint16, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Name returns the resource name for id.
func (t *Table) Name(id uint16) (string, bool) {
	if int(id) >= len(t.names) {
		return "", false
	}
	name := t.names[id]
	if t.byName[name] != id {
		// shadowed by a later duplicate
		return "", false
	}
	return name, true
}

// Len returns the number of ids in the table.
func (t *Table) Len() int { return len(t.names) }

// Map is a Resolver backed by a plain map. Useful for tests and callers that
// assign ids themselves.
type Map map[string]uint16

// ID implements Resolver.
func (m Map) ID(name string) (uint16, bool) {
	id, ok := m[name]
	return id, ok
}
