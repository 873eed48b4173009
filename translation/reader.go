package translation

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/minios-linux/strpack/android"
	"github.com/minios-linux/strpack/diag"
	"github.com/minios-linux/strpack/ids"
)

// generatedMarker tags comments written by tooling; they never carry plural
// metadata. Split so this file is not itself marked as generated.
const generatedMarker = "@" + "generated"

// PluralPredicate decides whether a plural quantity is dropped before
// packing. comment is the text of the comment immediately preceding the
// <plurals> element, or "".
type PluralPredicate func(locale, comment string, q Quantity) (exclude bool)

// KeepAll never excludes a quantity.
func KeepAll(string, string, Quantity) bool { return false }

// NullifySet holds fully-qualified resource identifiers ("string.name",
// "plurals.name") that are dropped regardless of anything else.
type NullifySet map[string]struct{}

// NewNullifySet builds a set from identifiers. A leading "R." is accepted
// and stripped, so "R.string.foo" and "string.foo" are the same entry.
func NewNullifySet(names ...string) NullifySet {
	s := make(NullifySet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		s[strings.TrimPrefix(n, "R.")] = struct{}{}
	}
	return s
}

// LoadNullifySet reads one identifier per line.
func LoadNullifySet(path string) (NullifySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		names = append(names, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return NewNullifySet(names...), nil
}

// Has reports whether a resource of the given type ("string" or "plurals")
// is nullified.
func (s NullifySet) Has(typ, name string) bool {
	_, ok := s[typ+"."+name]
	return ok
}

// Reader turns one locale's strings.xml into id-keyed values.
type Reader struct {
	// Resolver maps resource names to ids. Required.
	Resolver ids.Resolver
	// Exclude drops plural quantities. Nil keeps everything.
	Exclude PluralPredicate
	// Nullify drops whole resources.
	Nullify NullifySet
	// Diag receives non-fatal diagnostics. Nil discards them.
	Diag diag.Sink
}

// ReadFile parses path as the translations for locale. A missing file is not
// an error: it contributes nothing.
func (r *Reader) ReadFile(locale, path string) (map[uint16]Value, error) {
	f, err := android.ParseFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[uint16]Value{}, nil
		}
		return nil, err
	}
	return r.Read(locale, path, f), nil
}

// Read converts an already parsed file. source names the file in
// diagnostics.
func (r *Reader) Read(locale, source string, f *android.File) map[uint16]Value {
	sink := diag.OrDiscard(r.Diag)
	exclude := r.Exclude
	if exclude == nil {
		exclude = KeepAll
	}

	result := make(map[uint16]Value)
	lastComment := ""
	for _, e := range f.Entries {
		if e.Kind == android.KindComment {
			if !strings.Contains(e.Comment, generatedMarker) {
				lastComment = e.Comment
			}
			continue
		}
		comment := lastComment
		lastComment = ""

		switch {
		case e.Kind == android.KindStringArray:
			sink.Warnf("%s: skipping <string-array name=%q> (%d items): not packable", source, e.Name, len(e.Items))
			continue
		case e.Kind != android.KindString && e.Kind != android.KindPlurals:
			sink.Warnf("%s: skipping <%s name=%q>: not packable", source, e.Kind, e.Name)
			continue
		case !e.Translatable:
			// Untranslatable resources stay in the app's default values.
			sink.Warnf("%s: skipping %s.%s: translatable=\"false\"", source, e.Kind, e.Name)
			continue
		}

		id, ok := r.Resolver.ID(e.Name)
		if !ok {
			// Usually a string removed from the app but still present in
			// translations.
			sink.Warnf("No ID found for '%s' while packing %s", e.Name, source)
			continue
		}
		if r.Nullify.Has(e.Kind.String(), e.Name) {
			continue
		}

		if e.Kind == android.KindString {
			result[id] = StringValue(android.Unescape(e.Value))
			continue
		}

		forms := make(map[Quantity]string, len(e.PluralOrder))
		for _, keyword := range e.PluralOrder {
			q, ok := ParseQuantity(keyword)
			if !ok {
				sink.Warnf("%s: <plurals name=%q> has unknown quantity %q", source, e.Name, keyword)
				continue
			}
			if exclude(locale, comment, q) {
				continue
			}
			forms[q] = android.Unescape(e.Plurals[keyword])
		}
		result[id] = PluralValue(forms)
	}
	return result
}

// Rule excludes plural quantities for plurals whose preceding comment
// contains Comment, in the listed locales (all locales when empty).
type Rule struct {
	Locales []string
	Comment string
	Drop    []Quantity
}

// Rules combines rules into a predicate: a quantity is excluded when any
// rule matches.
func Rules(rules []Rule) PluralPredicate {
	return func(locale, comment string, q Quantity) bool {
		for _, r := range rules {
			if r.Comment != "" && !strings.Contains(comment, r.Comment) {
				continue
			}
			if len(r.Locales) > 0 && !slices.Contains(r.Locales, locale) {
				continue
			}
			if slices.Contains(r.Drop, q) {
				return true
			}
		}
		return false
	}
}
