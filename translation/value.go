// Package translation holds the in-memory model of translated resources
// (TranslationDict) and the reader that fills it from strings.xml files.
package translation

import (
	"fmt"
	"maps"
	"slices"
)

// Quantity is the plural category ordinal stored in pack files. The runtime
// reader indexes an array with these values: never renumber.
type Quantity uint8

const (
	Other Quantity = 0
	Zero  Quantity = 1
	One   Quantity = 2
	Two   Quantity = 3
	Few   Quantity = 4
	Many  Quantity = 5
)

// NumQuantities is the number of plural categories.
const NumQuantities = 6

var quantityNames = [NumQuantities]string{"other", "zero", "one", "two", "few", "many"}

// ParseQuantity maps an Android quantity keyword to its ordinal.
func ParseQuantity(s string) (Quantity, bool) {
	for i, name := range quantityNames {
		if name == s {
			return Quantity(i), true
		}
	}
	return 0, false
}

// Valid reports whether q is a known ordinal.
func (q Quantity) Valid() bool { return q < NumQuantities }

func (q Quantity) String() string {
	if q.Valid() {
		return quantityNames[q]
	}
	return fmt.Sprintf("Quantity(%d)", uint8(q))
}

// Kind tells the two Value variants apart.
type Kind uint8

const (
	KindString Kind = iota
	KindPlural
)

func (k Kind) String() string {
	if k == KindPlural {
		return "plurals"
	}
	return "string"
}

// Value is a translated resource: either a plain string or a sparse set of
// plural forms. Build values with StringValue and PluralValue.
type Value struct {
	Kind   Kind
	Text   string
	Plural map[Quantity]string
}

// StringValue returns a plain string value.
func StringValue(text string) Value {
	return Value{Kind: KindString, Text: text}
}

// PluralValue returns a plural value. The map is used as-is.
func PluralValue(forms map[Quantity]string) Value {
	if forms == nil {
		forms = map[Quantity]string{}
	}
	return Value{Kind: KindPlural, Plural: forms}
}

// IsPlural reports whether v holds plural forms.
func (v Value) IsPlural() bool { return v.Kind == KindPlural }

// Quantities returns the present plural quantities in ascending ordinal order.
func (v Value) Quantities() []Quantity {
	return slices.Sorted(maps.Keys(v.Plural))
}

// Equal reports whether two values hold the same content. A nil and an
// empty plural map compare equal.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Kind == KindString {
		return v.Text == o.Text
	}
	return maps.Equal(v.Plural, o.Plural)
}

func (v Value) String() string {
	if v.Kind == KindString {
		return fmt.Sprintf("%q", v.Text)
	}
	return fmt.Sprintf("%v", v.Plural)
}
