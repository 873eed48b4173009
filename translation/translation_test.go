package translation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/strpack/diag"
	"github.com/minios-linux/strpack/ids"
)

const resourcesEN = `<?xml version="1.0" encoding="utf-8"?>
<resources>
    <!-- ` + "@" + `generated by move_strings -->
    <!-- min=2 -->
    <plurals name="first_plurals">
        <item quantity="zero">zero plurals</item>
        <item quantity="one">one plural</item>
        <item quantity="other">many plurals</item>
    </plurals>
    <string name="first_string">first string</string>
    <string name="removed_string">gone from the app</string>
    <string-array name="planets">
        <item>Mercury</item>
    </string-array>
</resources>
`

var fakeIDs = ids.Map{"first_plurals": 0, "first_string": 1, "second_string": 2}

func writeResources(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "values-en", "strings.xml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestQuantityOrdinalsAreStable(t *testing.T) {
	t.Parallel()

	want := map[string]Quantity{"other": 0, "zero": 1, "one": 2, "two": 3, "few": 4, "many": 5}
	for name, ordinal := range want {
		q, ok := ParseQuantity(name)
		require.True(t, ok, name)
		assert.Equal(t, ordinal, q, name)
		assert.Equal(t, name, q.String())
	}
	_, ok := ParseQuantity("several")
	assert.False(t, ok)
	assert.False(t, Quantity(6).Valid())
}

func TestReaderNotNullified(t *testing.T) {
	t.Parallel()

	path := writeResources(t, resourcesEN)
	var sink diag.Collector
	r := &Reader{Resolver: fakeIDs, Diag: &sink}

	got, err := r.ReadFile("en", path)
	require.NoError(t, err)

	want := map[uint16]Value{
		0: PluralValue(map[Quantity]string{Other: "many plurals", Zero: "zero plurals", One: "one plural"}),
		1: StringValue("first string"),
	}
	assert.Equal(t, want, got)

	msgs := sink.Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "removed_string")
	assert.Contains(t, msgs[1], "planets")
}

func TestReaderNullified(t *testing.T) {
	t.Parallel()

	path := writeResources(t, resourcesEN)

	r := &Reader{Resolver: fakeIDs, Nullify: NewNullifySet("R.string.first_string")}
	got, err := r.ReadFile("en", path)
	require.NoError(t, err)
	assert.Equal(t, map[uint16]Value{
		0: PluralValue(map[Quantity]string{Other: "many plurals", Zero: "zero plurals", One: "one plural"}),
	}, got)

	r.Nullify = NewNullifySet("plurals.first_plurals")
	got, err = r.ReadFile("en", path)
	require.NoError(t, err)
	assert.Equal(t, map[uint16]Value{1: StringValue("first string")}, got)
}

func TestReaderPluralPredicateSeesPrecedingComment(t *testing.T) {
	t.Parallel()

	path := writeResources(t, resourcesEN)

	var seen []string
	r := &Reader{
		Resolver: fakeIDs,
		Exclude: func(locale, comment string, q Quantity) bool {
			seen = append(seen, locale+"|"+comment)
			return q == Zero
		},
	}
	got, err := r.ReadFile("en-GB", path)
	require.NoError(t, err)

	assert.Equal(t, PluralValue(map[Quantity]string{Other: "many plurals", One: "one plural"}), got[0])
	require.NotEmpty(t, seen)
	for _, s := range seen {
		assert.Equal(t, "en-GB|min=2", s)
	}
}

func TestReaderCommentMustImmediatelyPrecede(t *testing.T) {
	t.Parallel()

	path := writeResources(t, `<resources>
    <!-- min=2 -->
    <string name="first_string">x</string>
    <plurals name="first_plurals"><item quantity="one">one</item></plurals>
</resources>`)

	var comments []string
	r := &Reader{Resolver: fakeIDs, Exclude: func(_, comment string, _ Quantity) bool {
		comments = append(comments, comment)
		return false
	}}
	_, err := r.ReadFile("en", path)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, comments)
}

func TestReaderMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	r := &Reader{Resolver: fakeIDs}
	got, err := r.ReadFile("fr", filepath.Join(t.TempDir(), "values-fr", "strings.xml"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReaderUnescapes(t *testing.T) {
	t.Parallel()

	path := writeResources(t, `<resources>
    <string name="first_string">"Don\'t touch"</string>
    <string name="second_string">It\'s a \"test\"\nline</string>
</resources>`)

	got, err := (&Reader{Resolver: fakeIDs}).ReadFile("en", path)
	require.NoError(t, err)
	assert.Equal(t, StringValue(`Don\'t touch`), got[1])
	assert.Equal(t, StringValue("It's a \"test\"\nline"), got[2])
}

func TestReaderMalformedXML(t *testing.T) {
	t.Parallel()

	path := writeResources(t, `<resources><string name="a">x</resources>`)
	_, err := (&Reader{Resolver: fakeIDs}).ReadFile("en", path)
	require.Error(t, err)
}

func TestRules(t *testing.T) {
	t.Parallel()

	pred := Rules([]Rule{
		{Comment: "min=2", Drop: []Quantity{Zero, One}},
		{Locales: []string{"ja"}, Drop: []Quantity{One}},
	})

	assert.True(t, pred("de", "count min=2", One))
	assert.False(t, pred("de", "count min=2", Other))
	assert.False(t, pred("de", "", One))
	assert.True(t, pred("ja", "", One))
	assert.False(t, pred("ja", "", Few))
	assert.False(t, KeepAll("ja", "min=2", One))
}

func TestLoadNullifySet(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nullified.txt")
	require.NoError(t, os.WriteFile(path, []byte("R.string.people\n\nplurals.yes\n"), 0644))

	s, err := LoadNullifySet(path)
	require.NoError(t, err)
	assert.True(t, s.Has("string", "people"))
	assert.True(t, s.Has("plurals", "yes"))
	assert.False(t, s.Has("plurals", "people"))
	assert.Len(t, s, 2)
}

func TestDictMergeLastWriteWins(t *testing.T) {
	t.Parallel()

	d := NewDict()
	d.Add("en", map[uint16]Value{1: StringValue("a"), 2: StringValue("b")})
	d.Add("en", map[uint16]Value{1: StringValue("c")})

	v, ok := d.Get("en", 1)
	require.True(t, ok)
	assert.Equal(t, StringValue("c"), v)

	other := NewDict()
	other.Set("fr", 3, StringValue("d"))
	other.Set("en", 2, PluralValue(map[Quantity]string{One: "e"}))
	d.Merge(other)

	assert.Equal(t, []string{"en", "fr"}, d.Locales())
	v, _ = d.Get("en", 2)
	assert.True(t, v.IsPlural())
}

func TestDictRemove(t *testing.T) {
	t.Parallel()

	d := NewDict()
	d.Add("en-US", map[uint16]Value{
		0:  PluralValue(map[Quantity]string{Other: "many colors", Zero: "zero color", One: "one color"}),
		10: StringValue("first color"),
	})
	d.Add("en-GB", map[uint16]Value{
		0: PluralValue(map[Quantity]string{Other: "many colours"}),
		2: StringValue("first cheque"),
		4: StringValue("first diet"),
	})
	d.Add("fr", map[uint16]Value{2: StringValue("premier chèque")})

	assert.Equal(t, 4, d.Remove([]uint16{0, 1, 2}))

	want := NewDict()
	want.Add("en-US", map[uint16]Value{10: StringValue("first color")})
	want.Add("en-GB", map[uint16]Value{4: StringValue("first diet")})
	assert.True(t, d.Equal(want), "got locales %v", d.Locales())
}

func TestValueEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, PluralValue(nil).Equal(Value{Kind: KindPlural}))
	assert.False(t, StringValue("").Equal(PluralValue(nil)))
	assert.Equal(t, []Quantity{Other, One, Many},
		PluralValue(map[Quantity]string{Many: "m", Other: "o", One: "1"}).Quantities())
}

func TestReaderKeepsPlaceholderText(t *testing.T) {
	t.Parallel()

	path := writeResources(t, `<resources xmlns:xliff="urn:oasis:names:tc:xliff:document:1.2">
    <string name="first_string">Hello <xliff:g id="user" example="Bob">%1$s</xliff:g>!</string>
    <plurals name="first_plurals">
        <item quantity="one"><xliff:g id="count">%d</xliff:g> new <b>message</b></item>
    </plurals>
</resources>`)

	got, err := (&Reader{Resolver: fakeIDs}).ReadFile("en", path)
	require.NoError(t, err)
	assert.Equal(t, StringValue("Hello %1$s!"), got[1])
	assert.Equal(t, PluralValue(map[Quantity]string{One: "%d new message"}), got[0])
}

func TestReaderSkipsUntranslatable(t *testing.T) {
	t.Parallel()

	path := writeResources(t, `<resources>
    <string name="first_string" translatable="false">Brand</string>
    <string name="second_string">Translated</string>
</resources>`)

	var sink diag.Collector
	got, err := (&Reader{Resolver: fakeIDs, Diag: &sink}).ReadFile("en", path)
	require.NoError(t, err)
	assert.Equal(t, map[uint16]Value{2: StringValue("Translated")}, got)

	msgs := sink.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "string.first_string")
}
