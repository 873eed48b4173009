// Package android implements reading and writing of Android strings.xml
// resource files, as consumed by the string pack reader and produced by
// "strpack unpack".
//
// Supported resource types:
//   - <string>: simple key/value string
//   - <string-array>: ordered list of strings (parsed, never packed)
//   - <plurals>: quantity-keyed plural forms (zero/one/two/few/many/other)
//
// Comments directly under <resources> are kept as entries in document order,
// because a comment in front of a <plurals> block carries metadata for the
// packer. Text is stored raw (Android backslash escapes intact); use Unescape
// to obtain the value the application would see.
//
// Child elements inside a value are flattened to their text content, the way
// aapt compiles a string without style spans: <xliff:g> placeholders keep
// their inner text and styling tags such as <b> or <i> are dropped. String
// packs carry plain text only.
//
// Marshal writes <string> and <plurals> entries and comments. It never
// writes <string-array>, which packs do not hold.
package android

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minios-linux/strpack/locale"
)

// ---------------------------------------------------------------------------
// Data model
// ---------------------------------------------------------------------------

// EntryKind identifies the type of a resource entry.
type EntryKind int

const (
	// KindString is a plain <string> resource.
	KindString EntryKind = iota
	// KindStringArray is a <string-array> resource.
	KindStringArray
	// KindPlurals is a <plurals> resource.
	KindPlurals
	// KindComment is an XML comment (not a resource).
	KindComment
)

// String returns the XML element name for the kind.
func (k EntryKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindStringArray:
		return "string-array"
	case KindPlurals:
		return "plurals"
	case KindComment:
		return "comment"
	}
	return fmt.Sprintf("EntryKind(%d)", int(k))
}

// Entry is a single item of a strings.xml file.
type Entry struct {
	Kind EntryKind

	// Name is the resource name (attribute name="…"). Empty for comments.
	Name string
	// Translatable reflects the translatable="…" attribute. Defaults to true.
	Translatable bool

	// Value is the raw text of a <string>.
	Value string

	// Items holds the raw <item> values of a <string-array> in document order.
	Items []string

	// Plurals maps quantity keyword to raw text.
	Plurals map[string]string
	// PluralOrder preserves the order of quantity keywords as they appear in the file.
	PluralOrder []string

	// Comment is the comment text (without <!-- -->), trimmed.
	Comment string
}

// File represents a parsed Android strings.xml file.
type File struct {
	// Entries in document order (resources + comments).
	Entries []*Entry
}

// NewFile returns an empty resource file.
func NewFile() *File {
	return &File{}
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses an Android strings.xml file. A missing file is
// reported with an error matching fs.ErrNotExist.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// Parse parses Android strings.xml data.
func Parse(data []byte) (*File, error) {
	f := NewFile()
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	inResources := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "resources" {
				inResources = true
				continue
			}
			if !inResources {
				continue
			}

			var e *Entry
			switch t.Name.Local {
			case "string":
				e, err = parseStringElement(dec, t)
			case "string-array":
				e, err = parseStringArrayElement(dec, t)
			case "plurals":
				e, err = parsePluralsElement(dec, t)
			default:
				err = dec.Skip()
			}
			if err != nil {
				return nil, err
			}
			if e != nil {
				f.Entries = append(f.Entries, e)
			}

		case xml.Comment:
			if inResources {
				f.Entries = append(f.Entries, &Entry{
					Kind:    KindComment,
					Comment: strings.TrimSpace(string(t)),
				})
			}

		case xml.EndElement:
			if t.Name.Local == "resources" {
				inResources = false
			}
		}
	}

	return f, nil
}

func parseAttrs(elem xml.StartElement) (name string, translatable bool) {
	translatable = true
	for _, attr := range elem.Attr {
		switch attr.Name.Local {
		case "name":
			name = attr.Value
		case "translatable":
			if strings.EqualFold(attr.Value, "false") {
				translatable = false
			}
		}
	}
	return
}

func parseStringElement(dec *xml.Decoder, elem xml.StartElement) (*Entry, error) {
	name, translatable := parseAttrs(elem)
	var inner strings.Builder
	if err := readElementContent(dec, &inner); err != nil {
		return nil, fmt.Errorf("reading <string name=%q>: %w", name, err)
	}
	return &Entry{
		Kind:         KindString,
		Name:         name,
		Translatable: translatable,
		Value:        inner.String(),
	}, nil
}

func parseStringArrayElement(dec *xml.Decoder, elem xml.StartElement) (*Entry, error) {
	name, translatable := parseAttrs(elem)
	e := &Entry{
		Kind:         KindStringArray,
		Name:         name,
		Translatable: translatable,
	}

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading <string-array name=%q>: %w", name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "item" && depth == 1 {
				var inner strings.Builder
				if err := readElementContent(dec, &inner); err != nil {
					return nil, fmt.Errorf("reading <item> in <string-array name=%q>: %w", name, err)
				}
				e.Items = append(e.Items, inner.String())
			} else {
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}
	return e, nil
}

func parsePluralsElement(dec *xml.Decoder, elem xml.StartElement) (*Entry, error) {
	name, translatable := parseAttrs(elem)
	e := &Entry{
		Kind:         KindPlurals,
		Name:         name,
		Translatable: translatable,
		Plurals:      make(map[string]string),
	}

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading <plurals name=%q>: %w", name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "item" && depth == 1 {
				var quantity string
				for _, attr := range t.Attr {
					if attr.Name.Local == "quantity" {
						quantity = attr.Value
						break
					}
				}
				var inner strings.Builder
				if err := readElementContent(dec, &inner); err != nil {
					return nil, fmt.Errorf("reading <item quantity=%q> in <plurals name=%q>: %w", quantity, name, err)
				}
				if quantity != "" {
					if _, seen := e.Plurals[quantity]; !seen {
						e.PluralOrder = append(e.PluralOrder, quantity)
					}
					e.Plurals[quantity] = inner.String()
				}
			} else {
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}
	return e, nil
}

// readElementContent collects the character data of an element up to its
// close tag. Child element tags are dropped and their text kept.
func readElementContent(dec *xml.Decoder, b *strings.Builder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Building
// ---------------------------------------------------------------------------

// AddComment appends a comment entry.
func (f *File) AddComment(text string) {
	f.Entries = append(f.Entries, &Entry{Kind: KindComment, Comment: text})
}

// AddString appends a <string> entry with an unescaped value.
func (f *File) AddString(name, value string) {
	f.Entries = append(f.Entries, &Entry{Kind: KindString, Name: name, Translatable: true, Value: Escape(value)})
}

// AddPlurals appends a <plurals> entry. order lists the quantity keywords in
// output order; forms holds unescaped values.
func (f *File) AddPlurals(name string, order []string, forms map[string]string) {
	e := &Entry{
		Kind:         KindPlurals,
		Name:         name,
		Translatable: true,
		Plurals:      make(map[string]string, len(forms)),
	}
	for _, q := range order {
		v, ok := forms[q]
		if !ok {
			continue
		}
		e.Plurals[q] = Escape(v)
		e.PluralOrder = append(e.PluralOrder, q)
	}
	f.Entries = append(f.Entries, e)
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// WriteFile writes the file to disk, creating parent directories.
func (f *File) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, f.Marshal(), 0644)
}

// Marshal produces the XML output in Android strings.xml format.
func (f *File) Marshal() []byte {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	b.WriteString("<resources>\n")

	for _, e := range f.Entries {
		switch e.Kind {
		case KindComment:
			fmt.Fprintf(&b, "    <!-- %s -->\n", strings.ReplaceAll(e.Comment, "--", "- -"))

		case KindString:
			fmt.Fprintf(&b, "    <string %s>%s</string>\n", attrs(e), xmlText(e.Value))

		case KindPlurals:
			fmt.Fprintf(&b, "    <plurals %s>\n", attrs(e))
			for _, q := range e.PluralOrder {
				fmt.Fprintf(&b, "        <item quantity=\"%s\">%s</item>\n", xmlAttr(q), xmlText(e.Plurals[q]))
			}
			b.WriteString("    </plurals>\n")
		}
	}

	b.WriteString("</resources>\n")
	return []byte(b.String())
}

func attrs(e *Entry) string {
	s := fmt.Sprintf(`name="%s"`, xmlAttr(e.Name))
	if !e.Translatable {
		s += ` translatable="false"`
	}
	return s
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

// xmlText escapes raw resource text for element content. Values are plain
// text: a '<' is always written as &lt;.
func xmlText(s string) string {
	return textEscaper.Replace(s)
}

func xmlAttr(s string) string {
	return attrEscaper.Replace(s)
}

// ---------------------------------------------------------------------------
// Escaping
// ---------------------------------------------------------------------------

var (
	unescaper = strings.NewReplacer(`\'`, `'`, `\"`, `"`, `\n`, "\n")
	escaper   = strings.NewReplacer(`'`, `\'`, `"`, `\"`, "\n", `\n`)
)

// Unescape converts raw resource text to its runtime value. Text wrapped in
// a pair of double quotes loses exactly that pair and nothing else;
// otherwise only \', \" and \n are unescaped.
func Unescape(raw string) string {
	if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		return raw[1 : len(raw)-1]
	}
	return unescaper.Replace(raw)
}

// Escape is the inverse of Unescape for text without literal backslash
// sequences.
func Escape(s string) string {
	return escaper.Replace(s)
}

// ---------------------------------------------------------------------------
// res/ directory layout
// ---------------------------------------------------------------------------

// ValuesDirName returns the values directory for a canonical locale tag
// (e.g., "pt-BR" -> "values-pt-rBR", "es-419" -> "values-b+es+419").
func ValuesDirName(tag string) string {
	return "values-" + locale.ToQualifier(tag)
}

// StringsXMLPath returns the path to strings.xml for a locale under resDir.
func StringsXMLPath(resDir, tag string) string {
	return filepath.Join(resDir, ValuesDirName(tag), "strings.xml")
}
