// Package locale converts Android resource qualifiers (values-XX directory
// suffixes) into the canonical locale tags stored in string pack files.
//
// Canonical tags come in four shapes, matching the fixed 7-byte slot of the
// pack locale directory:
//
//	xx        language only              (2 bytes)
//	xx-YY     language and region        (5 bytes)
//	xx-NNN    language and UN M.49 area  (6 bytes, one zero of padding)
//	xx-Zzzz   language and script        (7 bytes)
//
// A reader infers the length from the padding. strpack reads 2 when byte 2
// is zero, 5 when byte 5 is zero, 6 when byte 6 is zero and 7 otherwise.
//
// Known incompatibility: the Android runtime reader only knows lengths 2, 5
// and 7, so it reads an xx-NNN tag as "es-419\x00" and never matches it
// against the device locale. Projects shipping to that reader should list
// b+xx+NNN qualifiers under languages_to_drop in .strpack.yaml.
package locale

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrMalformedTag is returned for qualifiers and tags that do not match any
// supported shape.
var ErrMalformedTag = errors.New("malformed locale tag")

// SlotSize is the number of bytes a tag occupies in the pack locale directory.
const SlotSize = 7

var (
	reLanguage       = regexp.MustCompile(`^[a-z]{2}$`)
	reLanguageRegion = regexp.MustCompile(`^[a-z]{2}-r[A-Z]{2}$`)
	reBCP47Script    = regexp.MustCompile(`^b\+[a-z]{2}\+[A-Z][a-z]{3}$`)
	reBCP47Area      = regexp.MustCompile(`^b\+[a-z]{2}\+[0-9]{3}$`)

	reCanonical = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2}|-[A-Z][a-z]{3}|-[0-9]{3})?$`)
)

// Normalize converts an Android resource qualifier into a canonical tag.
//
//	"en"       -> "en"
//	"fr-rCA"   -> "fr-CA"
//	"b+sr+Latn" -> "sr-Latn"
//	"b+es+419" -> "es-419"
func Normalize(qualifier string) (string, error) {
	switch {
	case reLanguage.MatchString(qualifier):
		return qualifier, nil
	case reLanguageRegion.MatchString(qualifier):
		return qualifier[:2] + "-" + qualifier[4:], nil
	case reBCP47Script.MatchString(qualifier), reBCP47Area.MatchString(qualifier):
		return qualifier[2:4] + "-" + qualifier[5:], nil
	}
	return "", fmt.Errorf("%w: %q", ErrMalformedTag, qualifier)
}

// Validate reports whether tag is already in canonical form.
func Validate(tag string) error {
	if !reCanonical.MatchString(tag) {
		return fmt.Errorf("%w: %q", ErrMalformedTag, tag)
	}
	return nil
}

// FromPath extracts the locale from a resource file path such as
// "res/values-pt-rBR/strings.xml".
func FromPath(path string) (string, error) {
	dir := filepath.Base(filepath.Dir(path))
	qualifier, ok := strings.CutPrefix(dir, "values-")
	if !ok || qualifier == "" {
		return "", fmt.Errorf("%s: no values-XX directory in path", path)
	}
	tag, err := Normalize(qualifier)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return tag, nil
}

// QualifierFromPath returns the raw qualifier of the values-XX directory that
// holds path, without normalizing it.
func QualifierFromPath(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	return strings.TrimPrefix(dir, "values-")
}

// IsLanguageQualifier reports whether an Android qualifier names a language
// (as opposed to e.g. "land" or "night").
func IsLanguageQualifier(q string) bool {
	if len(q) == 2 {
		return true
	}
	if len(q) == 6 && q[2:4] == "-r" {
		return true
	}
	return strings.HasPrefix(q, "b+") && !strings.Contains(q, "-")
}

// ToQualifier converts a canonical tag back into an Android qualifier.
//
//	"pt-BR"  -> "pt-rBR"
//	"es-419" -> "b+es+419"
func ToQualifier(tag string) string {
	lang, rest, ok := strings.Cut(tag, "-")
	if !ok {
		return tag
	}
	if len(rest) == 2 {
		return lang + "-r" + rest
	}
	return "b+" + lang + "+" + rest
}
