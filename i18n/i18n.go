// Package i18n translates strpack's own command-line messages.
//
// Catalogs are gettext .po files embedded from locales/<lang>/LC_MESSAGES,
// one per language strpack ships. The requested language is matched against
// the embedded set, so "pt_BR.UTF-8" finds a "pt" catalog and a language
// without a catalog falls back to the untranslated English msgids.
//
//	i18n.Init("")  // STRPACK_LANG, then the gettext environment
//	fmt.Println(i18n.N("%d pack failed", "%d packs failed", n))
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

//go:embed all:locales
var locales embed.FS

const (
	domain     = "strpack"
	localesDir = "locales"
)

// LangEnv overrides the gettext environment for strpack only.
const LangEnv = "STRPACK_LANG"

var (
	po   *gotext.Locale
	lang string
)

// Init loads the catalog that best matches lang, or the environment's
// language when lang is empty. It returns the catalog language, or "" when
// messages stay untranslated.
func Init(requested string) string {
	if requested == "" {
		requested = detectLanguage()
	}

	po, lang = nil, ""
	match, ok := matchCatalog(requested, available())
	if !ok {
		return ""
	}
	l := gotext.NewLocaleFSWithPath(match, locales, localesDir)
	l.AddDomain(domain)
	l.SetDomain(domain)
	po, lang = l, match
	return match
}

// Language returns the language loaded by the last Init, or "".
func Language() string { return lang }

// T translates msgid, or returns it unchanged.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N picks the plural form for n from the catalog, or between singular and
// plural by English rules when no catalog is loaded.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// available lists the embedded catalog directories.
func available() []string {
	entries, err := fs.ReadDir(locales, localesDir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out
}

// matchCatalog picks the catalog for a POSIX or BCP 47 language name.
func matchCatalog(requested string, catalogs []string) (string, bool) {
	if len(catalogs) == 0 {
		return "", false
	}
	want, err := language.Parse(strings.ReplaceAll(requested, "_", "-"))
	if err != nil {
		return "", false
	}
	tags := make([]language.Tag, len(catalogs))
	for i, c := range catalogs {
		tags[i] = language.Make(strings.ReplaceAll(c, "_", "-"))
	}
	_, idx, conf := language.NewMatcher(tags).Match(want)
	if conf == language.No {
		return "", false
	}
	return catalogs[idx], true
}

// detectLanguage follows GNU gettext priority (LANGUAGE > LC_ALL >
// LC_MESSAGES > LANG) after LangEnv. The encoding suffix is stripped and C
// or POSIX mean no translation.
func detectLanguage() string {
	for _, env := range []string{LangEnv, "LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		val, _, _ = strings.Cut(val, ".")
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		return val
	}
	return "en"
}
