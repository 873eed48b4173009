// Package config loads .strpack.yaml, the project file that tells strpack
// where the packable strings live, which languages go into which pack file
// and where the pack files are written.
//
// Relative paths in the file are resolved against the directory holding it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/strpack/ids"
	"github.com/minios-linux/strpack/locale"
	"github.com/minios-linux/strpack/translation"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .strpack.yaml structure.
type File struct {
	// Module prefixes pack file names ("<module>_strings_<id>.pack").
	Module string `yaml:"module,omitempty"`
	// ResourcesDirs are the module source directories (e.g. app/src/main).
	// Packable strings are read from <dir>/string-packs/strings.
	ResourcesDirs []string `yaml:"resources_dirs"`
	// LanguagesToPack lists resource qualifiers to pack. ["*"] (the default)
	// packs every language qualifier; an explicit empty list packs nothing.
	LanguagesToPack []string `yaml:"languages_to_pack"`
	// LanguagesToDrop lists qualifiers that are neither packed nor kept.
	LanguagesToDrop []string `yaml:"languages_to_drop,omitempty"`
	// AssetsDir receives the pack files.
	AssetsDir string `yaml:"assets_dir"`
	// PackIDsClass is the generated class listing packed R.string and
	// R.plurals fields. Not compatible with StableIDs.
	PackIDsClass string `yaml:"pack_ids_class,omitempty"`
	// StableIDs is the aapt2 --stable-ids file. Not compatible with
	// PackIDsClass.
	StableIDs string `yaml:"stable_ids,omitempty"`
	// PackIDMapping sends a qualifier to another pack id, e.g. sk -> cs to
	// ship Slovak inside the Czech pack.
	PackIDMapping map[string]string `yaml:"pack_id_mapping,omitempty"`
	// NullifiedResources is a file listing "string.name" / "plurals.name"
	// resources that are never packed.
	NullifiedResources string `yaml:"nullified_resources,omitempty"`
	// PluralRules drop plural quantities known to be unused.
	PluralRules []PluralRule `yaml:"plural_rules,omitempty"`
	// Workers bounds the number of pack ids built at once (0 = one per CPU).
	Workers int `yaml:"workers,omitempty"`
	// Lock enables strpack.lock incremental builds (default true).
	Lock *bool `yaml:"lock,omitempty"`

	root string `yaml:"-"`
	// rules is PluralRules with parsed quantities.
	rules []translation.Rule `yaml:"-"`
}

// PluralRule excludes plural quantities. A rule applies to plurals whose
// preceding comment contains Comment (any plural when empty) in Locales
// (every locale when empty).
type PluralRule struct {
	Locales []string `yaml:"locales,omitempty"`
	Comment string   `yaml:"comment,omitempty"`
	Drop    []string `yaml:"drop"`
}

// LanguageHandling says what happens to the strings of a resource qualifier.
type LanguageHandling int

const (
	// KeepOriginal leaves the strings in the app, e.g. values-land.
	KeepOriginal LanguageHandling = iota
	// Pack moves the strings into a pack file.
	Pack
	// Drop removes the strings without packing them.
	Drop
)

func (h LanguageHandling) String() string {
	switch h {
	case Pack:
		return "pack"
	case Drop:
		return "drop"
	}
	return "keep"
}

// AllLanguages is the LanguagesToPack wildcard.
const AllLanguages = "*"

// PackableSubdir is where packable strings.xml files live below each
// resources directory.
var PackableSubdir = filepath.Join("string-packs", "strings")

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName is the default config file name.
const FileName = ".strpack.yaml"

// Load loads and validates .strpack.yaml from the given directory.
// Returns nil if no .strpack.yaml exists.
func Load(rootDir string) (*File, error) {
	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	f, err := Parse(data, rootDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates config data. rootDir anchors relative paths.
func Parse(data []byte, rootDir string) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	f.root = rootDir

	// Defaults
	if f.LanguagesToPack == nil {
		f.LanguagesToPack = []string{AllLanguages}
	}

	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	if len(f.ResourcesDirs) == 0 {
		return fmt.Errorf("resources_dirs: at least one directory is required")
	}
	if f.AssetsDir == "" {
		return fmt.Errorf("assets_dir is required")
	}
	if (f.PackIDsClass == "") == (f.StableIDs == "") {
		return fmt.Errorf("exactly one of pack_ids_class and stable_ids must be set")
	}
	if f.Workers < 0 {
		return fmt.Errorf("workers: must not be negative, got %d", f.Workers)
	}
	for q, id := range f.PackIDMapping {
		if id == "" || strings.ContainsAny(id, `/\`) {
			return fmt.Errorf("pack_id_mapping[%s]: invalid pack id %q", q, id)
		}
	}

	f.rules = f.rules[:0]
	for i, r := range f.PluralRules {
		if len(r.Drop) == 0 {
			return fmt.Errorf("plural_rules[%d]: drop is empty", i)
		}
		for _, tag := range r.Locales {
			if err := locale.Validate(tag); err != nil {
				return fmt.Errorf("plural_rules[%d]: %w", i, err)
			}
		}
		rule := translation.Rule{Locales: r.Locales, Comment: r.Comment}
		for _, name := range r.Drop {
			q, ok := translation.ParseQuantity(name)
			if !ok {
				return fmt.Errorf("plural_rules[%d]: unknown quantity %q (valid: zero, one, two, few, many, other)", i, name)
			}
			rule.Drop = append(rule.Drop, q)
		}
		f.rules = append(f.rules, rule)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Root returns the directory relative paths are resolved against.
func (f *File) Root() string { return f.root }

// Abs resolves a config path against Root.
func (f *File) Abs(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(f.root, path)
}

// PackableDirs returns the directories holding packable strings.xml files.
func (f *File) PackableDirs() []string {
	dirs := make([]string, 0, len(f.ResourcesDirs))
	for _, d := range f.ResourcesDirs {
		dirs = append(dirs, filepath.Join(f.Abs(d), PackableSubdir))
	}
	return dirs
}

// HandlingCase decides what happens to the strings of a resource qualifier
// ("ru", "zh-rTW", "b+es+419", "land", ...).
func (f *File) HandlingCase(qualifier string) LanguageHandling {
	for _, q := range f.LanguagesToDrop {
		if q == qualifier {
			return Drop
		}
	}
	if len(f.LanguagesToPack) == 1 && f.LanguagesToPack[0] == AllLanguages {
		if locale.IsLanguageQualifier(qualifier) {
			return Pack
		}
		return KeepOriginal
	}
	for _, q := range f.LanguagesToPack {
		if q == qualifier {
			return Pack
		}
	}
	return KeepOriginal
}

// PackID returns the pack id a qualifier is packed into.
func (f *File) PackID(qualifier string) string {
	if id, ok := f.PackIDMapping[qualifier]; ok {
		return id
	}
	return qualifier
}

// IDSource returns the absolute path and kind of the id source file.
func (f *File) IDSource() (string, ids.Kind) {
	if f.PackIDsClass != "" {
		return f.Abs(f.PackIDsClass), ids.KindPackIDsClass
	}
	return f.Abs(f.StableIDs), ids.KindStableIDs
}

// PluralPredicate returns the plural exclusion predicate built from
// PluralRules.
func (f *File) PluralPredicate() translation.PluralPredicate {
	if len(f.rules) == 0 {
		return translation.KeepAll
	}
	return translation.Rules(f.rules)
}

// NullifySet loads the nullified resources file, if any.
func (f *File) NullifySet() (translation.NullifySet, error) {
	if f.NullifiedResources == "" {
		return translation.NewNullifySet(), nil
	}
	return translation.LoadNullifySet(f.Abs(f.NullifiedResources))
}

// LockEnabled reports whether strpack.lock is used.
func (f *File) LockEnabled() bool {
	return f.Lock == nil || *f.Lock
}
