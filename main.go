// strpack: compiles Android string resources into string pack files.
package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/strpack/android"
	"github.com/minios-linux/strpack/config"
	"github.com/minios-linux/strpack/diag"
	"github.com/minios-linux/strpack/i18n"
	"github.com/minios-linux/strpack/ids"
	"github.com/minios-linux/strpack/lockfile"
	"github.com/minios-linux/strpack/packer"
	"github.com/minios-linux/strpack/stringpack"
	"github.com/minios-linux/strpack/translation"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "strpack"})

func logDebug(format string, args ...any) {
	logger.Debugf(format, args...)
}

func logInfo(format string, args ...any) {
	logger.Infof(format, args...)
}

func logSuccess(format string, args ...any) {
	logger.With("status", "ok").Infof(format, args...)
}

func logWarning(format string, args ...any) {
	logger.Warnf(format, args...)
}

func logError(format string, args ...any) {
	logger.Errorf(format, args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir string
	verbose bool
	lang    string
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "strpack",
		Short: i18n.T("Compile Android string resources into string pack files"),
		Long: `strpack compiles translated Android strings.xml files into compact binary
string packs that an app loads at runtime instead of shipping every
translation inside resources.arsc.

Commands:
  pack      Build every pack file described by .strpack.yaml
  repack    Remove unused resources from an existing pack
  inspect   Show the header and per-locale counts of a pack
  dump      Print the content of a pack as YAML
  unpack    Write a pack back out as values-XX/strings.xml files`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(log.DebugLevel)
			}
			if lang != "" && i18n.Language() == "" {
				logDebug("No message catalog for %q, using English", lang)
			}
		},
	}

	// Global persistent flags, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", i18n.T("Project root directory"))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, i18n.T("Print diagnostics and debug output"))
	root.PersistentFlags().StringVar(&lang, "lang", "", i18n.T("Language of strpack's own messages (default: $STRPACK_LANG, then $LANG)"))

	root.AddCommand(
		newPackCmd(),
		newRepackCmd(),
		newInspectCmd(),
		newDumpCmd(),
		newUnpackCmd(),
		newVersionCmd(),
	)

	return root
}

// messageLanguage pulls --lang out of args before the commands are built, so
// help text is translated too. Every other flag is left to cobra.
func messageLanguage(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		if v, ok := strings.CutPrefix(arg, "--lang="); ok {
			return v
		}
		if arg == "--lang" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func main() {
	i18n.Init(messageLanguage(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logError("%v", err)
		stop()
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("strpack version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// pack (build every pack file of the project)
// ---------------------------------------------------------------------------

type packArgs struct {
	workers int
	force   bool
	noLock  bool
	dryRun  bool
}

// bindPackFlags registers the pack flags. Flags left unset keep the values
// from .strpack.yaml.
func bindPackFlags(fs *pflag.FlagSet, a *packArgs) {
	fs.IntVarP(&a.workers, "workers", "j", 0, i18n.T("Packs built in parallel (default: workers from config, else one per CPU)"))
	fs.BoolVar(&a.force, "force", false, i18n.T("Rebuild packs even when their inputs did not change"))
	fs.BoolVar(&a.noLock, "no-lock", false, i18n.T("Do not read or write strpack.lock"))
	fs.BoolVar(&a.dryRun, "dry-run", false, i18n.T("Show the pack plan without building anything"))
}

// applyPackFlags merges explicitly set flags over the config values.
func applyPackFlags(fs *pflag.FlagSet, a packArgs, cfg *config.File) {
	if fs.Changed("workers") {
		cfg.Workers = a.workers
	}
	if a.noLock {
		off := false
		cfg.Lock = &off
	}
}

func newPackCmd() *cobra.Command {
	var a packArgs

	cmd := &cobra.Command{
		Use:   "pack",
		Short: i18n.T("Build every pack file described by .strpack.yaml"),
		Long: `Read the packable strings.xml files of every resources directory listed
in .strpack.yaml, group them by pack id and write one pack file per id
into the assets directory.

Packs whose inputs did not change since the last run are skipped unless
--force is given; strpack.lock next to .strpack.yaml records the inputs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applyPackFlags(cmd.Flags(), a, cfg)
			return runPack(cmd.Context(), cfg, a)
		},
	}
	bindPackFlags(cmd.Flags(), &a)

	return cmd
}

func loadConfig() (*config.File, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf(i18n.T("no %s found in %s"), config.FileName, rootDir)
	}
	return cfg, nil
}

func runPack(ctx context.Context, cfg *config.File, a packArgs) error {
	files, err := packer.Discover(cfg)
	if err != nil {
		return err
	}
	jobs := packer.Plan(cfg, files)
	if len(jobs) == 0 {
		logWarning("%s", i18n.T("Nothing to pack: no strings.xml matched languages_to_pack"))
		return nil
	}
	logInfo(i18n.N("Packing %d pack id from %d files", "Packing %d pack ids from %d files", len(jobs)), len(jobs), len(files))

	if a.dryRun {
		for _, job := range jobs {
			fmt.Printf("%s -> %s\n", job.PackID, job.Dest)
			for _, in := range job.Inputs {
				fmt.Printf("  %s\n", in)
			}
		}
		return nil
	}

	idPath, kind := cfg.IDSource()
	table, err := ids.Load(idPath, kind)
	if err != nil {
		return err
	}
	logDebug("Loaded %d ids from %s", table.Len(), idPath)

	nullify, err := cfg.NullifySet()
	if err != nil {
		return err
	}

	opts := packer.Options{
		Resolver: table,
		Exclude:  cfg.PluralPredicate(),
		Nullify:  nullify,
		Workers:  cfg.Workers,
		Force:    a.force,
		OnResult: reportResult,
	}

	var lock *lockfile.LockFile
	if cfg.LockEnabled() {
		lock, err = lockfile.Load(cfg.Root())
		if err != nil {
			return err
		}
		opts.Lock = lock
		opts.Fingerprint, err = fingerprint(cfg, idPath)
		if err != nil {
			return err
		}
	}

	results := packer.Run(ctx, jobs, opts)

	if lock != nil {
		current := make([]string, len(jobs))
		for i, job := range jobs {
			current[i] = job.PackID
		}
		lock.Clean(current)
		if err := lock.Save(); err != nil {
			logWarning(i18n.T("Could not save lock file: %v"), err)
		}
		logDebug("%s: %s", lock.Path(), lock.Summary())
	}

	built, skipped := 0, 0
	for _, r := range results {
		switch {
		case r.Err != nil:
		case r.Skipped:
			skipped++
		default:
			built++
		}
	}
	failed := packer.Failed(results)
	logInfo(i18n.T("Built %d, up to date %d, failed %d"), built, skipped, len(failed))
	if len(failed) > 0 {
		return fmt.Errorf(i18n.N("%d pack failed", "%d packs failed", len(failed)), len(failed))
	}
	return nil
}

// reportResult logs one finished job. It runs on worker goroutines; the
// logger serializes writes.
func reportResult(r packer.Result) {
	if verbose {
		for _, msg := range r.Diagnostics {
			logWarning("%s: %s", r.PackID, msg)
		}
	}
	switch {
	case r.Err != nil:
		logError("%s: %v", r.PackID, r.Err)
	case r.Skipped:
		logDebug(i18n.T("%s: up to date"), r.PackID)
	default:
		logSuccess("%s: %s (%d bytes, %s, %s)", r.PackID, r.Dest, r.Size, r.Encoding,
			strings.Join(r.Locales, " "))
		if n := len(r.Diagnostics); n > 0 && !verbose {
			logWarning(i18n.N("%s: %d resource skipped (use --verbose to list)",
				"%s: %d resources skipped (use --verbose to list)", n), r.PackID, n)
		}
	}
}

// fingerprint collects the inputs every pack depends on besides its own
// strings.xml files: the config, the id source and the nullify list.
func fingerprint(cfg *config.File, idPath string) (map[string]string, error) {
	files := map[string]string{
		"@config": filepath.Join(cfg.Root(), config.FileName),
		"@ids":    idPath,
	}
	if cfg.NullifiedResources != "" {
		files["@nullified"] = cfg.Abs(cfg.NullifiedResources)
	}
	sums := make(map[string]string, len(files))
	for key, path := range files {
		sum, err := lockfile.HashFile(path)
		if err != nil {
			return nil, err
		}
		sums[key] = sum
	}
	return sums, nil
}

// ---------------------------------------------------------------------------
// Shared id flags
// ---------------------------------------------------------------------------

type idArgs struct {
	path string
	kind string
}

func bindIDFlags(fs *pflag.FlagSet, a *idArgs) {
	fs.StringVar(&a.path, "ids", "", i18n.T("Id source file (aapt2 stable ids or generated pack ids class)"))
	fs.StringVar(&a.kind, "ids-kind", string(ids.KindStableIDs), i18n.T("Id source format: stable or class"))
}

func (a idArgs) load() (*ids.Table, error) {
	if a.path == "" {
		return nil, errors.New(i18n.T("--ids is required"))
	}
	return ids.Load(a.path, ids.Kind(a.kind))
}

// ---------------------------------------------------------------------------
// repack (drop unused resources from a pack)
// ---------------------------------------------------------------------------

func newRepackCmd() *cobra.Command {
	var (
		idFlags idArgs
		unused  string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "repack PACK",
		Short: i18n.T("Remove unused resources from an existing pack"),
		Long: `Decode PACK, delete every resource listed in the unused-resource file
(one R.type.name per line) from every locale, drop locales left empty and
write the recompiled pack to --output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if unused == "" || output == "" {
				return errors.New(i18n.T("--unused and --output are required"))
			}
			table, err := idFlags.load()
			if err != nil {
				return err
			}
			names, err := stringpack.ReadUnusedNames(unused)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			out, err := stringpack.Repack(data, names, table)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if err := os.WriteFile(output, out, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			logSuccess(i18n.T("Repacked %s: %d -> %d bytes"), output, len(data), len(out))
			return nil
		},
	}
	bindIDFlags(cmd.Flags(), &idFlags)
	cmd.Flags().StringVar(&unused, "unused", "", i18n.T("File listing unused resources"))
	cmd.Flags().StringVarP(&output, "output", "o", "", i18n.T("Output pack file"))

	return cmd
}

// ---------------------------------------------------------------------------
// inspect (header and counts)
// ---------------------------------------------------------------------------

func newInspectCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "inspect PACK",
		Short: i18n.T("Show the header and per-locale counts of a pack"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			s, err := stringpack.Describe(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			out, err := renderStats(args[0], s, asYAML)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, i18n.T("Print the summary as YAML"))

	return cmd
}

// renderStats formats s for the terminal, or as YAML for scripts.
func renderStats(name string, s *stringpack.Stats, asYAML bool) ([]byte, error) {
	if !asYAML {
		return []byte(formatStats(name, s)), nil
	}
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling stats: %w", err)
	}
	return out, nil
}

func formatStats(name string, s *stringpack.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", name)
	fmt.Fprintf(&b, "  encoding:  %s\n", s.Encoding)
	fmt.Fprintf(&b, "  size:      %d bytes (content pool %d)\n", s.Size, s.PoolSize)
	fmt.Fprintf(&b, "  locales:   %d\n", len(s.Locales))
	width := 0
	for _, l := range s.Locales {
		width = max(width, len(l.Tag))
	}
	for _, l := range s.Locales {
		fmt.Fprintf(&b, "    %-*s  %5d strings  %5d plurals  %s\n", width, l.Tag, l.Strings, l.Plurals, nativeName(l.Tag))
	}
	return b.String()
}

// nativeName returns the name of a language in itself, e.g. "español" for
// es-419, or "" for tags CLDR does not know.
func nativeName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	return display.Self.Name(t)
}

// ---------------------------------------------------------------------------
// dump (YAML view of a pack)
// ---------------------------------------------------------------------------

func newDumpCmd() *cobra.Command {
	var idFlags idArgs

	cmd := &cobra.Command{
		Use:   "dump PACK",
		Short: i18n.T("Print the content of a pack as YAML"),
		Long: `Print every locale of PACK as YAML. Resources are keyed by id, or by
name when --ids is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			dict, _, err := stringpack.Decode(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			var table *ids.Table
			if idFlags.path != "" {
				if table, err = idFlags.load(); err != nil {
					return err
				}
			}
			out, err := dumpYAML(dict, table)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}
	bindIDFlags(cmd.Flags(), &idFlags)

	return cmd
}

// dumpYAML renders dict in locale then id order. names may be nil.
func dumpYAML(dict *translation.Dict, names *ids.Table) ([]byte, error) {
	scalar := func(s string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	}

	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, tag := range dict.Locales() {
		entries := dict.Entries(tag)
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, id := range sortedIDs(entries) {
			key := strconv.Itoa(int(id))
			if names != nil {
				if name, ok := names.Name(id); ok {
					key = name
				}
			}
			v := entries[id]
			if !v.IsPlural() {
				m.Content = append(m.Content, scalar(key), scalar(v.Text))
				continue
			}
			forms := &yaml.Node{Kind: yaml.MappingNode}
			for _, q := range v.Quantities() {
				forms.Content = append(forms.Content, scalar(q.String()), scalar(v.Plural[q]))
			}
			m.Content = append(m.Content, scalar(key), forms)
		}
		doc.Content = append(doc.Content, scalar(tag), m)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling dump: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// unpack (pack back to strings.xml)
// ---------------------------------------------------------------------------

func newUnpackCmd() *cobra.Command {
	var (
		idFlags idArgs
		output  string
	)

	cmd := &cobra.Command{
		Use:   "unpack PACK",
		Short: i18n.T("Write a pack back out as values-XX/strings.xml files"),
		Long: `Decode PACK and write one values-XX/strings.xml per locale below --output.
Resource names come from --ids; ids without a name are skipped. Text that
contains literal backslash sequences does not survive the round trip.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return errors.New(i18n.T("--output is required"))
			}
			table, err := idFlags.load()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			dict, _, err := stringpack.Decode(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			written, err := unpackDict(dict, table, output, diag.Func(logWarning))
			if err != nil {
				return err
			}
			for _, path := range written {
				logSuccess("%s", path)
			}
			return nil
		},
	}
	bindIDFlags(cmd.Flags(), &idFlags)
	cmd.Flags().StringVarP(&output, "output", "o", "", i18n.T("Resources directory to write values-XX folders into"))

	return cmd
}

// unpackDict writes one strings.xml per locale of dict below resDir and
// returns the written paths. Ids without a name are reported to sink.
func unpackDict(dict *translation.Dict, names *ids.Table, resDir string, sink diag.Sink) ([]string, error) {
	sink = diag.OrDiscard(sink)
	order := make([]string, translation.NumQuantities)
	for q := range translation.NumQuantities {
		order[q] = translation.Quantity(q).String()
	}

	var written []string
	for _, tag := range dict.Locales() {
		entries := dict.Entries(tag)
		f := android.NewFile()
		f.AddComment(fmt.Sprintf("Unpacked from locale %s", tag))
		for _, id := range sortedIDs(entries) {
			name, ok := names.Name(id)
			if !ok {
				sink.Warnf(i18n.T("%s: no resource name for id %d, skipped"), tag, id)
				continue
			}
			v := entries[id]
			if !v.IsPlural() {
				f.AddString(name, v.Text)
				continue
			}
			forms := make(map[string]string, len(v.Plural))
			for q, text := range v.Plural {
				forms[q.String()] = text
			}
			f.AddPlurals(name, order, forms)
		}
		path := android.StringsXMLPath(resDir, tag)
		if err := f.WriteFile(path); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func sortedIDs(entries map[uint16]translation.Value) []uint16 {
	return slices.Sorted(maps.Keys(entries))
}
