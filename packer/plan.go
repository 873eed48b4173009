// Package packer turns the packable strings of a project into pack files:
// it groups strings.xml files by pack id and builds one pack per id on a
// bounded pool of workers.
package packer

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/minios-linux/strpack/config"
	"github.com/minios-linux/strpack/locale"
)

// StringsFileName is the resource file every values-XX directory holds.
const StringsFileName = "strings.xml"

// Job builds one pack file from the strings.xml files of every locale that
// shares its pack id.
type Job struct {
	PackID string
	Inputs []string
	Dest   string
}

// Discover returns every strings.xml below the packable directories of cfg.
// Directories that do not exist are skipped.
func Discover(cfg *config.File) ([]string, error) {
	var files []string
	for _, dir := range cfg.PackableDirs() {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir && errors.Is(err, fs.ErrNotExist) {
					return filepath.SkipDir
				}
				return err
			}
			if !d.IsDir() && d.Name() == StringsFileName {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}
	}
	slices.Sort(files)
	return files, nil
}

// GroupByPackID maps each pack id to its strings.xml files. Files whose
// qualifier is not packed (kept, dropped or not a language) are left out.
func GroupByPackID(cfg *config.File, files []string) map[string][]string {
	groups := make(map[string][]string)
	for _, path := range files {
		qualifier := locale.QualifierFromPath(path)
		if cfg.HandlingCase(qualifier) != config.Pack {
			continue
		}
		id := cfg.PackID(qualifier)
		groups[id] = append(groups[id], path)
	}
	return groups
}

// DestPath returns where the pack for packID is written:
// <assets_dir>/<module>_strings_<packID>.pack, without the module prefix when
// no module is configured.
func DestPath(cfg *config.File, packID string) string {
	prefix := ""
	if cfg.Module != "" {
		prefix = cfg.Module + "_"
	}
	return filepath.Join(cfg.Abs(cfg.AssetsDir), fmt.Sprintf("%sstrings_%s.pack", prefix, packID))
}

// Plan builds the job list for files, sorted by pack id.
func Plan(cfg *config.File, files []string) []Job {
	groups := GroupByPackID(cfg, files)
	jobs := make([]Job, 0, len(groups))
	for _, id := range slices.Sorted(maps.Keys(groups)) {
		inputs := groups[id]
		slices.Sort(inputs)
		jobs = append(jobs, Job{PackID: id, Inputs: inputs, Dest: DestPath(cfg, id)})
	}
	return jobs
}

// writeAtomic replaces path with data so readers never see a partial pack.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
