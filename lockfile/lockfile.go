// Package lockfile implements strpack.lock, a lock file that tracks MD5
// checksums of every input that went into each pack file. A pack id whose
// inputs are unchanged since the last run does not need to be rebuilt.
//
// The lock file is stored alongside .strpack.yaml as strpack.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "strpack.lock"

// Version is the lock file format version.
const Version = 1

// Missing is the checksum recorded for an input file that does not exist.
const Missing = "missing"

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the strpack.lock file structure. It is safe for
// concurrent use by pack workers.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // pack id -> input key -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// New returns an empty lock file that saves to dir.
func New(dir string) *LockFile {
	return &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      filepath.Join(dir, LockFileName),
	}
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	lf := New(dir)

	data, err := os.ReadFile(lf.path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", lf.path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", lf.path, err)
	}
	if lf.Version != Version {
		// Written by an incompatible version: start over.
		return New(dir), nil
	}
	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of data.
func Hash(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

// InputKey builds the lock file key for an input file path, e.g.
// "app/src/main/string-packs/strings/values-ru/strings.xml".
func InputKey(filePath string) string {
	return filepath.ToSlash(filePath)
}

// HashFile returns the checksum of a file's content, or Missing when it does
// not exist.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Missing, nil
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return Hash(data), nil
}

// IsChanged reports whether the inputs of a pack id differ from the ones
// recorded by the last Update: a key was added, removed or changed.
func (lf *LockFile) IsChanged(packID string, inputs map[string]string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	recorded, ok := lf.Checksums[packID]
	if !ok {
		return true
	}
	return !maps.Equal(recorded, inputs)
}

// Update records the inputs of a pack id after a successful build,
// replacing whatever was recorded before.
func (lf *LockFile) Update(packID string, inputs map[string]string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	lf.Checksums[packID] = maps.Clone(inputs)
}

// Remove drops everything recorded for a pack id. Used when a build fails so
// the next run retries it.
func (lf *LockFile) Remove(packID string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Checksums, packID)
}

// Clean removes pack ids that are no longer produced. This prevents stale
// entries from accumulating.
func (lf *LockFile) Clean(current []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	for id := range lf.Checksums {
		if !slices.Contains(current, id) {
			delete(lf.Checksums, id)
		}
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of pack ids and total inputs in the lock file.
func (lf *LockFile) Stats() (packs, inputs int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	packs = len(lf.Checksums)
	for _, m := range lf.Checksums {
		inputs += len(m)
	}
	return
}

// PackIDs returns the sorted list of recorded pack ids.
func (lf *LockFile) PackIDs() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	return slices.Sorted(maps.Keys(lf.Checksums))
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	packs, inputs := lf.Stats()
	if packs == 0 {
		return "empty"
	}

	var parts []string
	for _, id := range lf.PackIDs() {
		lf.mu.Lock()
		n := len(lf.Checksums[id])
		lf.mu.Unlock()
		parts = append(parts, fmt.Sprintf("%s: %d inputs", id, n))
	}
	return fmt.Sprintf("%d packs, %d inputs (%s)", packs, inputs, strings.Join(parts, ", "))
}
