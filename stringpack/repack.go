package stringpack

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/minios-linux/strpack/ids"
	"github.com/minios-linux/strpack/translation"
)

// Repack removes unused resources from an already built pack without going
// back to the translation sources. Names the resolver does not know are
// ignored; locales left empty are dropped.
func Repack(data []byte, unused []string, resolver ids.Resolver) ([]byte, error) {
	dict, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	RemoveNames(dict, unused, resolver)
	p, err := Compile(dict)
	if err != nil {
		return nil, err
	}
	return p.Bytes(), nil
}

// RemoveNames resolves names and deletes their ids from every locale of
// dict. It returns the number of deleted entries.
func RemoveNames(dict *translation.Dict, names []string, resolver ids.Resolver) int {
	var unused []uint16
	for _, name := range names {
		if id, ok := resolver.ID(name); ok {
			unused = append(unused, id)
		}
	}
	return dict.Remove(unused)
}

// ReadUnusedNames reads an unused-resource list, one "R.type.name" per
// line. Only the part after the last '.' is kept.
func ReadUnusedNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		names = append(names, line[strings.LastIndexByte(line, '.')+1:])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return names, nil
}
