package stringpack

import "github.com/minios-linux/strpack/translation"

// LocaleStats counts the entries of one locale.
type LocaleStats struct {
	Tag     string `yaml:"tag"`
	Strings int    `yaml:"strings"`
	Plurals int    `yaml:"plurals"`
}

// Stats summarizes a pack file.
type Stats struct {
	Encoding string        `yaml:"encoding"`
	Size     int           `yaml:"size"`
	PoolSize int           `yaml:"pool_size"`
	Locales  []LocaleStats `yaml:"locales"`
}

// Describe decodes data and summarizes it.
func Describe(data []byte) (*Stats, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	dict, enc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	s := &Stats{
		Encoding: enc.String(),
		Size:     len(data),
		PoolSize: len(data) - int(h.ContentPoolOffset),
	}
	for _, tag := range dict.Locales() {
		ls := LocaleStats{Tag: tag}
		for _, v := range dict.Entries(tag) {
			if v.Kind == translation.KindPlural {
				ls.Plurals++
			} else {
				ls.Strings++
			}
		}
		s.Locales = append(s.Locales, ls)
	}
	return s, nil
}
