// Package config loads optional on-disk defaults so a front end doesn't
// have to repeat the same flags on every invocation. Nothing in the core
// packages requires a config file to exist; render and maintenance
// entrypoints take these values as ordinary parameters and config is only
// a convenience for filling them in.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kalscium/oatsgo/errs"
)

// Defaults holds the values a front end would otherwise pass as flags.
type Defaults struct {
	MediaRoot                    string  `yaml:"media_root"`
	TZOffsetMinutes              int     `yaml:"tz_offset_minutes"`
	ImportBloomFalsePositiveRate float64 `yaml:"import_bloom_false_positive_rate"`
	IOBufferBytes                int     `yaml:"io_buffer_bytes"`
}

// defaultIOBufferBytes matches bufio's own default, used when a loaded
// config leaves IOBufferBytes unset.
const defaultIOBufferBytes = 4096

// defaultImportBloomFPRate is the false-positive rate Import uses when no
// config overrides it.
const defaultImportBloomFPRate = 0.01

// Default returns the built-in defaults used when no config file is present.
func Default() Defaults {
	return Defaults{
		IOBufferBytes:                defaultIOBufferBytes,
		ImportBloomFalsePositiveRate: defaultImportBloomFPRate,
	}
}

// Load reads and parses a YAML config file at path, filling in any zero
// field with its built-in default.
func Load(path string) (Defaults, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), fmt.Errorf("%w: %s", errs.ErrNotFound, path)
		}
		return Default(), fmt.Errorf("%w: %v", errs.ErrIOError, err)
	}

	d := Default()
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Default(), fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
	}
	if d.IOBufferBytes == 0 {
		d.IOBufferBytes = defaultIOBufferBytes
	}
	if d.ImportBloomFalsePositiveRate == 0 {
		d.ImportBloomFalsePositiveRate = defaultImportBloomFPRate
	}
	return d, nil
}
