package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Options holds the ancillary settings that live outside the variable
// database: how the scanner debounces filesystem events, whether the
// store opens with synchronous writes, and the busy timeout for
// concurrent access. These are not build variables, so they are kept out
// of tup.config and instead live in .tup/options.yaml.
type Options struct {
	ScanDebounce time.Duration `yaml:"scan_debounce"`
	SyncOff      bool          `yaml:"sync_off"`
	BusyTimeout  time.Duration `yaml:"busy_timeout"`
	MaxWorkers   int           `yaml:"max_workers"`
}

// DefaultOptions returns the values a project gets when .tup/options.yaml
// is absent.
func DefaultOptions() Options {
	return Options{
		ScanDebounce: 50 * time.Millisecond,
		SyncOff:      false,
		BusyTimeout:  5 * time.Second,
		MaxWorkers:   4,
	}
}

// LoadOptions reads .tup/options.yaml from path. A missing file yields
// DefaultOptions, not an error.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultOptions(), nil
	}
	if err != nil {
		return Options{}, fmt.Errorf("load options: %w", err)
	}
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("parse options.yaml: %w", err)
	}
	return opts, nil
}
