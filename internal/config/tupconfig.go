package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// TupConfig is the parsed contents of a tup.config file: an ordered set
// of CONFIG_<NAME>=value lines, matching the original tup build's
// variant configuration format. Keys are compared case-sensitively, as
// the original build does.
type TupConfig struct {
	values map[string]string
}

// ParseTupConfig reads KEY=value lines from r. Blank lines and lines
// starting with '#' are skipped; a line without '=' is an error.
func ParseTupConfig(r io.Reader) (*TupConfig, error) {
	c := &TupConfig{values: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("config line %d: missing '=': %q", lineNo, line)
		}
		c.values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse tup.config: %w", err)
	}
	return c, nil
}

// LoadTupConfig reads a tup.config file from disk. A missing file yields
// an empty config, not an error, since a project need not define one.
func LoadTupConfig(path string) (*TupConfig, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &TupConfig{values: make(map[string]string)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tup.config: %w", err)
	}
	defer f.Close()
	return ParseTupConfig(f)
}

// Get returns a single key's value.
func (c *TupConfig) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns every key, sorted, for deterministic iteration (CLI
// display, golden tests).
func (c *TupConfig) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WithOverlay returns a new TupConfig with overlay's keys taking
// precedence over c's - the variant CONFIG_<NAME> layering described in
// SPEC_FULL.md 3.3: a variant's own tup.config is parsed and overlaid on
// the root project's.
func (c *TupConfig) WithOverlay(overlay *TupConfig) *TupConfig {
	merged := &TupConfig{values: make(map[string]string, len(c.values)+len(overlay.values))}
	for k, v := range c.values {
		merged.values[k] = v
	}
	for k, v := range overlay.values {
		merged.values[k] = v
	}
	return merged
}
