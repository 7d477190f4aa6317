// Package config loads project-level configuration: the tup.config
// KEY=value file (and its variant-specific CONFIG_<NAME> overlays), plus
// the ancillary .tup/options.yaml file for settings that are not part of
// the variable database (scan debounce, db sync mode). See SPEC_FULL.md
// 3.3.
package config
