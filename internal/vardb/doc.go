// Package vardb implements SPEC_FULL.md component E: the variable
// database with per-variant scopes, global fallback, and ghost-on-miss
// semantics (spec.md 4.E).
//
// GlobalScope is the well-known scope name consulted after a variant
// scope lookup misses.
package vardb

// GlobalScope names the environment-wide variable scope backed directly
// under env_dt, consulted when a variant-scoped lookup misses.
const GlobalScope = "@"
