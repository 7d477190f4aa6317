// Package flags implements SPEC_FULL.md component C: the five disjoint
// per-node flag sets (create, modify, config, variant, transient) that
// drive the updater, layered over the raw flag tables in internal/store
// with the type restrictions and cross-flag combo helpers spec.md 4.C
// describes.
package flags
