// Package links implements SPEC_FULL.md component D: the typed directed
// edge engine (sticky/normal/group) layered over internal/store's raw
// link table, adding the producer-uniqueness assertion and group fan-out
// deduplication spec.md 4.D describes.
package links
