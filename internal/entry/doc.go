// Package entry implements the canonical in-memory entry cache described
// in SPEC_FULL.md component A: a deduplicated id -> node mapping plus a
// per-directory name index, backed by the persistent store on miss.
//
// CRITICAL: the cache is authoritative only within the store's currently
// open transaction. Cache.Begin snapshots the current maps; Cache.Rollback
// restores that snapshot (entries created only in memory are dropped,
// mutated fields revert); Cache.Commit discards the snapshot and keeps
// the live maps.
package entry
