// Package ghost implements the commit-time ghost reaper (spec.md 4.H): a
// node of type ghost with zero incident links and no variable reference
// is removed at transaction commit. Candidates are collected incrementally
// during the transaction, never by scanning the node table.
package ghost
