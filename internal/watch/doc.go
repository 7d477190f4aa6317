// Package watch is the scanner/monitor reference adapter for the
// inbound interface described in spec.md 6.5: scan_begin, then for each
// path either note_existing or note_deleted, then scan_end. The monitor
// itself (continuous filesystem watching) is out of core scope per
// spec.md's Non-goals, but SPEC_FULL.md 4 calls for a reference
// implementation exercising fsnotify against that same interface, for
// tests and examples. Grounded on the debounced fsnotify watcher in
// jinterlante1206-AleutianLocal/services/trace/graph/file_watcher.go.
package watch
