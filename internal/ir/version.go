package ir

// SchemaVersion is the current on-disk schema version. Store.Open runs every
// migration step between the version found in the database and this value.
const SchemaVersion = 1

// CoreVersion identifies the graph-core release.
const CoreVersion = "0.1.0"
