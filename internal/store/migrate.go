package store

import (
	"fmt"

	"github.com/naudhr/tup/internal/ir"
)

// migrationStep is one forward-only, idempotent schema change, keyed by
// the version it upgrades *to*.
type migrationStep struct {
	version int
	apply   func(*Store) error
}

// migrations lists every step beyond the baseline schema.sql (which is
// always version 1). Append new steps here; never rewrite an old one.
var migrations = []migrationStep{
	// Version 1 is the baseline created by schema.sql; no step needed.
}

func (s *Store) runMigrations() error {
	var version int
	row := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`)
	err := row.Scan(&version)
	if err != nil {
		// Fresh database: seed at the current schema version.
		if _, ierr := s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, ir.SchemaVersion); ierr != nil {
			return fmt.Errorf("seed schema_version: %w", ierr)
		}
		return nil
	}

	if version > ir.SchemaVersion {
		return NewError(KindSchemaMismatch,
			fmt.Sprintf("database schema version %d is newer than this binary supports (%d)", version, ir.SchemaVersion),
			map[string]any{"db_version": version, "supported_version": ir.SchemaVersion})
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if err := m.apply(s); err != nil {
			return fmt.Errorf("migration to version %d: %w", m.version, err)
		}
		version = m.version
	}

	if version != ir.SchemaVersion {
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, ir.SchemaVersion); err != nil {
			return fmt.Errorf("update schema_version: %w", err)
		}
	}
	return nil
}
