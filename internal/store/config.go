package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// ConfigGet reads one key from the generic config table. Returns ("",
// false, nil) if absent.
func (s *Store) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn().QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("config get %s: %w", key, err)
	}
	return value, true, nil
}

// ConfigSet writes one key, overwriting any prior value.
func (s *Store) ConfigSet(ctx context.Context, key, value string) error {
	_, err := s.exec(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("config set %s: %w", key, err)
	}
	return nil
}

// ConfigGetInt reads an integer config value, matching the original tup
// db's tup_db_config_get_int. Returns (0, false, nil) if the key is absent
// or not parseable as an integer.
func (s *Store) ConfigGetInt(ctx context.Context, key string) (int64, bool, error) {
	raw, ok, err := s.ConfigGet(ctx, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, perr := strconv.ParseInt(raw, 10, 64)
	if perr != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// ConfigSetInt writes an integer config value.
func (s *Store) ConfigSetInt(ctx context.Context, key string, value int64) error {
	return s.ConfigSet(ctx, key, strconv.FormatInt(value, 10))
}

// ConfigDelete removes a key, if present.
func (s *Store) ConfigDelete(ctx context.Context, key string) error {
	if _, err := s.exec(ctx, `DELETE FROM config WHERE key = ?`, key); err != nil {
		return fmt.Errorf("config delete %s: %w", key, err)
	}
	return nil
}
