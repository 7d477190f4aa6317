package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/naudhr/tup/internal/entry"
	"github.com/naudhr/tup/internal/flags"
	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/store"
)

// Scanner drives one scan generation (spec.md 6.5): scan_begin, then
// note_existing/note_deleted for everything under a directory node, then
// scan_end. It is the reference note_existing/note_deleted
// implementation; the monitor in monitor.go calls it on its whole watched
// tree once changes settle.
type Scanner struct {
	store  *store.Store
	cache  *entry.Cache
	flags  *flags.Sets
	logger *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger attaches a structured logger; nil is replaced by
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(sc *Scanner) { sc.logger = l }
}

// New builds a Scanner over the given store, entry cache, and flag sets.
func New(s *store.Store, c *entry.Cache, f *flags.Sets, opts ...Option) *Scanner {
	sc := &Scanner{store: s, cache: c, flags: f, logger: slog.Default()}
	for _, opt := range opts {
		opt(sc)
	}
	if sc.logger == nil {
		sc.logger = slog.Default()
	}
	return sc
}

// Scan walks path on disk, reconciling it against the directory node
// root: existing entries are inserted or have their mtime refreshed
// (flagging modify on change), and entries no longer present on disk are
// removed. It is one scan generation: a single ScanBegin/ScanEnd bracket
// around the whole recursive walk.
func (sc *Scanner) Scan(ctx context.Context, root ir.Tupid, path string) error {
	if err := sc.store.ScanBegin(ctx); err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}
	if err := sc.scanDir(ctx, root, path); err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}
	return sc.store.ScanEnd(ctx)
}

func (sc *Scanner) scanDir(ctx context.Context, parent ir.Tupid, dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dirPath, err)
	}

	for _, de := range entries {
		fullPath := filepath.Join(dirPath, de.Name())
		info, err := de.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", fullPath, err)
		}

		typ := ir.TypeFile
		if de.IsDir() {
			typ = ir.TypeDirectory
		}
		mtime := ir.KnownMtime(info.ModTime().Unix(), int32(info.ModTime().Nanosecond()))

		n, ok, err := sc.cache.Lookup(ctx, parent, de.Name())
		if err != nil {
			return fmt.Errorf("lookup %s: %w", fullPath, err)
		}
		if !ok {
			n, err = sc.cache.Insert(ctx, parent, de.Name(), typ, mtime, 0)
			if err != nil {
				return fmt.Errorf("insert %s: %w", fullPath, err)
			}
			if err := sc.flags.MaybeAdd(ctx, ir.FlagCreate, n.ID, typ); err != nil {
				return fmt.Errorf("flag create %s: %w", fullPath, err)
			}
			sc.logger.Debug("scan: note_existing created entry", "path", fullPath, "id", n.ID)
		} else if !n.Mtime.Equal(mtime) {
			if err := sc.cache.SetMtime(ctx, n.ID, mtime); err != nil {
				return fmt.Errorf("set mtime %s: %w", fullPath, err)
			}
			if err := sc.flags.FlagModifyConsumersOf(ctx, n.ID); err != nil {
				return fmt.Errorf("flag modify consumers of %s: %w", fullPath, err)
			}
			sc.logger.Debug("scan: note_existing refreshed mtime", "path", fullPath, "id", n.ID)
		}

		if err := sc.store.ScanMark(ctx, n.ID); err != nil {
			return fmt.Errorf("scan mark %s: %w", fullPath, err)
		}

		if de.IsDir() {
			if err := sc.scanDir(ctx, n.ID, fullPath); err != nil {
				return err
			}
		}
	}

	unseen, err := sc.store.UnseenChildren(ctx, parent)
	if err != nil {
		return fmt.Errorf("unseen children of %d: %w", parent, err)
	}
	for _, n := range unseen {
		if err := sc.cache.Remove(ctx, n.ID, false); err != nil {
			return fmt.Errorf("note_deleted %d: %w", n.ID, err)
		}
		sc.logger.Debug("scan: note_deleted", "id", n.ID, "name", n.Name)
	}
	return nil
}
