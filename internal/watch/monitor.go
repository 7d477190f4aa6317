package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/naudhr/tup/internal/ir"
)

// Monitor watches one directory for filesystem changes and triggers a
// Scanner.Scan of its whole subtree once changes settle, debounced by
// window. The fsnotify watch covers that directory only: changes inside
// its subdirectories do not trigger a rescan.
// This is the reference implementation of spec.md 6.5's inbound
// interface driven by real filesystem events rather than a one-shot
// walk; the continuous monitor itself stays out of core scope (spec.md
// 1's Non-goals), so this type exists for tests and examples only.
//
// Grounded on jinterlante1206-AleutianLocal's debounced FileWatcher
// (services/trace/graph/file_watcher.go), adapted to call Scanner.Scan
// instead of a generic change-batch handler.
type Monitor struct {
	watcher *fsnotify.Watcher
	scanner *Scanner
	root    ir.Tupid
	path    string
	window  time.Duration
	logger  *slog.Logger
}

// NewMonitor builds a Monitor watching path (backed by the directory
// node root) and rescanning through sc after window of quiet.
func NewMonitor(sc *Scanner, root ir.Tupid, path string, window time.Duration) (*Monitor, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new monitor: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("new monitor: watch %s: %w", path, err)
	}
	return &Monitor{
		watcher: w,
		scanner: sc,
		root:    root,
		path:    path,
		window:  window,
		logger:  sc.logger,
	}, nil
}

// Close stops watching and releases the underlying fsnotify handle.
func (m *Monitor) Close() error {
	return m.watcher.Close()
}

// Run blocks, rescanning whenever events settle for window, until ctx is
// canceled or the watcher errors out.
func (m *Monitor) Run(ctx context.Context) error {
	var timer *time.Timer
	var timerC <-chan time.Time

	resetTimer := func() {
		if timer == nil {
			timer = time.NewTimer(m.window)
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(m.window)
		}
		timerC = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			m.logger.Debug("watch: event", "path", event.Name, "op", event.Op.String())
			resetTimer()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", m.path, err)
		case <-timerC:
			timerC = nil
			if err := m.scanner.Scan(ctx, m.root, m.path); err != nil {
				return fmt.Errorf("watch %s: rescan: %w", m.path, err)
			}
		}
	}
}
