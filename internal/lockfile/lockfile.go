package lockfile

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/naudhr/tup/internal/store"
)

// Lock represents a held exclusive lock on a project's .tup/lock file.
type Lock struct {
	f         *os.File
	path      string
	sessionID uuid.UUID
}

// SessionID is the correlation id for this lock holder, written into the
// lock file for debugging which process holds the lock.
func (l *Lock) SessionID() uuid.UUID { return l.sessionID }

// Path is the lock file's path on disk.
func (l *Lock) Path() string { return l.path }

// Release unlocks and closes the lock file. Safe to call once; calling it
// again is a no-op returning nil.
func (l *Lock) Release() error {
	if l.f == nil {
		return nil
	}
	err := platformUnlock(l.f)
	closeErr := l.f.Close()
	l.f = nil
	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	if closeErr != nil {
		return fmt.Errorf("release lock %s: %w", l.path, closeErr)
	}
	return nil
}

// backoff is the short retry schedule spec.md 5 calls for: acquisition
// attempted with a short back-off before failing with AlreadyLocked.
var backoff = []time.Duration{0, 10 * time.Millisecond, 40 * time.Millisecond}

// Acquire takes the exclusive lock at path, creating the file if needed.
// On contention it retries per backoff before returning a *store.Error of
// kind Conflict (spec.md 5's "AlreadyLocked").
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock %s: %w", path, err)
	}

	var lockErr error
	for _, wait := range backoff {
		if wait > 0 {
			time.Sleep(wait)
		}
		lockErr = platformLock(f)
		if lockErr == nil {
			break
		}
		if lockErr != errAlreadyLocked {
			f.Close()
			return nil, fmt.Errorf("lock %s: %w", path, lockErr)
		}
	}
	if lockErr != nil {
		f.Close()
		return nil, store.NewConflict(
			"another build instance already holds the lock",
			map[string]any{"path": path},
		)
	}

	sessionID := uuid.New()
	if err := writeSessionID(f, sessionID); err != nil {
		platformUnlock(f)
		f.Close()
		return nil, fmt.Errorf("write lock session id %s: %w", path, err)
	}

	return &Lock{f: f, path: path, sessionID: sessionID}, nil
}

func writeSessionID(f *os.File, id uuid.UUID) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err := f.WriteString(id.String() + "\n")
	return err
}
