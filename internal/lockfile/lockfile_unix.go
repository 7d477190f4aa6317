//go:build unix

package lockfile

import (
	"errors"
	"os"
	"syscall"
)

var errAlreadyLocked = errors.New("lockfile: already locked")

func platformLock(f *os.File) error {
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		if err == syscall.EWOULDBLOCK {
			return errAlreadyLocked
		}
		return err
	}
	return nil
}

func platformUnlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
