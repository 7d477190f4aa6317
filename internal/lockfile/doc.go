// Package lockfile implements the process-level exclusion described in
// spec.md 5: at most one build instance may hold the on-disk lock at
// .tup/lock, acquisition retries briefly and then fails with a Conflict
// error, and the lock is guaranteed released on every exit path via
// Lock.Release. Grounded on the flock(2)-based locker in the pack's
// jinterlante1206-AleutianLocal/services/trace/lock package, adapted to
// the teacher's discriminated-error style instead of that package's own
// sentinel errors.
package lockfile
