package update

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const (
	// LockFileName is created inside the lock directory.
	LockFileName = "nymnode.lock"

	// DefaultLockDir holds the lock file.
	DefaultLockDir = "/tmp"

	// StaleLockThreshold is the maximum age of a lock before it's considered stale.
	StaleLockThreshold = 30 * time.Minute
)

// Lock is an exclusive run lock backed by a file.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock creates <dir>/nymnode.lock with O_CREATE|O_EXCL. A lock left
// by a dead process or older than StaleLockThreshold is replaced once; the
// stale file is renamed aside first so two processes cannot both take it over.
func AcquireLock(ctx context.Context, dir string) (*Lock, error) {
	if dir == "" {
		dir = DefaultLockDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lockPath := filepath.Join(dir, LockFileName)

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		stale, err := os.Stat(lockPath)
		if err != nil || !isLockStale(ctx, lockPath) || !reclaimStale(lockPath, stale) {
			return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, lockPath)
		}
		file, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
		if err != nil {
			return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, lockPath)
		}
	}

	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		_ = file.Close()
		_ = os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{path: lockPath, file: file}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release releases the lock.
func (l *Lock) Release() error {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
		l.path = ""
	}
	return nil
}

// reclaimStale moves the lock file aside and removes it, but only if the file
// moved is still the one judged stale. Otherwise another process took the lock
// in between and its file is linked back into place.
func reclaimStale(lockPath string, stale os.FileInfo) bool {
	aside := fmt.Sprintf("%s.stale.%d", lockPath, os.Getpid())
	if err := os.Rename(lockPath, aside); err != nil {
		return false
	}
	moved, err := os.Stat(aside)
	if err != nil || !os.SameFile(stale, moved) {
		_ = os.Link(aside, lockPath)
		_ = os.Remove(aside)
		return false
	}
	_ = os.Remove(aside)
	return true
}

// isLockStale reports whether the lock's owner is gone or the lock is too old.
func isLockStale(ctx context.Context, lockPath string) bool {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) > StaleLockThreshold {
		return true
	}

	pid, ok := readLockPID(lockPath)
	if !ok {
		return false
	}
	exists, err := process.PidExistsWithContext(ctx, pid)
	if err != nil {
		return false
	}
	return !exists
}

// readLockPID parses the pid= line of a lock file.
func readLockPID(lockPath string) (int32, bool) {
	f, err := os.Open(lockPath)
	if err != nil {
		return 0, false
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		value, found := strings.CutPrefix(scanner.Text(), "pid=")
		if !found {
			continue
		}
		pid, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
		if err != nil || pid <= 0 {
			return 0, false
		}
		return int32(pid), true
	}
	return 0, false
}
