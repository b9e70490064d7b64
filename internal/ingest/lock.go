package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	cerrors "github.com/Aman-CERP/criterion/internal/errors"
)

// LockFileName is the ingestion lock file inside the data directory.
const LockFileName = ".ingest.lock"

// Lock serialises ingestion runs against one data directory across
// processes.
type Lock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewLock creates the lock for dataDir.
func NewLock(dataDir string) *Lock {
	path := filepath.Join(dataDir, LockFileName)
	return &Lock{path: path, flock: flock.New(path)}
}

// TryLock acquires the lock without blocking. A lock held elsewhere yields
// ERR_204_CORPUS_LOCKED.
func (l *Lock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return cerrors.New(cerrors.ErrCodeCorpusLocked, "another ingestion is running against "+filepath.Dir(l.path), nil).
			WithSuggestion("Wait for it to finish, or remove " + l.path + " if no ingestion is running")
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Calling it on an unheld lock is a no-op.
func (l *Lock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// IsLocked reports whether this Lock holds the lock.
func (l *Lock) IsLocked() bool { return l.locked }
