package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
)

const lockRetryDelay = 25 * time.Millisecond

// File stores each key as <dir>/<key>.json. Writes go through an atomic rename.
// Update holds a directory-wide flock for the whole read-modify-write, so a CLI
// invocation and a running watcher never interleave.
type File struct {
	dir      string
	lockPath string

	// mu orders goroutines of this process; the flock orders processes
	mu sync.RWMutex
}

var _ Transactor = (*File)(nil)

// NewFile creates dir if needed and returns a file-backed Storage.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &File{dir: dir, lockPath: filepath.Join(dir, ".lock")}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Load implements Storage.
func (f *File) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	// a fresh Flock per call: one shared Flock reports success to every
	// goroutine once any of them holds it
	lock := flock.New(f.lockPath)
	locked, err := lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, false, fmt.Errorf("acquire read lock: %w", err)
	}
	if !locked {
		return nil, false, fmt.Errorf("acquire read lock: %s", f.dir)
	}
	defer lock.Unlock()

	return f.read(key)
}

// Save implements Storage.
func (f *File) Save(ctx context.Context, key string, data []byte) error {
	return f.Update(ctx, func(tx Storage) error {
		return tx.Save(ctx, key, data)
	})
}

// Update implements Transactor.
func (f *File) Update(ctx context.Context, fn func(tx Storage) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	lock := flock.New(f.lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire write lock: %s", f.dir)
	}
	defer lock.Unlock()

	return fn(fileTx{f})
}

func (f *File) read(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (f *File) write(key string, data []byte) error {
	if err := atomic.WriteFile(f.path(key), bytes.NewReader(data)); err != nil {
		return err
	}
	_ = os.Chmod(f.path(key), 0600)
	return nil
}

// fileTx reads and writes without locking; it is only handed out under Update.
type fileTx struct {
	f *File
}

func (t fileTx) Load(_ context.Context, key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}
	return t.f.read(key)
}

func (t fileTx) Save(_ context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return t.f.write(key, data)
}
