// Package storage defines the named-blob persistence capability shared by the
// usage store and the folder and profile registries.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
)

// Keys under which each component persists its collection.
const (
	KeyUsage          = "app_usage"
	KeyFolders        = "folders"
	KeyProfiles       = "profiles"
	KeyCurrentProfile = "current_profile"
)

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Storage loads and saves named blobs of structured data.
type Storage interface {
	// Load returns the blob stored under key. ok is false when nothing was saved yet.
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	// Save replaces the blob stored under key.
	Save(ctx context.Context, key string, data []byte) error
}

// Transactor is implemented by backends that can hold a storage-wide write lock
// across a read-modify-write. The lock excludes other processes sharing the
// backend as well as other goroutines. fn must use tx, not the backend itself.
type Transactor interface {
	Update(ctx context.Context, fn func(tx Storage) error) error
}

// Update runs fn under s's write lock when s is a Transactor, and directly
// against s otherwise. fn's error is returned as is. When the lock cannot be
// taken fn still runs unlocked and the failure is logged, so a busy or broken
// lock never blocks an in-memory update.
func Update(ctx context.Context, s Storage, fn func(tx Storage) error) error {
	t, ok := s.(Transactor)
	if !ok {
		return fn(s)
	}

	var (
		ran   bool
		fnErr error
	)
	err := t.Update(ctx, func(tx Storage) error {
		ran = true
		fnErr = fn(tx)
		return fnErr
	})
	switch {
	case ran && fnErr != nil:
		return fnErr
	case ran && err != nil:
		slog.Warn("Storage commit failed, update is not durable", "error", err)
		return nil
	case err != nil:
		slog.Warn("Storage lock unavailable, writing without it", "error", err)
		return fn(s)
	}
	return nil
}

// ValidateKey rejects keys that cannot double as file names.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}

// Memory is an in-process Storage. The zero value is not usable; call NewMemory.
type Memory struct {
	txMu sync.Mutex

	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Load implements Storage.
func (m *Memory) Load(_ context.Context, key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Save implements Storage.
func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

// Update implements Transactor.
func (m *Memory) Update(_ context.Context, fn func(tx Storage) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(m)
}
