package storage

import (
	"context"
	"encoding/json"
	"log/slog"

	shelferrors "github.com/hpungsan/shelf/internal/errors"
)

// ReadJSON decodes the blob under key into v. It reports whether anything was
// stored; load failures come back as StorageError and decode failures as
// MalformedDataError.
func ReadJSON(ctx context.Context, s Storage, key string, v any) (bool, error) {
	data, ok, err := s.Load(ctx, key)
	if err != nil {
		return false, shelferrors.NewStorage("load", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, shelferrors.NewMalformedData(key, err)
	}
	return true, nil
}

// LoadJSON is ReadJSON for callers that fall back to an empty collection. It
// returns false when nothing is stored or the blob cannot be read or decoded;
// failures are logged, never returned.
func LoadJSON(ctx context.Context, s Storage, key string, v any) bool {
	ok, err := ReadJSON(ctx, s, key, v)
	if err != nil {
		LogLoadError(err)
		return false
	}
	return ok
}

// LogLoadError logs an error returned by ReadJSON.
func LogLoadError(err error) {
	if shelferrors.Is(err, shelferrors.ErrMalformedData) {
		slog.Error("Stored data is malformed, starting empty", "error", err)
		return
	}
	slog.Warn("Storage load failed, starting empty", "error", err)
}

// LogReloadError logs an error returned by ReadJSON when a component already
// holds state and keeps it.
func LogReloadError(err error) {
	slog.Warn("Storage reload failed, keeping in-memory state", "error", err)
}

// SaveJSON encodes v and saves it under key. Errors are logged and reported as
// false; the in-memory state stays authoritative for the process.
func SaveJSON(ctx context.Context, s Storage, key string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode snapshot", "key", key, "error", err)
		return false
	}
	if err := s.Save(ctx, key, data); err != nil {
		slog.Warn("Storage save failed, update is not durable", "error", shelferrors.NewStorage("save", key, err))
		return false
	}
	return true
}
