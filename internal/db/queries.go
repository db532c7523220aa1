package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hpungsan/shelf/internal/storage"
)

// BlobStore implements storage.Storage on top of the blobs table.
type BlobStore struct {
	db *sql.DB
}

var (
	_ storage.Storage    = (*BlobStore)(nil)
	_ storage.Transactor = (*BlobStore)(nil)
)

// querier is the part of *sql.DB and *sql.Conn the blob queries need.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewBlobStore wraps an initialized database.
func NewBlobStore(db *sql.DB) *BlobStore {
	return &BlobStore{db: db}
}

// Load returns the blob stored under key.
func (s *BlobStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	return loadBlob(ctx, s.db, key)
}

// Save upserts the blob stored under key.
func (s *BlobStore) Save(ctx context.Context, key string, data []byte) error {
	return saveBlob(ctx, s.db, key, data)
}

// Update implements storage.Transactor. fn runs inside a BEGIN IMMEDIATE
// transaction on a dedicated connection, so the write lock is held from the
// first read; other writers wait up to the busy timeout.
func (s *BlobStore) Update(ctx context.Context, fn func(tx storage.Storage) error) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			// background context: the rollback must run even if ctx is done
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err = fn(blobTx{conn}); err != nil {
		return err
	}
	if _, err = conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// blobTx runs blob queries on the connection holding the transaction.
type blobTx struct {
	conn *sql.Conn
}

func (t blobTx) Load(ctx context.Context, key string) ([]byte, bool, error) {
	return loadBlob(ctx, t.conn, key)
}

func (t blobTx) Save(ctx context.Context, key string, data []byte) error {
	return saveBlob(ctx, t.conn, key, data)
}

func loadBlob(ctx context.Context, q querier, key string) ([]byte, bool, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, false, err
	}

	var data []byte
	err := q.QueryRowContext(ctx, `SELECT data FROM blobs WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func saveBlob(ctx context.Context, q querier, key string, data []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}

	query := `
		INSERT INTO blobs (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query, key, data, time.Now().Unix())
	return err
}

// UpdatedAt returns the Unix time key was last saved, or 0 if it was never saved.
func (s *BlobStore) UpdatedAt(ctx context.Context, key string) (int64, error) {
	var ts int64
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM blobs WHERE key = ?`, key).Scan(&ts)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return ts, err
}
