package db

import (
	"context"
	"testing"

	"github.com/hpungsan/shelf/internal/storage"
)

func TestBlobStore_LoadMissing(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer database.Close()

	s := NewBlobStore(database)
	data, ok, err := s.Load(context.Background(), storage.KeyFolders)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ok || data != nil {
		t.Errorf("Load() = (%q, %v), want (nil, false)", data, ok)
	}
}

func TestBlobStore_SaveAndOverwrite(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	s := NewBlobStore(database)

	if err := s.Save(ctx, storage.KeyUsage, []byte(`[{"app_ref":"a"}]`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(ctx, storage.KeyUsage, []byte(`[]`)); err != nil {
		t.Fatalf("Save() overwrite error = %v", err)
	}

	data, ok, err := s.Load(ctx, storage.KeyUsage)
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}
	if string(data) != `[]` {
		t.Errorf("Load() = %q, want %q", data, `[]`)
	}

	var rows int
	if err := database.QueryRow("SELECT COUNT(*) FROM blobs").Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("blob rows = %d, want 1 (upsert)", rows)
	}

	ts, err := s.UpdatedAt(ctx, storage.KeyUsage)
	if err != nil {
		t.Fatalf("UpdatedAt() error = %v", err)
	}
	if ts == 0 {
		t.Error("UpdatedAt() = 0 after save")
	}
}

func TestBlobStore_RejectsInvalidKey(t *testing.T) {
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer database.Close()

	s := NewBlobStore(database)
	if err := s.Save(context.Background(), "DROP TABLE", []byte("x")); err == nil {
		t.Error("Save() with invalid key should fail")
	}
}
