package store

import (
	"context"
	"path/filepath"
	"testing"

	"curve-trader/internal/config"
)

func TestNewMemory_Migrate(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("NewMemory returned error: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Migrate(ctx, "test", `CREATE TABLE IF NOT EXISTS items (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	if _, err := s.DB().ExecContext(ctx, `INSERT INTO items (name) VALUES (?)`, "a"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	var count int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestMigrate_InvalidStatement(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("NewMemory returned error: %v", err)
	}
	defer s.Close()

	if err := s.Migrate(context.Background(), "test", `CREATE TABLE broken (`); err == nil {
		t.Fatalf("expected migration error")
	}
}

func TestNewSQLite_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "curve.db")
	s, err := NewSQLite(config.DatabaseConfig{Path: path, MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}
