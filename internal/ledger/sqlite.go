package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/outlaylabs/outlay/internal/fault"
)

// SQLiteStore keeps items in a single local SQLite database file.
type SQLiteStore struct {
	db    *sql.DB
	clock func() time.Time
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	store := &SQLiteStore{db: db, clock: time.Now}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    price REAL NOT NULL,
    owner_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_created ON items(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Insert persists the candidate and returns the refreshed newest-first list.
func (s *SQLiteStore) Insert(ctx context.Context, candidate Candidate, ownerID string) ([]Item, error) {
	if err := candidate.Validate(); err != nil {
		return nil, fault.Wrap(fault.KindPersistenceFailed, "refusing to persist invalid candidate", err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items(id, name, price, owner_id, created_at) VALUES(?, ?, ?, ?, ?)`,
		uuid.NewString(), candidate.Name, candidate.Price, ownerID, s.clock().UTC())
	if err != nil {
		return nil, fault.Wrap(fault.KindPersistenceFailed, "insert item", err)
	}

	return s.List(ctx)
}

// List returns all items, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, price, owner_id, created_at FROM items ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fault.Wrap(fault.KindPersistenceFailed, "list items", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.OwnerID, &item.CreatedAt); err != nil {
			return nil, fault.Wrap(fault.KindPersistenceFailed, "scan item row", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindPersistenceFailed, "iterate item rows", err)
	}
	return items, nil
}

// Delete removes one item by id. Deleting an unknown id is an error.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fault.Wrap(fault.KindPersistenceFailed, "delete item", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fault.Wrap(fault.KindPersistenceFailed, "confirm delete", err)
	}
	if affected == 0 {
		return fault.New(fault.KindPersistenceFailed, fmt.Sprintf("no item with id %q", id))
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
