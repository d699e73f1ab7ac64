package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lgphp/activedoc/odm"
)

// SqliteStore stores every collection in a single SQLite database, one
// JSON document per row:
//
//	documents(collection, id, data)  PRIMARY KEY (collection, id)
//
// Predicate checks and the matching write run inside one transaction, so
// a revision check-and-replace is race-free at the storage layer.
type SqliteStore struct {
	mu       sync.Mutex
	db       *sql.DB
	affected int64
}

// NewSqliteStore opens (creating if needed) the database at dbPath.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// Insert stores doc as a JSON row, assigning a fresh identity if the
// document has none, and returns the document as stored.
func (s *SqliteStore) Insert(ctx context.Context, collection string, doc *odm.Document) (*odm.Document, error) {
	stored := doc.Clone()
	id, ok := identityOf(stored)
	if !ok {
		id = odm.ObjectID(uuid.NewString())
		stored.Set(odm.IdentityKey, id)
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)",
		collection, string(id), string(raw),
	); err != nil {
		return nil, err
	}
	s.affected = 1
	return stored, nil
}

// Update replaces every document matching the predicate with doc inside
// a single transaction, keeping each matched document's identity.
func (s *SqliteStore) Update(ctx context.Context, collection string, predicate, doc *odm.Document) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.writeMatching(ctx, collection, predicate, func(tx *sql.Tx, id string) error {
		replacement := doc.Clone()
		if _, ok := identityOf(replacement); !ok {
			replacement.Set(odm.IdentityKey, odm.ObjectID(id))
		}
		raw, err := json.Marshal(replacement)
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE documents SET data = ? WHERE collection = ? AND id = ?",
			string(raw), collection, id,
		)
		return err
	})
	if err != nil {
		return false, err
	}
	s.affected = n
	return n > 0, nil
}

// Remove deletes every document matching the predicate inside a single
// transaction.
func (s *SqliteStore) Remove(ctx context.Context, collection string, predicate *odm.Document) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.writeMatching(ctx, collection, predicate, func(tx *sql.Tx, id string) error {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM documents WHERE collection = ? AND id = ?",
			collection, id,
		)
		return err
	})
	if err != nil {
		return false, err
	}
	s.affected = n
	return n > 0, nil
}

// Find returns a document matching the predicate, or odm.ErrNotFound.
func (s *SqliteStore) Find(ctx context.Context, collection string, predicate *odm.Document) (*odm.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT data FROM documents WHERE collection = ?", collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		doc := odm.NewDocument()
		if err := json.Unmarshal([]byte(raw), doc); err != nil {
			continue
		}
		if matches(doc, predicate) {
			return doc, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nil, odm.ErrNotFound
}

// AffectedCount returns the number of documents affected by the most
// recent write.
func (s *SqliteStore) AffectedCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.affected
}

// writeMatching scans the collection inside a transaction, applies write
// to every row whose document matches the predicate, and returns how
// many rows were written.
func (s *SqliteStore) writeMatching(ctx context.Context, collection string, predicate *odm.Document, write func(tx *sql.Tx, id string) error) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT id, data FROM documents WHERE collection = ?", collection)
	if err != nil {
		return 0, err
	}

	var matched []string
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return 0, err
		}
		doc := odm.NewDocument()
		if err := json.Unmarshal([]byte(raw), doc); err != nil {
			continue
		}
		if matches(doc, predicate) {
			matched = append(matched, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	for _, id := range matched {
		if err := write(tx, id); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}
