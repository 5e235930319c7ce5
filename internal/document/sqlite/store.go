// Package sqlite provides a document.Provider backed by a single SQLite
// documents table. Because SQLite has no cross-process notification
// primitive, the Watch feed is an in-process hub notified after each commit.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/umbral/internal/document"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	path TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	data TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
`

type Store struct {
	path string
	db   *sql.DB

	mu   sync.Mutex
	subs map[int]chan document.Event
	next int
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
		subs: make(map[int]chan document.Event),
	}
}

func (s *Store) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Get(path string) ([]byte, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM documents WHERE path = ?`, path).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func (s *Store) Set(path string, data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO documents (path, collection, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		path, document.CollectionOf(path), string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	s.notify(document.CollectionOf(path))
	return nil
}

func (s *Store) Patch(path string, fields map[string]any) error {
	data, err := s.Get(path)
	if err != nil {
		return err
	}
	merged, err := document.MergePatch(data, fields)
	if err != nil {
		return err
	}
	return s.Set(path, merged)
}

func (s *Store) Delete(path string) error {
	res, err := s.db.Exec(`DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.notify(document.CollectionOf(path))
	}
	return nil
}

func (s *Store) List(prefix string) ([]document.Document, error) {
	rows, err := s.db.Query(`SELECT path, data FROM documents WHERE collection = ?`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		var path, data string
		if err := rows.Scan(&path, &data); err != nil {
			return nil, err
		}
		docs = append(docs, document.Document{Path: path, Data: []byte(data)})
	}
	return docs, rows.Err()
}

// Apply runs the batch inside a transaction so a failure partway leaves no
// partial writes behind.
func (s *Store) Apply(batch document.Batch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	touched := make(map[string]bool)
	now := time.Now().UTC().Format(time.RFC3339)
	for _, op := range batch {
		switch op.Kind {
		case document.OpPut:
			_, err = tx.Exec(`
				INSERT INTO documents (path, collection, data, updated_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
				op.Path, document.CollectionOf(op.Path), string(op.Data), now)
		case document.OpDelete:
			_, err = tx.Exec(`DELETE FROM documents WHERE path = ?`, op.Path)
		}
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("batch failed at %s: %w", op.Path, err)
		}
		touched[document.CollectionOf(op.Path)] = true
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	for collection := range touched {
		s.notify(collection)
	}
	return nil
}

func (s *Store) Watch(ctx context.Context) (<-chan document.Event, error) {
	s.mu.Lock()
	id := s.next
	s.next++
	ch := make(chan document.Event, 64)
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

func (s *Store) notify(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- document.Event{Collection: collection}:
		default:
		}
	}
}
