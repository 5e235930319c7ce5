// Package postgres provides a document.Provider backed by PostgreSQL. It is
// the genuinely remote flavor: the Watch feed rides on LISTEN/NOTIFY, so
// changes made by any client reach every subscriber.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/umbral/internal/document"
)

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
)

// NotifyChannel is the pg_notify channel document triggers publish on.
const NotifyChannel = "umbral_documents"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	path TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	data JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);

CREATE OR REPLACE FUNCTION umbral_notify_documents() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('umbral_documents', COALESCE(NEW.collection, OLD.collection));
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS documents_notify ON documents;
CREATE TRIGGER documents_notify
	AFTER INSERT OR UPDATE OR DELETE ON documents
	FOR EACH ROW EXECUTE FUNCTION umbral_notify_documents();
`

type Store struct {
	connStr string
	db      *sql.DB
}

func New(connStr string) *Store {
	return &Store{connStr: connStr}
}

// ValidateConnString checks if a connection string is a valid PostgreSQL
// connection string (URI or DSN) and ensures it does not contain a
// password. Credentials belong in the OS keyring, .pgpass, or environment
// variables, never in the string itself.
func ValidateConnString(connStr string) (bool, error) {
	if strings.TrimSpace(connStr) == "" {
		return false, fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}

	if _, err := pq.NewConnector(connStr); err != nil {
		return false, fmt.Errorf("%w: invalid connection string format: %v", ErrInvalidConnectionString, err)
	}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		parsedURL, err := url.Parse(connStr)
		if err != nil {
			return false, fmt.Errorf("%w: failed to parse connection URL: %v", ErrInvalidConnectionString, err)
		}
		if _, isSet := parsedURL.User.Password(); isSet {
			return false, ErrEmbeddedCredentials
		}
	} else {
		for _, pair := range strings.Fields(connStr) {
			parts := strings.SplitN(pair, "=", 2)
			if len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[0]), "password") {
				return false, ErrEmbeddedCredentials
			}
		}
	}

	return true, nil
}

func (s *Store) Init() error {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool parameters to avoid connection exhaustion
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
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
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM documents WHERE path = $1`, path).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) Set(path string, data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO documents (path, collection, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		path, document.CollectionOf(path), data)
	return err
}

// Patch merges fields into the stored document inside a transaction, holding
// a row lock so concurrent patches cannot clobber each other's fields.
func (s *Store) Patch(path string, fields map[string]any) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var data []byte
	err = tx.QueryRow(`SELECT data FROM documents WHERE path = $1 FOR UPDATE`, path).Scan(&data)
	if err == sql.ErrNoRows {
		return document.ErrNotFound
	}
	if err != nil {
		return err
	}

	merged, err := document.MergePatch(data, fields)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE documents SET data = $1, updated_at = now() WHERE path = $2`, merged, path); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Delete(path string) error {
	_, err := s.db.Exec(`DELETE FROM documents WHERE path = $1`, path)
	return err
}

func (s *Store) List(prefix string) ([]document.Document, error) {
	rows, err := s.db.Query(`SELECT path, data FROM documents WHERE collection = $1`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		var d document.Document
		if err := rows.Scan(&d.Path, &d.Data); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Store) Apply(batch document.Batch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	for _, op := range batch {
		switch op.Kind {
		case document.OpPut:
			_, err = tx.Exec(`
				INSERT INTO documents (path, collection, data, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
				op.Path, document.CollectionOf(op.Path), op.Data)
		case document.OpDelete:
			_, err = tx.Exec(`DELETE FROM documents WHERE path = $1`, op.Path)
		}
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("batch failed at %s: %w", op.Path, err)
		}
	}

	return tx.Commit()
}
