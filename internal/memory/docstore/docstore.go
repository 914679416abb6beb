// Package docstore implements a per-agent, BM25-searchable document index:
// metadata and full-text chunks live in an embedded SQLite database, raw
// content lives as plain files on disk.
package docstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Document is one indexed document's metadata. Content is loaded
// separately from {root}/docs/{id}.txt.
type Document struct {
	ID          string
	Title       string
	Source      string
	ContentHash string
	CreatedAt   time.Time
	Metadata    map[string]string
}

// Chunk is one full-text-indexed slice of a document's content.
type Chunk struct {
	ID       string
	DocID    string
	Text     string
	Position int
	Metadata map[string]string
}

const schemaVersion = 1

// createdAtLayout is fixed-width, so the text order of created_at (which
// ListDocuments sorts on) matches chronological order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS schema_info (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	source       TEXT NOT NULL,
	content_hash TEXT NOT NULL UNIQUE,
	created_at   TEXT NOT NULL,
	metadata     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	id       TEXT PRIMARY KEY,
	doc_id   TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	text     TEXT NOT NULL,
	position INTEGER NOT NULL,
	metadata TEXT NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
	text,
	content='chunks',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
	INSERT INTO chunks_fts(rowid, text) VALUES (new.rowid, new.text);
END;
CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
	INSERT INTO chunks_fts(chunks_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
END;
`

// Store is a per-agent document store rooted at a directory holding
// index.db and a docs/ subdirectory of raw content files.
type Store struct {
	root string
	db   *sql.DB
}

// Open opens (creating if necessary) the document store rooted at dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "docs"), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying docstore schema: %w", err)
	}
	var count int
	if err := db.QueryRow(`SELECT count(*) FROM schema_info`).Scan(&count); err != nil {
		db.Close()
		return nil, err
	}
	if count == 0 {
		if _, err := db.Exec(`INSERT INTO schema_info(version) VALUES (?)`, schemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &Store{root: dir, db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) docPath(id string) string {
	return filepath.Join(s.root, "docs", id+".txt")
}

// AddDocument computes the content hash, returning the existing document's
// id if one with that hash is already indexed (idempotent insertion).
// Otherwise it writes the content file and metadata row and returns a
// freshly minted id.
func (s *Store) AddDocument(ctx context.Context, title, source, content string, metadata map[string]string) (string, error) {
	sum := sha256.Sum256([]byte(content))
	hash := hex.EncodeToString(sum[:])

	var existingID string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM documents WHERE content_hash = ?`, hash).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	id := uuid.NewString()
	if err := os.WriteFile(s.docPath(id), []byte(content), 0o644); err != nil {
		return "", err
	}
	metaJSON, err := encodeMetadata(metadata)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents(id, title, source, content_hash, created_at, metadata) VALUES (?, ?, ?, ?, ?, ?)`,
		id, title, source, hash, time.Now().UTC().Format(createdAtLayout), metaJSON)
	if err != nil {
		os.Remove(s.docPath(id))
		return "", err
	}
	return id, nil
}

// GetDocument loads a document's metadata and content.
func (s *Store) GetDocument(ctx context.Context, id string) (Document, string, error) {
	doc, err := s.scanDocument(ctx, id)
	if err != nil {
		return Document{}, "", err
	}
	content, err := os.ReadFile(s.docPath(id))
	if err != nil {
		return Document{}, "", err
	}
	return doc, string(content), nil
}

func (s *Store) scanDocument(ctx context.Context, id string) (Document, error) {
	var (
		doc      Document
		created  string
		metaJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, source, content_hash, created_at, metadata FROM documents WHERE id = ?`, id).
		Scan(&doc.ID, &doc.Title, &doc.Source, &doc.ContentHash, &created, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("docstore: document %q not found", id)
	}
	if err != nil {
		return Document{}, err
	}
	doc.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Document{}, err
	}
	doc.Metadata, err = decodeMetadata(metaJSON)
	return doc, err
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, source, content_hash, created_at, metadata FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var (
			doc      Document
			created  string
			metaJSON string
		)
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Source, &doc.ContentHash, &created, &metaJSON); err != nil {
			return nil, err
		}
		doc.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, err
		}
		doc.Metadata, err = decodeMetadata(metaJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document's metadata row (cascading to its
// chunks via the foreign key), its content file, and its full-text index
// entries.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return err
	}
	if err := os.Remove(s.docPath(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func encodeMetadata(m map[string]string) (string, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	return string(data), err
}

func decodeMetadata(s string) (map[string]string, error) {
	if s == "" {
		return map[string]string{}, nil
	}
	var m map[string]string
	err := json.Unmarshal([]byte(s), &m)
	return m, err
}

func sanitizeFTSQuery(q string) string {
	var b strings.Builder
	for _, r := range q {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.TrimSpace(b.String())
}
