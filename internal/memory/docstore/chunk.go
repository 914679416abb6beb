package docstore

import (
	"context"
	"database/sql"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultChunkSize is the maintenance manager's fallback chunk size, in
// bytes, for documents with no chunks yet.
const DefaultChunkSize = 2048

// ChunkDocument splits content into roughly chunkSize-byte pieces on UTF-8
// rune boundaries, recording each piece's byte offset. Empty and
// whitespace-only pieces are dropped.
func ChunkDocument(docID, content string, chunkSize int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	var chunks []Chunk
	pos := 0
	for pos < len(content) {
		end := pos + chunkSize
		if end > len(content) {
			end = len(content)
		} else {
			for end < len(content) && !utf8.RuneStart(content[end]) {
				end++
			}
		}
		piece := content[pos:end]
		if strings.TrimSpace(piece) != "" {
			chunks = append(chunks, Chunk{
				ID:       uuid.NewString(),
				DocID:    docID,
				Text:     piece,
				Position: pos,
			})
		}
		pos = end
	}
	return chunks
}

// IndexChunks replaces the full-text index for docID with the supplied
// chunks. Re-indexing is scoped to that single document; other documents'
// chunks are untouched. Every chunk is stored under docID, whatever its own
// DocID field says.
func (s *Store) IndexChunks(ctx context.Context, docID string, chunks []Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, docID); err != nil {
		return err
	}
	for _, c := range chunks {
		metaJSON, err := encodeMetadata(c.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks(id, doc_id, text, position, metadata) VALUES (?, ?, ?, ?, ?)`,
			c.ID, docID, c.Text, c.Position, metaJSON); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ChunkCount reports how many chunks are indexed for a document.
func (s *Store) ChunkCount(ctx context.Context, docID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM chunks WHERE doc_id = ?`, docID).Scan(&n)
	return n, err
}

// SearchResult is one BM25-ranked hit.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// SearchByText runs a BM25-ranked full-text search over all indexed
// chunks, returning up to k results. An empty query returns no results.
// Query text is sanitized to plain alphanumerics before being handed to
// the full-text engine, so punctuation in user input can never be
// interpreted as query syntax.
func (s *Store) SearchByText(ctx context.Context, q string, k int) ([]SearchResult, error) {
	clean := sanitizeFTSQuery(q)
	if clean == "" || k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.doc_id, c.text, c.position, c.metadata, chunks_fts.rank
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		WHERE chunks_fts MATCH ?
		ORDER BY chunks_fts.rank
		LIMIT ?
	`, clean, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var (
			c        Chunk
			metaJSON string
			rank     sql.NullFloat64
		)
		if err := rows.Scan(&c.ID, &c.DocID, &c.Text, &c.Position, &metaJSON, &rank); err != nil {
			return nil, err
		}
		c.Metadata, err = decodeMetadata(metaJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, SearchResult{Chunk: c, Score: rank.Float64})
	}
	return out, rows.Err()
}
