package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/andina-labs/yachay/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT NOT NULL,
		version INTEGER NOT NULL,
		text TEXT NOT NULL,
		pages TEXT,
		metadata TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id, version)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_active ON documents(id, active);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		document_version INTEGER NOT NULL,
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		start_offset INTEGER NOT NULL,
		end_offset INTEGER NOT NULL,
		page INTEGER NOT NULL,
		metadata TEXT,
		boundary_start INTEGER NOT NULL DEFAULT 0,
		boundary_end INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (id, document_version)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id, chunk_index);
	CREATE INDEX IF NOT EXISTS idx_chunks_active ON chunks(document_id, active);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveDocument inserts a new active document version.
func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *models.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	pagesJSON, err := json.Marshal(doc.Pages)
	if err != nil {
		return fmt.Errorf("failed to marshal pages: %w", err)
	}

	doc.Active = true
	doc.CreatedAt = time.Now()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, version, text, pages, metadata, active, created_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?)`,
		doc.ID, doc.Version, doc.Text, string(pagesJSON), string(metadataJSON), doc.CreatedAt,
	)
	return err
}

// GetDocument returns the active version of a document by ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, version, text, pages, metadata, active, created_at
		 FROM documents WHERE id = ? AND active = 1
		 ORDER BY version DESC LIMIT 1`, id,
	)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	return doc, err
}

// ListDocuments returns active documents with offset and limit, newest first.
func (s *SQLiteStore) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, version, text, pages, metadata, active, created_at
		 FROM documents WHERE active = 1
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(sc scanner) (*models.Document, error) {
	var doc models.Document
	var pagesJSON, metadataJSON string
	err := sc.Scan(&doc.ID, &doc.Version, &doc.Text, &pagesJSON, &metadataJSON, &doc.Active, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	if pagesJSON != "" && pagesJSON != "null" {
		if err := json.Unmarshal([]byte(pagesJSON), &doc.Pages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pages: %w", err)
		}
	}
	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}

// SupersedeDocument marks all versions of a document and their chunks
// inactive, returning the IDs of the deactivated chunks so the caller can
// evict them from the search indexes. Returns an empty slice when the
// document was never ingested.
func (s *SQLiteStore) SupersedeDocument(ctx context.Context, id string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM chunks WHERE document_id = ? AND active = 1`, id)
	if err != nil {
		return nil, err
	}
	var chunkIDs []string
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			rows.Close()
			return nil, err
		}
		chunkIDs = append(chunkIDs, cid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE chunks SET active = 0 WHERE document_id = ?`, id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET active = 0 WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return chunkIDs, tx.Commit()
}

// SaveChunks inserts chunks in a single transaction.
func (s *SQLiteStore) SaveChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, document_version, chunk_index, text,
		 start_offset, end_offset, page, metadata, boundary_start, boundary_end, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.DocumentID, chunk.DocumentVersion, chunk.Index, chunk.Text,
			chunk.Start, chunk.End, chunk.Page, string(metadataJSON),
			chunk.BoundaryStart, chunk.BoundaryEnd,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetChunk returns the active version of a chunk by ID.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, document_version, chunk_index, text,
		 start_offset, end_offset, page, metadata, boundary_start, boundary_end
		 FROM chunks WHERE id = ? AND active = 1
		 ORDER BY document_version DESC LIMIT 1`, id,
	)
	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk not found: %s", id)
	}
	return chunk, err
}

// GetChunksByDocument returns the active chunks of a document ordered by index.
func (s *SQLiteStore) GetChunksByDocument(ctx context.Context, docID string) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, document_version, chunk_index, text,
		 start_offset, end_offset, page, metadata, boundary_start, boundary_end
		 FROM chunks WHERE document_id = ? AND active = 1 ORDER BY chunk_index`,
		docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func scanChunk(sc scanner) (*models.Chunk, error) {
	var chunk models.Chunk
	var metadataJSON string
	err := sc.Scan(&chunk.ID, &chunk.DocumentID, &chunk.DocumentVersion, &chunk.Index, &chunk.Text,
		&chunk.Start, &chunk.End, &chunk.Page, &metadataJSON, &chunk.BoundaryStart, &chunk.BoundaryEnd)
	if err != nil {
		return nil, err
	}
	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &chunk, nil
}

// CountDocuments returns the number of active documents.
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE active = 1`).Scan(&count)
	return count, err
}

// CountChunks returns the number of active chunks.
func (s *SQLiteStore) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE active = 1`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
