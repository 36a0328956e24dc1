package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/dossier/internal/errs"
	"github.com/ppiankov/dossier/internal/model"
)

const defaultSearchLimit = 100

// SQLiteBackend keeps both collections in a local database file. It serves
// development and single-node deployments.
type SQLiteBackend struct {
	conn  *sql.DB
	limit int
}

// OpenSQLite creates or opens the database at path and migrates its schema
func OpenSQLite(path string, searchLimit int) (*SQLiteBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if searchLimit <= 0 {
		searchLimit = defaultSearchLimit
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time; sqlite serializes anyway
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &SQLiteBackend{conn: conn, limit: searchLimit}, nil
}

// Close closes the database
func (b *SQLiteBackend) Close() error {
	return b.conn.Close()
}

// PutRaw appends a scraped record
func (b *SQLiteBackend) PutRaw(ctx context.Context, record model.SourceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal raw record: %w", err)
	}

	_, err = b.conn.ExecContext(ctx,
		`INSERT INTO raw_records (record_key, meta_id, payload) VALUES (?, ?, ?)
		 ON CONFLICT(record_key) DO UPDATE SET meta_id = excluded.meta_id, payload = excluded.payload`,
		record.ID, record.Meta.ID, string(payload))
	if err != nil {
		return errs.External("index.put_raw", "sqlite insert failed", err)
	}
	return nil
}

// SearchRaw returns the records whose meta.id equals externalID in insertion order
func (b *SQLiteBackend) SearchRaw(ctx context.Context, externalID string) ([]model.SourceRecord, error) {
	rows, err := b.conn.QueryContext(ctx,
		`SELECT payload FROM raw_records WHERE meta_id = ? ORDER BY seq LIMIT ?`,
		externalID, b.limit)
	if err != nil {
		return nil, errs.External("index.search_raw", "sqlite query failed", err)
	}
	defer rows.Close()

	records := []model.SourceRecord{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errs.External("index.search_raw", "scan row", err)
		}
		var rec model.SourceRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, errs.Format("index.search_raw", "stored raw record is not valid JSON: %v", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.External("index.search_raw", "iterate rows", err)
	}
	return records, nil
}

type storedCreatedAt struct {
	CreatedAt model.Timestamp `json:"createdAt"`
}

// FindByExternalID returns the documents stored for externalID in insertion order
func (b *SQLiteBackend) FindByExternalID(ctx context.Context, externalID string) ([]DocumentHit, error) {
	rows, err := b.conn.QueryContext(ctx,
		`SELECT doc_key, payload FROM documents WHERE wikidataid = ? ORDER BY seq LIMIT ?`,
		externalID, b.limit)
	if err != nil {
		return nil, errs.External("index.find_document", "sqlite query failed", err)
	}
	defer rows.Close()

	var hits []DocumentHit
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, errs.External("index.find_document", "scan row", err)
		}
		var stored storedCreatedAt
		// A legacy document with an unreadable createdAt still identifies the subject
		_ = json.Unmarshal([]byte(payload), &stored)
		hits = append(hits, DocumentHit{ID: key, CreatedAt: stored.CreatedAt})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.External("index.find_document", "iterate rows", err)
	}
	return hits, nil
}

// Index upserts doc under id. An empty id falls back to doc.ID, so the
// fallback identifier becomes the key on first write; a key is generated
// only when both are empty.
func (b *SQLiteBackend) Index(ctx context.Context, id string, doc *model.PoliticianDocument) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("nil document")
	}
	if id == "" {
		id = doc.ID
	}
	if id == "" {
		id = uuid.NewString()
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	_, err = b.conn.ExecContext(ctx,
		`INSERT INTO documents (doc_key, wikidataid, payload) VALUES (?, ?, ?)
		 ON CONFLICT(doc_key) DO UPDATE SET wikidataid = excluded.wikidataid, payload = excluded.payload`,
		id, doc.WikidataID, string(payload))
	if err != nil {
		return "", errs.External("index.index_document", "sqlite upsert failed", err)
	}
	return id, nil
}

// GetDocument loads the document stored under id
func (b *SQLiteBackend) GetDocument(ctx context.Context, id string) (*model.PoliticianDocument, error) {
	var payload string
	err := b.conn.QueryRowContext(ctx, `SELECT payload FROM documents WHERE doc_key = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.External("index.get_document", "sqlite query failed", err)
	}

	var doc model.PoliticianDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("decode stored document: %w", err)
	}
	return &doc, nil
}

// Count returns the number of rows in the documents table
func (b *SQLiteBackend) Count(ctx context.Context) (int, error) {
	var n int
	err := b.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}
