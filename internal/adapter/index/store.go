package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"factscout/internal/domain"
)

// Store implements domain.SemanticIndex backed by SQLite. Vectors are
// persisted as little-endian float32 blobs; an in-memory vecIndex caches them
// so similarity queries avoid SQLite I/O. The cache is lazily loaded on the
// first query and incrementally updated on Upsert.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	vecIdx *vecIndex
}

var _ domain.SemanticIndex = (*Store)(nil)

// New opens (or creates) a SQLite database at dbPath, runs migrations, and
// returns a ready Store.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", domain.ErrIndexUnavailable, err)
	}

	// SQLite write safety: single writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: pragma: %v", domain.ErrIndexUnavailable, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrIndexUnavailable, err)
	}

	return &Store{db: db, logger: logger, vecIdx: newVecIndex()}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS records (
	id           TEXT PRIMARY KEY,
	embedding    BLOB NOT NULL,
	text         TEXT NOT NULL,
	context_text TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_title ON records(title);
`)
	return err
}

// Upsert implements domain.SemanticIndex.
func (s *Store) Upsert(ctx context.Context, records []domain.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", domain.ErrIndexUpsert, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO records (id, embedding, text, context_text, source, title, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	embedding    = excluded.embedding,
	text         = excluded.text,
	context_text = excluded.context_text,
	source       = excluded.source,
	title        = excluded.title`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", domain.ErrIndexUpsert, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if rec.Timestamp.IsZero() {
			rec.Timestamp = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			rec.ID, encodeVector(rec.Vector), rec.Text, rec.ContextText,
			rec.Source, rec.Title, rec.Timestamp,
		); err != nil {
			return fmt.Errorf("%w: insert %s: %v", domain.ErrIndexUpsert, rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrIndexUpsert, err)
	}

	s.vecIdx.put(records)
	s.logger.Debug("index upsert", "records", len(records))
	return nil
}

// Query implements domain.SemanticIndex.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, titleFilter string) ([]domain.IndexMatch, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.vecIdx.search(vector, topK, titleFilter), nil
}

// ensureLoaded populates the in-memory index from SQLite on first use.
func (s *Store) ensureLoaded(ctx context.Context) error {
	if s.vecIdx.isLoaded() {
		return nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, embedding, text, context_text, source, title, created_at FROM records")
	if err != nil {
		return fmt.Errorf("%w: load: %v", domain.ErrIndexQuery, err)
	}
	defer rows.Close()

	var records []domain.IndexRecord
	for rows.Next() {
		var rec domain.IndexRecord
		var blob []byte
		if err := rows.Scan(&rec.ID, &blob, &rec.Text, &rec.ContextText,
			&rec.Source, &rec.Title, &rec.Timestamp); err != nil {
			return fmt.Errorf("%w: scan: %v", domain.ErrIndexQuery, err)
		}
		rec.Vector = decodeVector(blob)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: rows: %v", domain.ErrIndexQuery, err)
	}

	s.vecIdx.load(records)
	s.logger.Debug("index loaded", "records", len(records))
	return nil
}

// encodeVector serializes a float32 slice as little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector deserializes little-endian bytes into a float32 slice.
func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
