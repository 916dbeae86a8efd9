// Package sqlite persists the vector index in a single SQLite file.
//
// The chunks table holds one row per embedded chunk, in insertion order.
// The meta table records the embedding model, the vector size and a
// revision counter that other processes poll to notice new saves.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
	"github.com/satgraffin/satgraffin/internal/vectorindex"
)

// Verify interface compliance
var _ driven.VectorStore = (*VectorStore)(nil)

// DBFileName is the database file created inside the vector directory.
const DBFileName = "index.db"

const (
	metaModel      = "model"
	metaDimensions = "dimensions"
	metaRevision   = "revision"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	ord       INTEGER PRIMARY KEY,
	id        TEXT NOT NULL,
	source    TEXT NOT NULL,
	mission   TEXT NOT NULL,
	slug      TEXT NOT NULL,
	position  INTEGER NOT NULL,
	content   TEXT NOT NULL,
	embedding BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// VectorStore implements driven.VectorStore on SQLite.
type VectorStore struct {
	db    *sql.DB
	path  string
	model string
}

// NewVectorStore opens (or creates) dir/index.db.
// model is the embedding model every loaded index must have been built
// with; empty accepts any model.
func NewVectorStore(dir, model string) (*VectorStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating vector directory: %w", err)
	}
	dbPath := filepath.Join(dir, DBFileName)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &VectorStore{db: db, path: dbPath, model: model}, nil
}

// Path returns the database file path.
func (s *VectorStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *VectorStore) Close() error {
	return s.db.Close()
}

// Load reads every chunk into a new index.
func (s *VectorStore) Load(ctx context.Context) (*vectorindex.Index, error) {
	meta, err := s.readMeta(ctx, s.db)
	if err != nil {
		return nil, err
	}
	model, ok := meta[metaModel]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if s.model != "" && model != s.model {
		return nil, fmt.Errorf("%w: index built with %q, configured %q", domain.ErrModelMismatch, model, s.model)
	}
	dims, _ := strconv.Atoi(meta[metaDimensions])

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, mission, slug, position, content, embedding
		FROM chunks ORDER BY ord`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var (
		chunks  []*domain.Chunk
		vectors [][]float32
	)
	for rows.Next() {
		var (
			c    domain.Chunk
			blob []byte
		)
		if err := rows.Scan(&c.ID, &c.Source, &c.Mission, &c.Slug, &c.Position, &c.Content, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, &c)
		vectors = append(vectors, bytesToFloat32Slice(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	idx := vectorindex.New(model, dims)
	if err := idx.Add(chunks, vectors); err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}
	return idx, nil
}

// Save replaces the stored index with idx in one transaction.
func (s *VectorStore) Save(ctx context.Context, idx *vectorindex.Index) error {
	if s.model != "" && idx.Model() != s.model {
		return fmt.Errorf("%w: saving %q into store for %q", domain.ErrModelMismatch, idx.Model(), s.model)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (ord, id, source, mission, slug, position, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for n, e := range idx.Entries() {
		c := e.Chunk
		if _, err := stmt.ExecContext(ctx, n, c.ID, c.Source, c.Mission, c.Slug, c.Position, c.Content, float32SliceToBytes(e.Vector)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	meta, err := s.readMeta(ctx, tx)
	if err != nil {
		return err
	}
	rev, _ := strconv.ParseInt(meta[metaRevision], 10, 64)

	for key, value := range map[string]string{
		metaModel:      idx.Model(),
		metaDimensions: strconv.Itoa(idx.Dimensions()),
		metaRevision:   strconv.FormatInt(rev+1, 10),
	} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
			return fmt.Errorf("writing meta %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}
	return nil
}

// Revision returns the number of saves so far, 0 for a fresh store.
func (s *VectorStore) Revision(ctx context.Context) (int64, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", metaRevision).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading revision: %w", err)
	}
	return strconv.ParseInt(value, 10, 64)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *VectorStore) readMeta(ctx context.Context, q queryer) (map[string]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("querying meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning meta: %w", err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
