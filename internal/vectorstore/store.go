// Package vectorstore persists transcript chunks with their embeddings
// and answers nearest-neighbour queries with context expansion.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"vidsage/internal/embedding"
	"vidsage/internal/logging"
)

// Chunk is one bounded span of transcript text, addressed by
// (source_id, sequence_index). Immutable once written.
type Chunk struct {
	SourceID string
	Text     string
	Start    float64
	End      float64
	Seq      int
}

// SearchResult pairs a chunk with its similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Window is a merged run of adjacent chunks returned as retrieval
// context.
type Window struct {
	SourceID string
	Text     string
	Start    float64
	End      float64
	Score    float64
}

// Stats summarizes index contents for the health endpoint.
type Stats struct {
	IndexSize     int      `json:"index_size"`
	UniqueSources int      `json:"unique_sources"`
	SourceIDs     []string `json:"source_ids"`
}

// Store is the SQLite-backed retrieval index. Writes happen only during
// ingestion; queries are read-only and may run concurrently.
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// Open initializes the chunk database at the given path.
func Open(path string) (*Store, error) {
	log := logging.Get(logging.CategoryStore)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			log.Debugw("pragma failed", "pragma", pragma, "error", err)
		}
	}

	s := &Store{db: db, log: log}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		source_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		text TEXT NOT NULL,
		start_offset REAL NOT NULL,
		end_offset REAL NOT NULL,
		vector BLOB NOT NULL,
		PRIMARY KEY (source_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Add persists chunks with their vectors in one transaction. Vectors
// must be index-aligned with chunks.
func (s *Store) Add(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d != %d", len(chunks), len(vectors))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO chunks (source_id, seq, text, start_offset, end_offset, vector)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.SourceID, c.Seq, c.Text, c.Start, c.End, encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("failed to insert chunk %s/%d: %w", c.SourceID, c.Seq, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	s.log.Debugw("chunks stored", "count", len(chunks))
	return nil
}

// Search returns the top k chunks nearest the query vector, ordered by
// non-increasing score where score = 1 / (1 + distance). A source
// filter excludes other sources before ranking, never after top-k
// truncation.
func (s *Store) Search(ctx context.Context, vector []float32, k int, sourceFilter string) ([]SearchResult, error) {
	if k <= 0 {
		k = 3
	}

	query := `SELECT source_id, seq, text, start_offset, end_offset, vector FROM chunks`
	var args []any
	if sourceFilter != "" {
		query += ` WHERE source_id = ?`
		args = append(args, sourceFilter)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var c Chunk
		var blob []byte
		if err := rows.Scan(&c.SourceID, &c.Seq, &c.Text, &c.Start, &c.End, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		dist, err := embedding.CosineDistance(vector, vec)
		if err != nil {
			s.log.Debugw("skipping chunk with mismatched vector", "source", c.SourceID, "seq", c.Seq)
			continue
		}
		results = append(results, SearchResult{Chunk: c, Score: 1 / (1 + dist)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Expand widens each result with its sequence neighbours (seq-1 and
// seq+1 from the same source) and merges overlapping windows across
// results, preserving the best score per window.
func (s *Store) Expand(ctx context.Context, results []SearchResult) ([]Window, error) {
	type span struct {
		lo, hi int
		score  float64
	}
	spans := make(map[string][]span)
	for _, r := range results {
		spans[r.Chunk.SourceID] = append(spans[r.Chunk.SourceID], span{
			lo:    r.Chunk.Seq - 1,
			hi:    r.Chunk.Seq + 1,
			score: r.Score,
		})
	}

	var windows []Window
	for source, ss := range spans {
		sort.Slice(ss, func(i, j int) bool { return ss[i].lo < ss[j].lo })
		merged := []span{ss[0]}
		for _, sp := range ss[1:] {
			last := &merged[len(merged)-1]
			if sp.lo <= last.hi+1 {
				if sp.hi > last.hi {
					last.hi = sp.hi
				}
				if sp.score > last.score {
					last.score = sp.score
				}
				continue
			}
			merged = append(merged, sp)
		}

		for _, sp := range merged {
			w, err := s.window(ctx, source, sp.lo, sp.hi, sp.score)
			if err != nil {
				return nil, err
			}
			if w != nil {
				windows = append(windows, *w)
			}
		}
	}

	sort.SliceStable(windows, func(i, j int) bool { return windows[i].Score > windows[j].Score })
	return windows, nil
}

// window assembles one merged context window from the chunks present in
// [lo, hi]. Missing neighbours at the edges are simply absent.
func (s *Store) window(ctx context.Context, source string, lo, hi int, score float64) (*Window, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text, start_offset, end_offset FROM chunks
		 WHERE source_id = ? AND seq BETWEEN ? AND ? ORDER BY seq`,
		source, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch window: %w", err)
	}
	defer rows.Close()

	var texts []string
	w := &Window{SourceID: source, Score: score, Start: math.MaxFloat64}
	for rows.Next() {
		var text string
		var start, end float64
		if err := rows.Scan(&text, &start, &end); err != nil {
			return nil, err
		}
		texts = append(texts, text)
		if start < w.Start {
			w.Start = start
		}
		if end > w.End {
			w.End = end
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}
	w.Text = strings.Join(texts, " ")
	return w, nil
}

// HasSource reports whether any chunks exist for a source.
func (s *Store) HasSource(ctx context.Context, sourceID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM chunks WHERE source_id = ?`, sourceID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check source: %w", err)
	}
	return n > 0, nil
}

// CountChunks returns the number of stored chunks for a source.
func (s *Store) CountChunks(ctx context.Context, sourceID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM chunks WHERE source_id = ?`, sourceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// Stats summarizes the index for the health endpoint.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM chunks`).Scan(&st.IndexSize); err != nil {
		return st, fmt.Errorf("failed to count index: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT source_id FROM chunks ORDER BY source_id`)
	if err != nil {
		return st, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return st, err
		}
		st.SourceIDs = append(st.SourceIDs, id)
	}
	st.UniqueSources = len(st.SourceIDs)
	return st, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("malformed vector blob: %d bytes", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}
