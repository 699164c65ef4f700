package pgindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/dsatow/lexilocal/internal/index"
	"github.com/dsatow/lexilocal/internal/model"
	apperr "github.com/dsatow/lexilocal/internal/pkg/errors"
	"github.com/dsatow/lexilocal/internal/retriever"
)

// Store keeps chunk metadata and their normalized vectors in a single
// Postgres table with a pgvector column. It implements retriever.Store so it
// can stand in for the in-memory index when the corpus outgrows one process.
//
// Vectors are normalized on the way in, so the inner-product operator gives
// cosine similarity directly.
type Store struct {
	conn      *sqlx.DB
	table     string
	dimension int
}

var _ retriever.Store = (*Store)(nil)

type chunkRow struct {
	Position    int             `db:"position"`
	DocID       string          `db:"doc_id"`
	ChunkID     string          `db:"chunk_id"`
	ChunkIndex  int             `db:"chunk_index"`
	TotalChunks int             `db:"total_chunks"`
	Text        string          `db:"text"`
	Title       string          `db:"title"`
	Citation    string          `db:"citation"`
	State       string          `db:"state"`
	Issuer      string          `db:"issuer"`
	Embedding   pgvector.Vector `db:"embedding"`
}

type scoredRow struct {
	chunkRow
	Score float32 `db:"score"`
}

func New(ctx context.Context, conn *sqlx.DB, table string, dimension int) (*Store, error) {
	if table == "" {
		table = "legal_chunks"
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: vector dimension must be positive, got %d", apperr.ErrInvalid, dimension)
	}
	s := &Store{conn: conn, table: table, dimension: dimension}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		position INTEGER PRIMARY KEY,
		doc_id TEXT NOT NULL,
		chunk_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		total_chunks INTEGER NOT NULL,
		text TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		citation TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		issuer TEXT NOT NULL DEFAULT '',
		embedding vector(%d) NOT NULL
	)`, s.table, s.dimension)
	if _, err := s.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure chunk table: %w", err)
	}
	idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_doc_id_idx ON %s (doc_id, chunk_index)", s.table, s.table)
	if _, err := s.conn.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("ensure doc index: %w", err)
	}
	return nil
}

func (s *Store) Replace(ctx context.Context, chunks []model.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", apperr.ErrInvalid, len(chunks), len(vectors))
	}
	normalized := make([][]float32, 0, len(vectors))
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, table expects %d", apperr.ErrDimensionMismatch, i, len(v), s.dimension)
		}
		nv, err := index.Normalize(v)
		if err != nil {
			return fmt.Errorf("vector %d: %w", i, err)
		}
		normalized = append(normalized, nv)
	}

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.table)); err != nil {
		return fmt.Errorf("clear chunk table: %w", err)
	}
	insert := fmt.Sprintf(`INSERT INTO %s
		(position, doc_id, chunk_id, chunk_index, total_chunks, text, title, citation, state, issuer, embedding)
		VALUES (:position, :doc_id, :chunk_id, :chunk_index, :total_chunks, :text, :title, :citation, :state, :issuer, :embedding)`, s.table)
	for i, c := range chunks {
		row := chunkRow{
			Position:    i,
			DocID:       c.DocID,
			ChunkID:     c.ChunkID,
			ChunkIndex:  c.ChunkIndex,
			TotalChunks: c.TotalChunks,
			Text:        c.Text,
			Title:       c.Title,
			Citation:    c.Citation,
			State:       c.State,
			Issuer:      c.Issuer,
			Embedding:   pgvector.NewVector(normalized[i]),
		}
		if _, err := tx.NamedExecContext(ctx, insert, row); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, query []float32, k int) ([]model.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, table expects %d", apperr.ErrDimensionMismatch, len(query), s.dimension)
	}
	nq, err := index.Normalize(query)
	if err != nil {
		return nil, err
	}
	// <#> is negative inner product; flipping the sign gives cosine
	// similarity because stored vectors are normalized.
	stmt := fmt.Sprintf(`SELECT position, doc_id, chunk_id, chunk_index, total_chunks, text, title, citation, state, issuer,
		(embedding <#> $1) * -1 AS score
		FROM %s
		ORDER BY score DESC, position ASC
		LIMIT $2`, s.table)
	var rows []scoredRow
	if err := s.conn.SelectContext(ctx, &rows, stmt, pgvector.NewVector(nq), k); err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	results := make([]model.SearchResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, model.SearchResult{Chunk: r.toChunk(), Score: r.Score})
	}
	return results, nil
}

func (s *Store) DocumentChunks(ctx context.Context, docID string) ([]model.Chunk, error) {
	stmt := fmt.Sprintf(`SELECT position, doc_id, chunk_id, chunk_index, total_chunks, text, title, citation, state, issuer
		FROM %s WHERE doc_id = $1 ORDER BY chunk_index ASC`, s.table)
	var rows []chunkRow
	if err := s.conn.SelectContext(ctx, &rows, stmt, docID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select document chunks: %w", err)
	}
	chunks := make([]model.Chunk, 0, len(rows))
	for _, r := range rows {
		chunks = append(chunks, r.toChunk())
	}
	return chunks, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

func (r chunkRow) toChunk() model.Chunk {
	return model.Chunk{
		DocID:       r.DocID,
		ChunkID:     r.ChunkID,
		ChunkIndex:  r.ChunkIndex,
		TotalChunks: r.TotalChunks,
		Text:        r.Text,
		Title:       r.Title,
		Citation:    r.Citation,
		State:       r.State,
		Issuer:      r.Issuer,
	}
}
