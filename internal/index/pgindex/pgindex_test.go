package pgindex

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dsatow/lexilocal/internal/config"
	"github.com/dsatow/lexilocal/internal/db"
	"github.com/dsatow/lexilocal/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "lexilocal",
		Password: "lexilocal_pass",
		DBName:   "lexilocal_test",
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(conn))
	t.Cleanup(func() { _ = conn.Close() })

	store, err := New(context.Background(), conn, "legal_chunks_test", 3)
	require.NoError(t, err)
	_, err = conn.Exec("DELETE FROM legal_chunks_test")
	require.NoError(t, err)
	return store
}

func testChunks(n int) ([]model.Chunk, [][]float32) {
	chunks := make([]model.Chunk, 0, n)
	vectors := make([][]float32, 0, n)
	for i := 0; i < n; i++ {
		docID := fmt.Sprintf("%03d", i+1)
		chunks = append(chunks, model.Chunk{
			DocID:       docID,
			ChunkID:     model.MakeChunkID(docID, 0),
			ChunkIndex:  0,
			TotalChunks: 1,
			Text:        fmt.Sprintf("chunk %d", i),
			Title:       fmt.Sprintf("Case %d", i),
		})
		v := []float32{0, 0, 0}
		v[i%3] = 1
		vectors = append(vectors, v)
	}
	return chunks, vectors
}

func TestReplaceAndSearch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	chunks, vectors := testChunks(3)
	require.NoError(t, store.Replace(ctx, chunks, vectors))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	results, err := store.Search(ctx, []float32{0, 1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "002", results[0].DocID)
	require.InDelta(t, 1.0, float64(results[0].Score), 1e-4)
	require.Greater(t, results[0].Score, results[1].Score)
}

func TestReplaceIsFullSwap(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	chunks, vectors := testChunks(3)
	require.NoError(t, store.Replace(ctx, chunks, vectors))
	require.NoError(t, store.Replace(ctx, chunks[:1], vectors[:1]))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestReplaceRejectsDimensionMismatch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	chunks, _ := testChunks(1)
	err := store.Replace(ctx, chunks, [][]float32{{1, 0}})
	require.Error(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestDocumentChunksOrdering(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	chunks := []model.Chunk{
		{DocID: "001", ChunkID: model.MakeChunkID("001", 1), ChunkIndex: 1, TotalChunks: 2, Text: "second"},
		{DocID: "001", ChunkID: model.MakeChunkID("001", 0), ChunkIndex: 0, TotalChunks: 2, Text: "first"},
	}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}}
	require.NoError(t, store.Replace(ctx, chunks, vectors))

	got, err := store.DocumentChunks(ctx, "001")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "first", got[0].Text)
	require.Equal(t, "second", got[1].Text)
}
