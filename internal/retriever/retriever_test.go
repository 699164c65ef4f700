package retriever_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dsatow/lexilocal/internal/chunker"
	"github.com/dsatow/lexilocal/internal/dataset"
	"github.com/dsatow/lexilocal/internal/model"
	apperr "github.com/dsatow/lexilocal/internal/pkg/errors"
	"github.com/dsatow/lexilocal/internal/pkg/metrics"
	"github.com/dsatow/lexilocal/internal/retriever"
)

// fakeEmbedder maps keyword families onto fixed vector axes so similarity
// is predictable without a real model.
type fakeEmbedder struct {
	batchCalls  int
	singleCalls int
	batchErr    error
}

var keywordAxes = [][]string{
	1: {"contract", "breach", "agreement", "purchase"},
	2: {"fourth", "amendment", "seizure", "rights"},
	3: {"patent", "infringement", "injunction"},
}

func (f *fakeEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := []float32{0.1, 0, 0, 0}
	for axis, words := range keywordAxes {
		if axis == 0 {
			continue
		}
		for _, w := range words {
			v[axis] += float32(strings.Count(lower, w))
		}
	}
	return v
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.singleCalls++
	return f.vector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	f.batchCalls++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, f.vector(t))
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake" }

func newTestRetriever(t *testing.T) (*retriever.Retriever, *fakeEmbedder, *retriever.MemoryStore) {
	t.Helper()
	splitter, err := chunker.New(500, 100)
	require.NoError(t, err)
	emb := &fakeEmbedder{}
	store := retriever.NewMemoryStore()
	return retriever.New(splitter, emb, store, metrics.NewRecorder()), emb, store
}

func TestProcessIngestsSampleCorpus(t *testing.T) {
	r, emb, _ := newTestRetriever(t)
	report, err := r.Process(context.Background(), dataset.Sample())
	require.NoError(t, err)
	require.Equal(t, 3, report.Documents)
	require.Equal(t, 0, report.Skipped)
	require.Greater(t, report.Chunks, 0)
	require.Equal(t, 1, emb.batchCalls, "embedding must be one batch call per process")

	stats, err := r.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, report.Chunks, stats.Chunks)
	require.Equal(t, 4, stats.Dimension)
}

func TestProcessSkipsEmptyDocuments(t *testing.T) {
	r, _, _ := newTestRetriever(t)
	docs := []model.Document{
		{ID: "blank", Title: "Blank", Text: "   \n\t  "},
		dataset.Sample()[0],
	}
	report, err := r.Process(context.Background(), docs)
	require.NoError(t, err)
	require.Equal(t, 1, report.Skipped)
	require.Len(t, report.Failures, 1)
	require.Equal(t, "blank", report.Failures[0].DocID)
	require.Greater(t, report.Chunks, 0)
}

func TestSearchBeforeProcess(t *testing.T) {
	r, _, _ := newTestRetriever(t)
	_, err := r.Search(context.Background(), "contract breach", 3)
	require.ErrorIs(t, err, apperr.ErrIndexNotBuilt)
}

func TestSearchRanksRelevantDocumentFirst(t *testing.T) {
	r, _, _ := newTestRetriever(t)
	_, err := r.Process(context.Background(), dataset.Sample())
	require.NoError(t, err)

	results, err := r.Search(context.Background(), "contract breach", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "001", results[0].DocID, "contract case should rank first for a contract query")

	var patentScore float32 = -2
	for _, res := range results {
		if res.DocID == "003" && res.Score > patentScore {
			patentScore = res.Score
		}
	}
	if patentScore > -2 {
		require.Greater(t, results[0].Score, patentScore)
	}
	for i := 1; i < len(results); i++ {
		require.LessOrEqual(t, results[i].Score, results[i-1].Score, "scores must be non-increasing")
	}
}

func TestProcessReplacesPreviousIndex(t *testing.T) {
	r, _, _ := newTestRetriever(t)
	_, err := r.Process(context.Background(), dataset.Sample())
	require.NoError(t, err)
	first, err := r.Stats(context.Background())
	require.NoError(t, err)

	_, err = r.Process(context.Background(), dataset.Sample()[:1])
	require.NoError(t, err)
	second, err := r.Stats(context.Background())
	require.NoError(t, err)
	require.Less(t, second.Chunks, first.Chunks, "re-process must fully replace, not merge")
}

func TestProcessSurfacesEmbeddingError(t *testing.T) {
	r, emb, store := newTestRetriever(t)
	_, err := r.Process(context.Background(), dataset.Sample())
	require.NoError(t, err)
	before, err := store.Count(context.Background())
	require.NoError(t, err)

	emb.batchErr = errors.New("upstream down")
	_, err = r.Process(context.Background(), dataset.Sample())
	require.ErrorIs(t, err, apperr.ErrEmbedding)

	after, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, before, after, "failed process must not clobber the index")
}

func TestDocumentChunksOrdered(t *testing.T) {
	r, _, _ := newTestRetriever(t)
	_, err := r.Process(context.Background(), dataset.Sample())
	require.NoError(t, err)

	chunks, err := r.DocumentChunks(context.Background(), "001")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		require.Equal(t, i, c.ChunkIndex)
		require.Equal(t, len(chunks), c.TotalChunks)
		require.Equal(t, model.MakeChunkID("001", i), c.ChunkID)
	}
}
