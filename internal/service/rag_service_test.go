package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dsatow/lexilocal/internal/chunker"
	"github.com/dsatow/lexilocal/internal/dataset"
	apperr "github.com/dsatow/lexilocal/internal/pkg/errors"
	"github.com/dsatow/lexilocal/internal/pkg/metrics"
	"github.com/dsatow/lexilocal/internal/retriever"
	"github.com/dsatow/lexilocal/internal/service"
)

type fakeEmbedder struct{}

func (fakeEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := []float32{0.1, 0, 0}
	v[1] = float32(strings.Count(lower, "contract") + strings.Count(lower, "breach"))
	v[2] = float32(strings.Count(lower, "patent") + strings.Count(lower, "injunction"))
	return v
}

func (f fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return f.vector(text), nil
}

func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, f.vector(t))
	}
	return out, nil
}

func (fakeEmbedder) ModelName() string { return "fake" }

type fakeGenerator struct {
	calls   int
	prompts []string
	err     error
	reply   string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if g.reply != "" {
		return g.reply, nil
	}
	return "generated answer", nil
}

func newRAG(t *testing.T, gen *fakeGenerator, ingest bool) *service.RAGService {
	t.Helper()
	splitter, err := chunker.New(500, 100)
	require.NoError(t, err)
	store := retriever.NewMemoryStore()
	rec := metrics.NewRecorder()
	r := retriever.New(splitter, fakeEmbedder{}, store, rec)
	if ingest {
		_, err = r.Process(context.Background(), dataset.Sample())
		require.NoError(t, err)
	}
	return service.NewRAGService(r, gen, rec, 3)
}

func TestAskFallsBackOnEmptyIndex(t *testing.T) {
	splitter, err := chunker.New(500, 100)
	require.NoError(t, err)
	store := retriever.NewMemoryStore()
	require.NoError(t, store.RestoreSnapshot(retriever.Snapshot{Dimension: 3}))
	rec := metrics.NewRecorder()
	gen := &fakeGenerator{}
	svc := service.NewRAGService(retriever.New(splitter, fakeEmbedder{}, store, rec), gen, rec, 3)

	ans, err := svc.Ask(context.Background(), "contract breach", 3)
	require.NoError(t, err)
	require.Equal(t, "I couldn't find relevant information in the legal documents to answer your question.", ans.Answer)
	require.Empty(t, ans.Sources)
	require.Empty(t, ans.ContextUsed)
	require.Zero(t, gen.calls, "generator must not run without retrieved context")
}

func TestAskWithoutIndex(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newRAG(t, gen, false)
	_, err := svc.Ask(context.Background(), "what happened", 3)
	require.ErrorIs(t, err, apperr.ErrIndexNotBuilt)
	require.Zero(t, gen.calls)
}

func TestAskAnswersFromContext(t *testing.T) {
	gen := &fakeGenerator{reply: "the defendant breached the contract"}
	svc := newRAG(t, gen, true)

	ans, err := svc.Ask(context.Background(), "what was the contract breach about", 3)
	require.NoError(t, err)
	require.Equal(t, "the defendant breached the contract", ans.Answer)
	require.Equal(t, 1, gen.calls)
	require.Len(t, ans.Sources, len(ans.ContextUsed))
	require.NotEmpty(t, ans.Sources)

	prompt := gen.prompts[0]
	require.Contains(t, prompt, "--- Document 1:")
	require.Contains(t, prompt, "Citation:")
	require.Contains(t, prompt, "what was the contract breach about")
	require.Contains(t, prompt, ans.ContextUsed[0].Text)
}

func TestAskCachesIdenticalQuestions(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newRAG(t, gen, true)
	ctx := context.Background()

	first, err := svc.Ask(ctx, "contract breach damages", 3)
	require.NoError(t, err)
	second, err := svc.Ask(ctx, "contract breach damages", 3)
	require.NoError(t, err)
	require.Equal(t, first.Answer, second.Answer)
	require.Equal(t, 1, gen.calls)
}

func TestAskGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	svc := newRAG(t, gen, true)
	_, err := svc.Ask(context.Background(), "contract breach", 3)
	require.ErrorIs(t, err, apperr.ErrGeneration)
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newRAG(t, gen, true)
	_, err := svc.Ask(context.Background(), "   ", 3)
	require.ErrorIs(t, err, apperr.ErrInvalid)
	require.Zero(t, gen.calls)
}

func TestSummarizeBuildsStructuredPrompt(t *testing.T) {
	gen := &fakeGenerator{reply: "Facts: ..."}
	svc := newRAG(t, gen, true)

	summary, err := svc.Summarize(context.Background(), "Some opinion text.")
	require.NoError(t, err)
	require.Equal(t, "Facts: ...", summary)
	require.Contains(t, gen.prompts[0], "(Facts, Issues, Holding, Reasoning)")
	require.Contains(t, gen.prompts[0], "Some opinion text.")
}

func TestSummarizeByTitleHit(t *testing.T) {
	gen := &fakeGenerator{reply: "case summary"}
	svc := newRAG(t, gen, true)

	res, err := svc.SummarizeByTitle(context.Background(), "contract breach purchase agreement")
	require.NoError(t, err)
	require.Equal(t, "case summary", res.Summary)
	require.NotNil(t, res.Source)
	require.Greater(t, res.Source.TotalChunks, 0)
	require.NotEmpty(t, res.Source.Title)

	// full document text, all chunks, goes into the prompt
	require.Equal(t, 1, gen.calls)
}

func TestSummarizeByTitleMissOnEmptyIndex(t *testing.T) {
	splitter, err := chunker.New(500, 100)
	require.NoError(t, err)
	store := retriever.NewMemoryStore()
	require.NoError(t, store.RestoreSnapshot(retriever.Snapshot{Dimension: 3}))
	rec := metrics.NewRecorder()
	gen := &fakeGenerator{}
	svc := service.NewRAGService(retriever.New(splitter, fakeEmbedder{}, store, rec), gen, rec, 3)

	res, err := svc.SummarizeByTitle(context.Background(), "Unknown v. Nobody")
	require.NoError(t, err)
	require.Nil(t, res.Source)
	require.Contains(t, res.Summary, "not found")
	require.Contains(t, res.Summary, "Unknown v. Nobody")
	require.Zero(t, gen.calls, "generator must not run when no document matched")
}

func TestSummarizeByTitleWithoutIndex(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newRAG(t, gen, false)

	_, err := svc.SummarizeByTitle(context.Background(), "Unknown v. Nobody")
	require.ErrorIs(t, err, apperr.ErrIndexNotBuilt)
	require.Zero(t, gen.calls)
}
