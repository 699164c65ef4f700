package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/dsatow/lexilocal/internal/ai"
	"github.com/dsatow/lexilocal/internal/chunker"
	"github.com/dsatow/lexilocal/internal/model"
	apperr "github.com/dsatow/lexilocal/internal/pkg/errors"
	"github.com/dsatow/lexilocal/internal/pkg/metrics"
)

// Retriever owns the chunk/vector pair for its process lifetime. Process and
// the read operations must not overlap on the same instance; reads are safe
// to run concurrently with each other (the store serializes the swap).
type Retriever struct {
	splitter *chunker.Splitter
	embedder ai.IEmbedder
	store    Store
	recorder *metrics.Recorder
}

func New(splitter *chunker.Splitter, embedder ai.IEmbedder, store Store, recorder *metrics.Recorder) *Retriever {
	return &Retriever{
		splitter: splitter,
		embedder: embedder,
		store:    store,
		recorder: recorder,
	}
}

// Process chunks all documents, embeds the whole batch in one embedder call,
// and replaces the store content. Documents with empty text are skipped and
// reported; they never abort the batch.
func (r *Retriever) Process(ctx context.Context, docs []model.Document) (*model.IngestReport, error) {
	defer r.recorder.Timer("document_processing")()
	logger := logutil.GetLogger(ctx)

	report := &model.IngestReport{Documents: len(docs)}
	var chunks []model.Chunk
	var texts []string
	for i, doc := range docs {
		docID := doc.ID
		if docID == "" {
			docID = fmt.Sprintf("doc_%d", i)
		}
		if strings.TrimSpace(doc.Text) == "" {
			logger.Warn("skipping document with empty text", zap.String("doc_id", docID))
			report.Skipped++
			report.Failures = append(report.Failures, model.DocumentFailure{
				DocID:  docID,
				Reason: "empty document text",
			})
			continue
		}
		pieces := r.splitter.Split(doc.Text)
		for idx, piece := range pieces {
			chunks = append(chunks, model.Chunk{
				DocID:       docID,
				ChunkID:     model.MakeChunkID(docID, idx),
				ChunkIndex:  idx,
				TotalChunks: len(pieces),
				Text:        piece,
				Title:       doc.Title,
				Citation:    doc.Citation,
				State:       doc.State,
				Issuer:      doc.Issuer,
			})
			texts = append(texts, piece)
		}
	}
	report.Chunks = len(chunks)
	logger.Info("chunked documents",
		zap.Int("documents", report.Documents),
		zap.Int("skipped", report.Skipped),
		zap.Int("chunks", report.Chunks),
	)

	var vectors [][]float32
	if len(texts) > 0 {
		stop := r.recorder.Timer("embedding")
		var err error
		vectors, err = r.embedder.EmbedBatch(ctx, texts, ai.TaskRetrievalDocument)
		stop()
		if err != nil {
			return nil, fmt.Errorf("%w: embed %d chunks: %w", apperr.ErrEmbedding, len(texts), err)
		}
	}
	if err := r.store.Replace(ctx, chunks, vectors); err != nil {
		return nil, err
	}
	logger.Info("index rebuilt", zap.Int("vectors", len(vectors)))
	return report, nil
}

// Search embeds the query and returns the top-k chunks with scores.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]model.SearchResult, error) {
	defer r.recorder.Timer("search")()
	vec, err := r.embedder.Embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", apperr.ErrEmbedding, err)
	}
	return r.store.Search(ctx, vec, k)
}

// DocumentChunks returns all chunks of a document in chunk order.
func (r *Retriever) DocumentChunks(ctx context.Context, docID string) ([]model.Chunk, error) {
	return r.store.DocumentChunks(ctx, docID)
}

// Stats describes the current index content.
type Stats struct {
	Chunks    int `json:"chunks"`
	Dimension int `json:"dimension,omitempty"`
}

func (r *Retriever) Stats(ctx context.Context) (Stats, error) {
	count, err := r.store.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Chunks: count}
	if mem, ok := r.store.(*MemoryStore); ok {
		st.Dimension = mem.Dimension()
	}
	return st, nil
}

// Store exposes the underlying store for persistence wiring.
func (r *Retriever) Store() Store {
	return r.store
}
