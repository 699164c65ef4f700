package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/dsatow/lexilocal/internal/dataset"
	"github.com/dsatow/lexilocal/internal/model"
	apperr "github.com/dsatow/lexilocal/internal/pkg/errors"
	"github.com/dsatow/lexilocal/internal/pkg/metrics"
	"github.com/dsatow/lexilocal/internal/retriever"
)

// IndexService owns the ingest and persistence side of the pipeline: loading
// documents into the index and moving index artifacts in and out of the
// artifact store.
type IndexService struct {
	retriever *retriever.Retriever
	persister *retriever.Persister
	recorder  *metrics.Recorder
}

func NewIndexService(r *retriever.Retriever, p *retriever.Persister, recorder *metrics.Recorder) *IndexService {
	return &IndexService{retriever: r, persister: p, recorder: recorder}
}

// Ingest chunks, embeds and indexes the given documents, replacing whatever
// was indexed before.
func (s *IndexService) Ingest(ctx context.Context, docs []model.Document) (*model.IngestReport, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents to ingest", apperr.ErrInvalid)
	}
	return s.retriever.Process(ctx, docs)
}

// IngestPath loads documents from a file or directory and ingests them.
func (s *IndexService) IngestPath(ctx context.Context, path string) (*model.IngestReport, error) {
	docs, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}
	docs = dataset.Validate(ctx, docs)
	logutil.GetLogger(ctx).Info("dataset loaded", zap.String("path", path), zap.Int("documents", len(docs)))
	return s.Ingest(ctx, docs)
}

// IngestSample ingests the built-in sample corpus.
func (s *IndexService) IngestSample(ctx context.Context) (*model.IngestReport, error) {
	return s.Ingest(ctx, dataset.Sample())
}

// SaveIndex persists the current index under the given artifact prefix.
func (s *IndexService) SaveIndex(ctx context.Context, prefix string) error {
	if s.persister == nil {
		return fmt.Errorf("%w: no artifact store configured", apperr.ErrInvalid)
	}
	return s.persister.Save(ctx, prefix)
}

// LoadIndex restores the index from a previously saved artifact prefix.
func (s *IndexService) LoadIndex(ctx context.Context, prefix string) error {
	if s.persister == nil {
		return fmt.Errorf("%w: no artifact store configured", apperr.ErrInvalid)
	}
	return s.persister.Load(ctx, prefix)
}

// IndexStats describes the current index together with observed latencies.
type IndexStats struct {
	Chunks    int                        `json:"total_chunks"`
	Dimension int                        `json:"dimension"`
	Timings   map[string]metrics.Summary `json:"timings,omitempty"`
}

func (s *IndexService) Stats(ctx context.Context) (*IndexStats, error) {
	stats, err := s.retriever.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &IndexStats{
		Chunks:    stats.Chunks,
		Dimension: stats.Dimension,
		Timings:   s.recorder.Snapshot(),
	}, nil
}
