package retriever

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dsatow/lexilocal/internal/index"
	"github.com/dsatow/lexilocal/internal/model"
	apperr "github.com/dsatow/lexilocal/internal/pkg/errors"
)

// Store holds the paired vector index and chunk metadata. Implementations
// must keep the pair consistent: a reader never observes more vectors than
// chunks or vice versa.
type Store interface {
	// Replace discards all stored chunks and vectors and installs the new
	// pair. Full replacement, never a merge.
	Replace(ctx context.Context, chunks []model.Chunk, vectors [][]float32) error
	// Search returns the top-k chunks by cosine similarity to query.
	Search(ctx context.Context, query []float32, k int) ([]model.SearchResult, error)
	// DocumentChunks returns every chunk of one document sorted by
	// ChunkIndex ascending.
	DocumentChunks(ctx context.Context, docID string) ([]model.Chunk, error)
	// Count reports the number of stored chunk/vector pairs.
	Count(ctx context.Context) (int, error)
}

// Snapshot is the serializable state of a memory store.
type Snapshot struct {
	Dimension int
	Vectors   [][]float32
	Chunks    []model.Chunk
}

// MemoryStore is the in-process Store: an exact-scan vector index with a
// parallel chunk slice joined by position. An RWMutex guards the pair so
// searches may run concurrently while Replace swaps atomically.
type MemoryStore struct {
	mu     sync.RWMutex
	index  *index.Index
	chunks []model.Chunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: index.New(0)}
}

func (s *MemoryStore) Replace(ctx context.Context, chunks []model.Chunk, vectors [][]float32) error {
	_ = ctx
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", apperr.ErrInvalid, len(chunks), len(vectors))
	}
	next := index.New(0)
	if err := next.Add(vectors); err != nil {
		return err
	}
	s.mu.Lock()
	s.index = next
	s.chunks = chunks
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, query []float32, k int) ([]model.SearchResult, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches, err := s.index.Search(query, k)
	if err != nil {
		return nil, err
	}
	results := make([]model.SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, model.SearchResult{Chunk: s.chunks[m.Position], Score: m.Score})
	}
	return results, nil
}

func (s *MemoryStore) DocumentChunks(ctx context.Context, docID string) ([]model.Chunk, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Chunk
	for _, c := range s.chunks {
		if c.DocID == docID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *MemoryStore) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Dimension()
}

// TakeSnapshot copies the current pair out for serialization.
func (s *MemoryStore) TakeSnapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Dimension: s.index.Dimension(),
		Vectors:   s.index.Vectors(),
		Chunks:    s.chunks,
	}
}

// RestoreSnapshot validates the snapshot into a fresh index and swaps it in.
// On error the store is left unchanged.
func (s *MemoryStore) RestoreSnapshot(snap Snapshot) error {
	if len(snap.Chunks) != len(snap.Vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", apperr.ErrCorruptIndex, len(snap.Chunks), len(snap.Vectors))
	}
	next := index.New(snap.Dimension)
	if err := next.Add(snap.Vectors); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrCorruptIndex, err)
	}
	s.mu.Lock()
	s.index = next
	s.chunks = snap.Chunks
	s.mu.Unlock()
	return nil
}
