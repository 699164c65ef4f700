package retriever_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dsatow/lexilocal/internal/dataset"
	"github.com/dsatow/lexilocal/internal/filestore"
	apperr "github.com/dsatow/lexilocal/internal/pkg/errors"
	"github.com/dsatow/lexilocal/internal/retriever"
)

func newTestPersister(t *testing.T, mem *retriever.MemoryStore) (*retriever.Persister, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := filestore.New(filestore.Config{
		Type: "local",
		Data: map[string]interface{}{"dir": dir},
	})
	require.NoError(t, err)
	meta := retriever.IndexMeta{
		ChunkSize:      500,
		ChunkOverlap:   100,
		EmbeddingModel: "fake",
	}
	return retriever.NewPersister(store, mem, meta), dir
}

func buildPopulatedStore(t *testing.T) *retriever.MemoryStore {
	t.Helper()
	r, _, store := newTestRetriever(t)
	_, err := r.Process(context.Background(), dataset.Sample())
	require.NoError(t, err)
	return store
}

func TestPersistRoundTrip(t *testing.T) {
	src := buildPopulatedStore(t)
	p, _ := newTestPersister(t, src)
	ctx := context.Background()
	require.NoError(t, p.Save(ctx, "index"))

	loaded := retriever.NewMemoryStore()
	lp := samePathPersister(t, p, loaded)
	require.NoError(t, lp.Load(ctx, "index"))

	srcCount, err := src.Count(ctx)
	require.NoError(t, err)
	gotCount, err := loaded.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, srcCount, gotCount)
	require.Equal(t, src.Dimension(), loaded.Dimension())

	want := src.TakeSnapshot()
	got := loaded.TakeSnapshot()
	require.Equal(t, want.Chunks, got.Chunks)
	require.Equal(t, want.Vectors, got.Vectors)
}

func TestLoadMissingArtifacts(t *testing.T) {
	mem := retriever.NewMemoryStore()
	p, _ := newTestPersister(t, mem)
	err := p.Load(context.Background(), "nothing-here")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLoadCorruptVectorArtifact(t *testing.T) {
	src := buildPopulatedStore(t)
	p, dir := newTestPersister(t, src)
	ctx := context.Background()
	require.NoError(t, p.Save(ctx, "index"))

	// truncate the vector artifact mid-payload
	vecPath := filepath.Join(dir, "index.vec")
	data, err := os.ReadFile(vecPath)
	require.NoError(t, err)
	require.Greater(t, len(data), 20)
	require.NoError(t, os.WriteFile(vecPath, data[:len(data)-3], 0o644))

	loaded := retriever.NewMemoryStore()
	lp := samePathPersister(t, p, loaded)
	err = lp.Load(ctx, "index")
	require.ErrorIs(t, err, apperr.ErrCorruptIndex)

	// failed load must leave the target store empty
	count, err := loaded.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestLoadBadMagic(t *testing.T) {
	src := buildPopulatedStore(t)
	p, dir := newTestPersister(t, src)
	ctx := context.Background()
	require.NoError(t, p.Save(ctx, "index"))

	vecPath := filepath.Join(dir, "index.vec")
	data, err := os.ReadFile(vecPath)
	require.NoError(t, err)
	copy(data[:4], "JUNK")
	require.NoError(t, os.WriteFile(vecPath, data, 0o644))

	loaded := retriever.NewMemoryStore()
	lp := samePathPersister(t, p, loaded)
	require.ErrorIs(t, lp.Load(ctx, "index"), apperr.ErrCorruptIndex)
}

func TestLoadRejectsOversizedHeader(t *testing.T) {
	src := buildPopulatedStore(t)
	p, dir := newTestPersister(t, src)
	ctx := context.Background()
	require.NoError(t, p.Save(ctx, "index"))

	// forge a header claiming ~4 billion vectors
	vecPath := filepath.Join(dir, "index.vec")
	data, err := os.ReadFile(vecPath)
	require.NoError(t, err)
	for i := 12; i < 16; i++ {
		data[i] = 0xff
	}
	require.NoError(t, os.WriteFile(vecPath, data, 0o644))

	loaded := retriever.NewMemoryStore()
	lp := samePathPersister(t, p, loaded)
	require.ErrorIs(t, lp.Load(ctx, "index"), apperr.ErrCorruptIndex)
}

func TestLoadChunkVectorCountMismatch(t *testing.T) {
	src := buildPopulatedStore(t)
	p, dir := newTestPersister(t, src)
	ctx := context.Background()
	require.NoError(t, p.Save(ctx, "index"))

	// drop a full vector record from the payload and patch the count header
	vecPath := filepath.Join(dir, "index.vec")
	data, err := os.ReadFile(vecPath)
	require.NoError(t, err)
	dim := src.Dimension()
	count := int(uint32(data[12]) | uint32(data[13])<<8 | uint32(data[14])<<16 | uint32(data[15])<<24)
	require.Greater(t, count, 1)
	newCount := uint32(count - 1)
	data[12] = byte(newCount)
	data[13] = byte(newCount >> 8)
	data[14] = byte(newCount >> 16)
	data[15] = byte(newCount >> 24)
	data = data[:len(data)-dim*4]
	require.NoError(t, os.WriteFile(vecPath, data, 0o644))

	loaded := retriever.NewMemoryStore()
	lp := samePathPersister(t, p, loaded)
	require.ErrorIs(t, lp.Load(ctx, "index"), apperr.ErrCorruptIndex)
}

func TestFailedLoadLeavesStoreUnchanged(t *testing.T) {
	mem := buildPopulatedStore(t)
	ctx := context.Background()
	before, err := mem.Count(ctx)
	require.NoError(t, err)

	p, _ := newTestPersister(t, mem)
	err = p.Load(ctx, "never-saved")
	require.Error(t, err)

	after, err := mem.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

// samePathPersister builds a persister over the same artifact store as p but
// targeting a different memory store.
func samePathPersister(t *testing.T, p *retriever.Persister, mem *retriever.MemoryStore) *retriever.Persister {
	t.Helper()
	return p.WithStore(mem)
}
