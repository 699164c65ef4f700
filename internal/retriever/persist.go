package retriever

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/dsatow/lexilocal/internal/filestore"
	"github.com/dsatow/lexilocal/internal/model"
	apperr "github.com/dsatow/lexilocal/internal/pkg/errors"
)

// Persisted index layout: two artifacts under a common prefix. The vector
// artifact is a small binary format, the metadata artifact is JSON. They are
// only valid as a pair; Load refuses to install one without the other.
const (
	vectorArtifactSuffix = ".vec"
	metaArtifactSuffix   = ".meta.json"

	vectorMagic   = "LXIV"
	vectorVersion = 1

	// Largest header values a well-formed artifact can carry. Embedding
	// models top out in the low thousands of dimensions; the count cap
	// keeps a forged header from forcing huge allocations before the
	// payload-length check fails.
	maxVectorDimension = 1 << 16
	maxVectorCount     = 1 << 24
)

// IndexMeta is the configuration snapshot stored next to the chunks so a
// loaded index can be sanity-checked against the running configuration.
type IndexMeta struct {
	ChunkSize      int    `json:"chunk_size"`
	ChunkOverlap   int    `json:"chunk_overlap"`
	Dimension      int    `json:"dimension"`
	EmbeddingModel string `json:"embedding_model"`
}

type metaArtifact struct {
	IndexMeta
	Chunks []model.Chunk `json:"chunks"`
}

// Persister saves and loads a MemoryStore's chunk/vector pair through an
// artifact store.
type Persister struct {
	artifacts filestore.Store
	mem       *MemoryStore
	meta      IndexMeta
}

func NewPersister(artifacts filestore.Store, mem *MemoryStore, meta IndexMeta) *Persister {
	return &Persister{artifacts: artifacts, mem: mem, meta: meta}
}

// WithStore returns a persister over the same artifacts targeting mem.
func (p *Persister) WithStore(mem *MemoryStore) *Persister {
	return &Persister{artifacts: p.artifacts, mem: mem, meta: p.meta}
}

// Save writes both artifacts. The metadata artifact is written second so a
// readable pair always implies a complete vector artifact.
func (p *Persister) Save(ctx context.Context, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("%w: index prefix is required", apperr.ErrInvalid)
	}
	snap := p.mem.TakeSnapshot()

	vecBlob, err := encodeVectors(snap.Dimension, snap.Vectors)
	if err != nil {
		return err
	}
	meta := metaArtifact{IndexMeta: p.meta, Chunks: snap.Chunks}
	meta.Dimension = snap.Dimension
	if meta.Chunks == nil {
		meta.Chunks = []model.Chunk{}
	}
	metaBlob, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode index metadata: %w", err)
	}

	if err := p.artifacts.Save(ctx, prefix+vectorArtifactSuffix, vecBlob); err != nil {
		return fmt.Errorf("save vector artifact: %w", err)
	}
	if err := p.artifacts.Save(ctx, prefix+metaArtifactSuffix, metaBlob); err != nil {
		return fmt.Errorf("save metadata artifact: %w", err)
	}
	logutil.GetLogger(ctx).Info("index saved",
		zap.String("prefix", prefix),
		zap.Int("vectors", len(snap.Vectors)),
		zap.Int("chunks", len(snap.Chunks)),
	)
	return nil
}

// Load reads both artifacts into temporaries and swaps them in only when the
// pair is complete and consistent. A failed load leaves the store unchanged.
func (p *Persister) Load(ctx context.Context, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("%w: index prefix is required", apperr.ErrInvalid)
	}
	vecBlob, err := p.readArtifact(ctx, prefix+vectorArtifactSuffix)
	if err != nil {
		return err
	}
	metaBlob, err := p.readArtifact(ctx, prefix+metaArtifactSuffix)
	if err != nil {
		return err
	}

	dim, vectors, err := decodeVectors(vecBlob)
	if err != nil {
		return err
	}
	var meta metaArtifact
	if err := json.Unmarshal(metaBlob, &meta); err != nil {
		return fmt.Errorf("%w: decode metadata artifact: %v", apperr.ErrCorruptIndex, err)
	}
	if len(meta.Chunks) != len(vectors) {
		return fmt.Errorf("%w: metadata has %d chunks, vector artifact has %d vectors", apperr.ErrCorruptIndex, len(meta.Chunks), len(vectors))
	}
	if meta.Dimension != 0 && meta.Dimension != dim {
		return fmt.Errorf("%w: metadata dimension %d, vector artifact dimension %d", apperr.ErrCorruptIndex, meta.Dimension, dim)
	}

	logger := logutil.GetLogger(ctx)
	if meta.ChunkSize != p.meta.ChunkSize || meta.ChunkOverlap != p.meta.ChunkOverlap {
		logger.Warn("loaded index was built with different chunking config",
			zap.Int("index_chunk_size", meta.ChunkSize),
			zap.Int("index_chunk_overlap", meta.ChunkOverlap),
			zap.Int("config_chunk_size", p.meta.ChunkSize),
			zap.Int("config_chunk_overlap", p.meta.ChunkOverlap),
		)
	}
	if err := p.mem.RestoreSnapshot(Snapshot{Dimension: dim, Vectors: vectors, Chunks: meta.Chunks}); err != nil {
		return err
	}
	logger.Info("index loaded",
		zap.String("prefix", prefix),
		zap.Int("vectors", len(vectors)),
		zap.Int("dimension", dim),
	)
	return nil
}

func (p *Persister) readArtifact(ctx context.Context, key string) ([]byte, error) {
	rc, err := p.artifacts.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", key, err)
	}
	return data, nil
}

func encodeVectors(dim int, vectors [][]float32) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(vectorMagic)
	header := [3]uint32{vectorVersion, uint32(dim), uint32(len(vectors))}
	for _, v := range header {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", apperr.ErrDimensionMismatch, i, len(vec), dim)
		}
		for _, f := range vec {
			if err := binary.Write(&buf, binary.LittleEndian, math.Float32bits(f)); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

func decodeVectors(data []byte) (int, [][]float32, error) {
	if len(data) < len(vectorMagic)+12 {
		return 0, nil, fmt.Errorf("%w: vector artifact too short", apperr.ErrCorruptIndex)
	}
	if string(data[:len(vectorMagic)]) != vectorMagic {
		return 0, nil, fmt.Errorf("%w: bad vector artifact magic", apperr.ErrCorruptIndex)
	}
	rest := data[len(vectorMagic):]
	version := binary.LittleEndian.Uint32(rest[0:4])
	if version != vectorVersion {
		return 0, nil, fmt.Errorf("%w: unsupported vector artifact version %d", apperr.ErrCorruptIndex, version)
	}
	dim := int(binary.LittleEndian.Uint32(rest[4:8]))
	count := int(binary.LittleEndian.Uint32(rest[8:12]))
	payload := rest[12:]
	// Bound the header before touching dim*count: a hostile artifact must
	// not overflow the size check or drive allocations past the payload.
	if dim > maxVectorDimension || count > maxVectorCount {
		return 0, nil, fmt.Errorf("%w: vector artifact header claims dimension %d, count %d", apperr.ErrCorruptIndex, dim, count)
	}
	if len(payload) != dim*count*4 {
		return 0, nil, fmt.Errorf("%w: vector artifact payload is %d bytes, expected %d", apperr.ErrCorruptIndex, len(payload), dim*count*4)
	}
	vectors := make([][]float32, 0, count)
	for i := 0; i < count; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			bits := binary.LittleEndian.Uint32(payload[(i*dim+j)*4:])
			vec[j] = math.Float32frombits(bits)
		}
		vectors = append(vectors, vec)
	}
	return dim, vectors, nil
}
