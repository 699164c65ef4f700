package job

import (
	"context"

	"github.com/dsatow/lexilocal/internal/service"
)

// IndexSnapshotJob periodically persists the in-memory index so a restart
// can pick up from the last snapshot instead of re-embedding the corpus.
type IndexSnapshotJob struct {
	index  *service.IndexService
	prefix string
}

func NewIndexSnapshotJob(index *service.IndexService, prefix string) *IndexSnapshotJob {
	if prefix == "" {
		prefix = "index"
	}
	return &IndexSnapshotJob{index: index, prefix: prefix}
}

func (j *IndexSnapshotJob) Name() string {
	return "index_snapshot"
}

func (j *IndexSnapshotJob) Run(ctx context.Context) error {
	return j.index.SaveIndex(ctx, j.prefix)
}
