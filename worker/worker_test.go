package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docingest/config"
	"docingest/internal/adapters/secondary/memory"
	"docingest/internal/chunking"
	"docingest/internal/core/domain"
	"docingest/internal/core/ports"
	"docingest/internal/ingest"
	"docingest/internal/lifecycle"
	"docingest/internal/syncmeta"
	"docingest/pkg/logger"
)

type channelQueue struct {
	jobs chan ingest.Job
}

func (q *channelQueue) Dequeue(ctx context.Context) (*ingest.Job, error) {
	select {
	case job := <-q.jobs:
		return &job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	}
}

func (q *channelQueue) Depth(_ context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}

type nullExtractor struct{}

func (nullExtractor) Extract(_ context.Context, _ string) ([]ports.ExtractedPage, error) {
	return nil, nil
}

type nullEmbedder struct{}

func (nullEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.5}, nil
}

func TestWorkerProcessesQueuedJobs(t *testing.T) {
	log, err := logger.New(nil)
	require.NoError(t, err)

	cfg := config.Load()
	cfg.Ingest.TempDir = t.TempDir()
	cfg.Worker.Concurrency = 2

	index := memory.NewSearchIndex()
	store := memory.NewObjectStore()
	lc := lifecycle.NewManager(memory.NewDocumentRepository(), syncmeta.New(index, log, nil), nil, log)
	runner := ingest.NewRunner(
		chunking.NewDispatcher(&cfg.Ingest, nullExtractor{}, log),
		lc,
		ingest.NewWriter(nullEmbedder{}, index, nil),
		store,
		nil,
		cfg.Ingest.TempDir,
		log,
		nil,
	)

	ctx := context.Background()
	owner := domain.Owner{UserID: "u1"}
	queue := &channelQueue{jobs: make(chan ingest.Job, 4)}

	var docIDs []string
	for _, name := range []string{"a.txt", "b.txt"} {
		require.NoError(t, store.Upload(ctx, "uploads/"+name, []byte("some plain text content"), nil))
		doc, err := lc.CreateDocument(ctx, name, owner, 1, domain.StatusQueued)
		require.NoError(t, err)
		docIDs = append(docIDs, doc.ID)
		queue.jobs <- ingest.Job{DocumentID: doc.ID, Owner: owner, StoragePath: "uploads/" + name}
	}

	w := NewWorker(queue, runner, &cfg.Worker, log, nil)
	w.Start()
	assert.True(t, w.IsRunning())

	require.Eventually(t, func() bool {
		for _, id := range docIDs {
			doc, err := lc.GetDocument(ctx, id, owner)
			if err != nil || doc.Status != domain.StatusComplete {
				return false
			}
		}
		return true
	}, 5*time.Second, 20*time.Millisecond)

	w.Stop()
	assert.False(t, w.IsRunning())
}

func TestWorkerStartStopIdempotent(t *testing.T) {
	log, err := logger.New(nil)
	require.NoError(t, err)

	queue := &channelQueue{jobs: make(chan ingest.Job)}
	cfg := config.WorkerConfig{Concurrency: 1}
	w := NewWorker(queue, nil, &cfg, log, nil)

	w.Start()
	w.Start()
	w.Stop()
	w.Stop()
	assert.False(t, w.IsRunning())
}
