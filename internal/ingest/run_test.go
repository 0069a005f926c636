package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docingest/config"
	"docingest/internal/adapters/secondary/memory"
	"docingest/internal/chunking"
	"docingest/internal/core/domain"
	"docingest/internal/core/ports"
	"docingest/internal/lifecycle"
	"docingest/internal/syncmeta"
	"docingest/pkg/logger"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	return []float32{0.1, 0.2, 0.3}, f.err
}

type fakeEnricher struct {
	docs []*domain.Document
}

func (f *fakeEnricher) Enrich(_ context.Context, doc *domain.Document) error {
	f.docs = append(f.docs, doc)
	return nil
}

type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, _ string) ([]ports.ExtractedPage, error) {
	return nil, fmt.Errorf("extraction service not configured")
}

type runHarness struct {
	runner    *Runner
	lifecycle *lifecycle.Manager
	store     *memory.ObjectStore
	index     *memory.SearchIndex
	embedder  *fakeEmbedder
	enricher  *fakeEnricher
}

func newHarness(t *testing.T, withEnricher bool) *runHarness {
	t.Helper()

	log, err := logger.New(nil)
	require.NoError(t, err)

	cfg := config.Load().Ingest
	cfg.TempDir = t.TempDir()
	cfg.TextChunkWords = 5

	index := memory.NewSearchIndex()
	store := memory.NewObjectStore()
	embedder := &fakeEmbedder{}
	syncer := syncmeta.New(index, log, nil)
	lc := lifecycle.NewManager(memory.NewDocumentRepository(), syncer, nil, log)

	var enricher *fakeEnricher
	var enricherPort Enricher
	if withEnricher {
		enricher = &fakeEnricher{}
		enricherPort = enricher
	}

	runner := NewRunner(
		chunking.NewDispatcher(&cfg, stubExtractor{}, log),
		lc,
		NewWriter(embedder, index, nil),
		store,
		enricherPort,
		cfg.TempDir,
		log,
		nil,
	)

	return &runHarness{
		runner:    runner,
		lifecycle: lc,
		store:     store,
		index:     index,
		embedder:  embedder,
		enricher:  enricher,
	}
}

func (h *runHarness) upload(t *testing.T, fileName, content string) (Job, *domain.Document) {
	t.Helper()
	ctx := context.Background()
	owner := domain.Owner{UserID: "u1"}

	path := "uploads/" + fileName
	require.NoError(t, h.store.Upload(ctx, path, []byte(content), nil))

	doc, err := h.lifecycle.CreateDocument(ctx, fileName, owner, 1, domain.StatusQueued)
	require.NoError(t, err)

	return Job{DocumentID: doc.ID, Owner: owner, StoragePath: path}, doc
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("plain text end to end", func(t *testing.T) {
		h := newHarness(t, false)
		job, doc := h.upload(t, "notes.txt", "one two three four five six seven")

		require.NoError(t, h.runner.Run(ctx, job))

		final, err := h.lifecycle.GetDocument(ctx, doc.ID, job.Owner)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusComplete, final.Status)
		assert.Equal(t, float64(100), final.PercentageComplete)
		assert.Equal(t, 2, final.NumChunks)
		assert.Equal(t, 2, final.NumberOfPages)

		chunks, err := h.index.Search(ctx, ports.SearchQuery{DocumentID: doc.ID, Owner: job.Owner})
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, domain.ChunkKey(doc.ID, 1), chunks[0].ID)
		assert.Equal(t, "notes.txt", chunks[0].FileName)
		assert.Equal(t, doc.Version, chunks[0].Version)
		assert.NotEmpty(t, chunks[0].Embedding)
	})

	t.Run("empty input ends as no content, not an error", func(t *testing.T) {
		h := newHarness(t, false)
		job, doc := h.upload(t, "blank.txt", "   \n\t ")

		require.NoError(t, h.runner.Run(ctx, job))

		final, err := h.lifecycle.GetDocument(ctx, doc.ID, job.Owner)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusNoContent, final.Status)
		assert.False(t, domain.IsErrorStatus(final.Status))
		assert.Equal(t, float64(100), final.PercentageComplete)
		assert.Equal(t, 0, final.NumChunks)
	})

	t.Run("unsupported extension fails before any chunk", func(t *testing.T) {
		h := newHarness(t, false)
		job, doc := h.upload(t, "video.mp4", "data")

		require.Error(t, h.runner.Run(ctx, job))

		final, err := h.lifecycle.GetDocument(ctx, doc.ID, job.Owner)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(final.Status, "Error: "))
		assert.Equal(t, float64(0), final.PercentageComplete)
		assert.Equal(t, 0, h.embedder.calls)
	})

	t.Run("write failure freezes progress at its last value", func(t *testing.T) {
		h := newHarness(t, false)
		h.embedder.err = fmt.Errorf("embedding quota exhausted")
		job, doc := h.upload(t, "notes.txt", "one two three")

		require.Error(t, h.runner.Run(ctx, job))

		final, err := h.lifecycle.GetDocument(ctx, doc.ID, job.Owner)
		require.NoError(t, err)
		assert.True(t, domain.IsErrorStatus(final.Status))
		// One fragment: "Saving chunk 1 of 1" had already pushed the bar to
		// 85 before the write failed.
		assert.Equal(t, float64(85), final.PercentageComplete)
		assert.Equal(t, 0, final.NumChunks)
	})

	t.Run("enrichment runs after the last chunk", func(t *testing.T) {
		h := newHarness(t, true)
		job, doc := h.upload(t, "notes.txt", "one two three")

		require.NoError(t, h.runner.Run(ctx, job))

		require.Len(t, h.enricher.docs, 1)
		assert.Equal(t, domain.StatusExtractingMetadata, h.enricher.docs[0].Status)

		final, err := h.lifecycle.GetDocument(ctx, doc.ID, job.Owner)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusComplete, final.Status)
		assert.Equal(t, float64(100), final.PercentageComplete)
	})

	t.Run("missing source object fails the run", func(t *testing.T) {
		h := newHarness(t, false)
		owner := domain.Owner{UserID: "u1"}
		doc, err := h.lifecycle.CreateDocument(ctx, "ghost.txt", owner, 1, domain.StatusQueued)
		require.NoError(t, err)

		err = h.runner.Run(ctx, Job{DocumentID: doc.ID, Owner: owner, StoragePath: "uploads/ghost.txt"})
		require.Error(t, err)

		final, err := h.lifecycle.GetDocument(ctx, doc.ID, owner)
		require.NoError(t, err)
		assert.True(t, domain.IsErrorStatus(final.Status))
	})
}
