// Package ingest orchestrates one document's processing run: resolve a
// chunking strategy, emit fragments in order, embed and index each one, and
// drive the document's status ladder along the way.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docingest/internal/chunking"
	"docingest/internal/core/domain"
	"docingest/internal/core/ports"
	"docingest/internal/lifecycle"
	"docingest/pkg/logger"
	"docingest/pkg/metrics"
)

// Job identifies one queued upload to process
type Job struct {
	DocumentID  string       `json:"document_id"`
	Owner       domain.Owner `json:"owner"`
	StoragePath string       `json:"storage_path"`
}

// Enricher runs the optional post-success metadata pass
type Enricher interface {
	Enrich(ctx context.Context, doc *domain.Document) error
}

// Runner executes ingestion runs. One run per document; runs for different
// documents are independent.
type Runner struct {
	dispatcher *chunking.Dispatcher
	lifecycle  *lifecycle.Manager
	writer     *Writer
	store      ports.ObjectStore
	enricher   Enricher
	tempDir    string
	log        *logger.Logger
	metrics    *metrics.Metrics
}

func NewRunner(dispatcher *chunking.Dispatcher, lc *lifecycle.Manager, writer *Writer, store ports.ObjectStore, enricher Enricher, tempDir string, log *logger.Logger, m *metrics.Metrics) *Runner {
	return &Runner{
		dispatcher: dispatcher,
		lifecycle:  lc,
		writer:     writer,
		store:      store,
		enricher:   enricher,
		tempDir:    tempDir,
		log:        log,
		metrics:    m,
	}
}

// Run processes one document end to end. Any failure becomes a terminal
// "Error: ..." status on the document; the status text is the only failure
// channel visible outside this subsystem.
func (r *Runner) Run(ctx context.Context, job Job) error {
	ctx = logger.WithRunID(ctx)
	ctx = logger.WithDocument(ctx, job.DocumentID, job.Owner.Key())

	doc, err := r.lifecycle.GetDocument(ctx, job.DocumentID, job.Owner)
	if err != nil {
		r.log.FromContext(ctx).Error().Err(err).Msg("Ingestion run has no document record")
		return err
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(doc.FileName)), ".")
	start := time.Now()
	if r.metrics != nil {
		r.metrics.RunsInFlight.Inc()
		defer r.metrics.RunsInFlight.Dec()
		defer func() {
			r.metrics.RunDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
		}()
	}
	r.log.LogIngestStart(ctx, doc.FileName, 0)

	chunks, err := r.run(ctx, doc, job, format)
	if err != nil {
		r.log.LogIngestFailed(ctx, doc.FileName, err)
		if r.metrics != nil {
			r.metrics.RunsTotal.WithLabelValues(format, "failed").Inc()
		}
		status := domain.ErrorStatus(err)
		if _, updateErr := r.lifecycle.UpdateDocument(ctx, job.DocumentID, job.Owner, domain.DocumentPatch{
			Status: &status,
		}); updateErr != nil {
			r.log.FromContext(ctx).Error().Err(updateErr).Msg("Could not record run failure on document")
		}
		return err
	}

	r.log.LogIngestComplete(ctx, doc.FileName, chunks, time.Since(start))
	if r.metrics != nil {
		r.metrics.RunsTotal.WithLabelValues(format, "success").Inc()
	}
	return nil
}

// run is the fail-fast body of a run. It returns the number of chunks
// written; temp artifacts are removed on every exit path.
func (r *Runner) run(ctx context.Context, doc *domain.Document, job Job, format string) (int, error) {
	data, err := r.store.Download(ctx, job.StoragePath)
	if err != nil {
		return 0, err
	}

	workDir, err := os.MkdirTemp(r.tempDir, "ingest-*")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(workDir)

	localPath := filepath.Join(workDir, filepath.Base(doc.FileName))
	if err := os.WriteFile(localPath, data, 0600); err != nil {
		return 0, err
	}

	strategy, err := r.dispatcher.Resolve(doc.FileName, int64(len(data)), data)
	if err != nil {
		return 0, err
	}

	doc, err = r.setStatus(ctx, job, domain.StatusSending)
	if err != nil {
		return 0, err
	}

	fragments, err := strategy.Chunk(ctx, data, chunking.FileContext{
		FileName: doc.FileName,
		FilePath: localPath,
	})
	if err != nil {
		return 0, err
	}
	if r.metrics != nil {
		r.metrics.PagesExtracted.WithLabelValues(format).Add(float64(len(fragments)))
	}

	if len(fragments) == 0 {
		_, err = r.setStatus(ctx, job, domain.StatusNoContent)
		return 0, err
	}

	total := len(fragments)
	pages := total
	doc, err = r.lifecycle.UpdateDocument(ctx, job.DocumentID, job.Owner, domain.DocumentPatch{
		NumberOfPages: &pages,
	})
	if err != nil {
		return 0, err
	}

	// Sequential page loop. Writing and progress advance in lockstep so the
	// percentage counters stay consistent.
	for i, fragment := range fragments {
		current := i + 1
		status := domain.SavingChunkStatus(current, total)
		doc, err = r.lifecycle.UpdateDocument(ctx, job.DocumentID, job.Owner, domain.DocumentPatch{
			Status:           &status,
			CurrentFileChunk: &current,
		})
		if err != nil {
			return i, err
		}

		if err := r.writer.WriteChunk(ctx, doc, fragment, format); err != nil {
			return i, err
		}

		doc, err = r.lifecycle.UpdateDocument(ctx, job.DocumentID, job.Owner, domain.DocumentPatch{
			IncrementChunks: true,
		})
		if err != nil {
			return i + 1, err
		}
	}

	if r.enricher != nil {
		if doc, err = r.setStatus(ctx, job, domain.StatusExtractingMetadata); err != nil {
			return total, err
		}
		// Metadata enrichment is additive; its failure does not undo an
		// otherwise successful run.
		if err := r.enricher.Enrich(ctx, doc); err != nil {
			r.log.FromContext(ctx).Warn().Err(err).Msg("Metadata enrichment pass failed")
		}
	}

	_, err = r.setStatus(ctx, job, domain.StatusComplete)
	return total, err
}

func (r *Runner) setStatus(ctx context.Context, job Job, status string) (*domain.Document, error) {
	return r.lifecycle.UpdateDocument(ctx, job.DocumentID, job.Owner, domain.DocumentPatch{
		Status: &status,
	})
}
