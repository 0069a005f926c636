// Package syncmeta propagates document metadata edits onto already-indexed
// chunks. Synchronization is best effort: the document update that triggered
// it has already been persisted, so per-chunk failures are reported, never
// escalated.
package syncmeta

import (
	"context"

	"docingest/internal/core/domain"
	"docingest/internal/core/ports"
	"docingest/pkg/logger"
	"docingest/pkg/metrics"
)

// ChunkFailure records one chunk that could not be updated
type ChunkFailure struct {
	ChunkID string
	Reason  string
}

// Result is the outcome of a sync pass. A pass with failures is still a
// result, not an error.
type Result struct {
	Synced []string
	Failed []ChunkFailure
}

// Syncer copies changed document fields onto the document's chunk records
type Syncer struct {
	index   ports.SearchIndex
	log     *logger.Logger
	metrics *metrics.Metrics
}

func New(index ports.SearchIndex, log *logger.Logger, m *metrics.Metrics) *Syncer {
	return &Syncer{index: index, log: log, metrics: m}
}

// SyncFields re-reads the chunks indexed for doc and upserts each one with
// the named fields copied from the document. Chunks are updated one at a
// time so a single bad record cannot sink the rest.
func (s *Syncer) SyncFields(ctx context.Context, doc *domain.Document, fields []string) Result {
	var result Result
	if len(fields) == 0 {
		return result
	}

	chunks, err := s.index.Search(ctx, ports.SearchQuery{
		DocumentID: doc.ID,
		Owner:      doc.Owner,
	})
	if err != nil {
		s.log.FromContext(ctx).Warn().
			Err(err).
			Str("document_id", doc.ID).
			Msg("Chunk metadata sync could not list chunks")
		return result
	}

	for _, chunk := range chunks {
		applyFields(chunk, doc, fields)
		if err := s.index.Upload(ctx, []*domain.Chunk{chunk}); err != nil {
			result.Failed = append(result.Failed, ChunkFailure{
				ChunkID: chunk.ID,
				Reason:  err.Error(),
			})
			continue
		}
		result.Synced = append(result.Synced, chunk.ID)
	}

	if s.metrics != nil {
		s.metrics.SyncChunksTotal.WithLabelValues("synced").Add(float64(len(result.Synced)))
		s.metrics.SyncChunksTotal.WithLabelValues("failed").Add(float64(len(result.Failed)))
	}
	s.log.LogSyncOutcome(ctx, len(result.Synced), len(result.Failed))

	return result
}

func applyFields(chunk *domain.Chunk, doc *domain.Document, fields []string) {
	for _, field := range fields {
		switch field {
		case domain.FieldTitle:
			chunk.Title = doc.Title
		case domain.FieldAuthors:
			chunk.Author = append([]string(nil), doc.Authors...)
		case domain.FieldFileName:
			chunk.FileName = doc.FileName
		case domain.FieldDocumentClassification:
			chunk.DocumentClassification = doc.DocumentClassification
		}
	}
}
