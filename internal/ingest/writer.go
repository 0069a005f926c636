package ingest

import (
	"context"
	"strconv"

	"docingest/internal/chunking"
	"docingest/internal/core/domain"
	"docingest/internal/core/ports"
	"docingest/pkg/errors"
	"docingest/pkg/metrics"
)

// Writer turns one text fragment into an embedded, indexed chunk record.
// Any failure is fatal to the run; chunks already written stay queryable
// until a new version supersedes them.
type Writer struct {
	embedder ports.Embedder
	index    ports.SearchIndex
	metrics  *metrics.Metrics
}

func NewWriter(embedder ports.Embedder, index ports.SearchIndex, m *metrics.Metrics) *Writer {
	return &Writer{embedder: embedder, index: index, metrics: m}
}

// WriteChunk embeds the fragment text and upserts a chunk record carrying
// the document snapshot's denormalized metadata.
func (w *Writer) WriteChunk(ctx context.Context, doc *domain.Document, fragment chunking.Fragment, format string) error {
	embedding, err := w.embedder.Embed(ctx, fragment.Text)
	if err != nil {
		return errors.NewChunkWriteError(doc.ID, fragment.PageNumber, err)
	}

	fileName := fragment.FileName
	if fileName == "" {
		fileName = doc.FileName
	}

	chunk := &domain.Chunk{
		ID:                     domain.ChunkKey(doc.ID, fragment.PageNumber),
		DocumentID:             doc.ID,
		ChunkID:                strconv.Itoa(fragment.PageNumber),
		ChunkText:              fragment.Text,
		Embedding:              embedding,
		FileName:               fileName,
		ChunkSequence:          fragment.PageNumber,
		Owner:                  doc.Owner,
		Version:                doc.Version,
		Title:                  doc.Title,
		Author:                 append([]string(nil), doc.Authors...),
		DocumentClassification: doc.DocumentClassification,
		UploadDate:             doc.UploadDate,
	}

	if err := w.index.Upload(ctx, []*domain.Chunk{chunk}); err != nil {
		return errors.NewChunkWriteError(doc.ID, fragment.PageNumber, err)
	}

	if w.metrics != nil {
		w.metrics.ChunksWrittenTotal.WithLabelValues(format).Inc()
		w.metrics.ChunkTextBytes.WithLabelValues(format).Observe(float64(len(fragment.Text)))
	}
	return nil
}
