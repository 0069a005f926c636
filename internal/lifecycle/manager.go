// Package lifecycle owns document records: creation with version assignment
// and patch-based updates with derived progress.
package lifecycle

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"docingest/internal/core/domain"
	"docingest/internal/core/ports"
	"docingest/internal/progress"
	"docingest/internal/syncmeta"
	"docingest/pkg/errors"
	"docingest/pkg/logger"
)

// FieldSyncer propagates changed document fields onto indexed chunks
type FieldSyncer interface {
	SyncFields(ctx context.Context, doc *domain.Document, fields []string) syncmeta.Result
}

// Manager coordinates document persistence, progress derivation, and chunk
// metadata synchronization.
type Manager struct {
	repo      ports.DocumentRepository
	syncer    FieldSyncer
	ingestLog ports.IngestLog
	log       *logger.Logger
	now       func() time.Time
}

func NewManager(repo ports.DocumentRepository, syncer FieldSyncer, ingestLog ports.IngestLog, log *logger.Logger) *Manager {
	return &Manager{
		repo:      repo,
		syncer:    syncer,
		ingestLog: ingestLog,
		log:       log,
		now:       time.Now,
	}
}

// CreateDocument registers a new version of fileName for owner. The version
// is one past the owner's highest existing version of that file name, or 1
// for a first upload.
func (m *Manager) CreateDocument(ctx context.Context, fileName string, owner domain.Owner, totalFileChunks int, initialStatus string) (*domain.Document, error) {
	if !owner.IsValid() {
		return nil, errors.NewInvalidOwnerError()
	}

	maxVersion, err := m.repo.MaxVersion(ctx, fileName, owner)
	if err != nil {
		return nil, err
	}

	now := m.now()
	doc := &domain.Document{
		ID:                     uuid.New().String(),
		FileName:               fileName,
		Owner:                  owner,
		Version:                maxVersion + 1,
		Status:                 initialStatus,
		PercentageComplete:     0,
		NumFileChunks:          totalFileChunks,
		DocumentClassification: "Pending",
		UploadDate:             now,
		LastUpdated:            now,
	}

	if err := m.repo.Save(ctx, doc); err != nil {
		return nil, err
	}

	if m.ingestLog != nil {
		m.ingestLog.Append(ctx, doc.ID, owner, "document created: "+fileName)
	}
	m.log.FromContext(ctx).Info().
		Str("document_id", doc.ID).
		Str("file_name", fileName).
		Int("version", doc.Version).
		Msg("Document created")

	return doc, nil
}

// UpdateDocument applies a patch to an existing document. The completion
// percentage is derived from the post-patch record and never decreases
// unless the new status signals failure. The record is persisted only when
// the patch actually changed something; metadata field changes then fan out
// to the document's chunks, best effort.
func (m *Manager) UpdateDocument(ctx context.Context, documentID string, owner domain.Owner, patch domain.DocumentPatch) (*domain.Document, error) {
	doc, err := m.repo.GetByID(ctx, documentID, owner)
	if err != nil {
		return nil, err
	}

	prior := doc.PercentageComplete
	changed, syncFields := applyPatch(doc, patch)

	pct := progress.Compute(doc.Status, prior, doc.NumberOfPages, doc.CurrentFileChunk)
	if pct < prior && !domain.IsErrorStatus(doc.Status) {
		pct = prior
	}
	if pct != doc.PercentageComplete {
		doc.PercentageComplete = pct
		changed = true
	}

	if !changed {
		return doc, nil
	}

	doc.LastUpdated = m.now()
	if err := m.repo.Save(ctx, doc); err != nil {
		return nil, err
	}

	if len(syncFields) > 0 && m.syncer != nil {
		result := m.syncer.SyncFields(ctx, doc, syncFields)
		if len(result.Failed) > 0 {
			m.log.FromContext(ctx).Warn().
				Str("document_id", doc.ID).
				Strs("fields", syncFields).
				Int("chunks_failed", len(result.Failed)).
				Msg("Chunk metadata sync left some chunks stale")
		}
	}

	return doc, nil
}

// GetDocument returns one document by id and owner
func (m *Manager) GetDocument(ctx context.Context, documentID string, owner domain.Owner) (*domain.Document, error) {
	return m.repo.GetByID(ctx, documentID, owner)
}

// ListVersions returns every stored version of fileName for owner
func (m *Manager) ListVersions(ctx context.Context, fileName string, owner domain.Owner) ([]*domain.Document, error) {
	return m.repo.ListVersions(ctx, fileName, owner)
}

// applyPatch mutates doc with the patch's present fields. It reports whether
// anything changed and which chunk-visible fields did.
func applyPatch(doc *domain.Document, patch domain.DocumentPatch) (bool, []string) {
	changed := false
	var syncFields []string

	setString := func(target *string, value *string, field string) {
		if value == nil || *target == *value {
			return
		}
		*target = *value
		changed = true
		if field != "" {
			syncFields = append(syncFields, field)
		}
	}
	setInt := func(target *int, value *int) {
		if value == nil || *target == *value {
			return
		}
		*target = *value
		changed = true
	}

	setString(&doc.Status, patch.Status, "")
	setString(&doc.FileName, patch.FileName, domain.FieldFileName)
	setString(&doc.Title, patch.Title, domain.FieldTitle)
	setString(&doc.Abstract, patch.Abstract, "")
	setString(&doc.PublicationDate, patch.PublicationDate, "")
	setString(&doc.Organization, patch.Organization, "")
	setString(&doc.DocumentClassification, patch.DocumentClassification, domain.FieldDocumentClassification)

	if patch.Authors != nil && !slices.Equal(doc.Authors, patch.Authors) {
		doc.Authors = append([]string(nil), patch.Authors...)
		changed = true
		syncFields = append(syncFields, domain.FieldAuthors)
	}
	if patch.Keywords != nil && !slices.Equal(doc.Keywords, patch.Keywords) {
		doc.Keywords = append([]string(nil), patch.Keywords...)
		changed = true
	}

	if patch.IncrementChunks {
		doc.NumChunks++
		changed = true
	} else {
		setInt(&doc.NumChunks, patch.NumChunks)
	}
	setInt(&doc.NumFileChunks, patch.NumFileChunks)
	setInt(&doc.NumberOfPages, patch.NumberOfPages)
	setInt(&doc.CurrentFileChunk, patch.CurrentFileChunk)

	return changed, syncFields
}
