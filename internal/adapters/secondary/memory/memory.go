// Package memory provides in-process adapters for the secondary ports.
// They back single-node runs without external services and double as
// realistic fixtures in package tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"docingest/internal/core/domain"
	"docingest/internal/core/ports"
	"docingest/pkg/errors"
)

// DocumentRepository keeps document records in a map keyed by id
type DocumentRepository struct {
	mu   sync.RWMutex
	docs map[string]*domain.Document
}

func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{docs: make(map[string]*domain.Document)}
}

func (r *DocumentRepository) Save(_ context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

func (r *DocumentRepository) GetByID(_ context.Context, documentID string, owner domain.Owner) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.Owner.Key() != owner.Key() {
		return nil, errors.NewDocumentNotFoundError(documentID)
	}
	copied := *doc
	return &copied, nil
}

func (r *DocumentRepository) MaxVersion(_ context.Context, fileName string, owner domain.Owner) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	max := 0
	for _, doc := range r.docs {
		if doc.FileName == fileName && doc.Owner.Key() == owner.Key() && doc.Version > max {
			max = doc.Version
		}
	}
	return max, nil
}

func (r *DocumentRepository) ListVersions(_ context.Context, fileName string, owner domain.Owner) ([]*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Document
	for _, doc := range r.docs {
		if doc.FileName == fileName && doc.Owner.Key() == owner.Key() {
			copied := *doc
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// SearchIndex holds chunk records in memory. Search filters by document and
// owner; ranking falls back to chunk order since there is no scoring model
// behind it.
type SearchIndex struct {
	mu     sync.RWMutex
	chunks map[string]*domain.Chunk
}

func NewSearchIndex() *SearchIndex {
	return &SearchIndex{chunks: make(map[string]*domain.Chunk)}
}

func (s *SearchIndex) Upload(_ context.Context, chunks []*domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		copied := *chunk
		s.chunks[chunk.ID] = &copied
	}
	return nil
}

func (s *SearchIndex) Search(_ context.Context, query ports.SearchQuery) ([]*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Chunk
	for _, chunk := range s.chunks {
		if query.DocumentID != "" && chunk.DocumentID != query.DocumentID {
			continue
		}
		if query.Owner != (domain.Owner{}) && chunk.Owner.Key() != query.Owner.Key() {
			continue
		}
		if query.Text != "" && !strings.Contains(strings.ToLower(chunk.ChunkText), strings.ToLower(query.Text)) {
			continue
		}
		copied := *chunk
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkSequence < out[j].ChunkSequence })
	if query.Top > 0 && len(out) > query.Top {
		out = out[:query.Top]
	}
	return out, nil
}

func (s *SearchIndex) DeleteByIDs(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.chunks, id)
	}
	return nil
}

// ObjectStore keeps uploaded blobs in a map keyed by path
type ObjectStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{blobs: make(map[string][]byte)}
}

func (o *ObjectStore) Upload(_ context.Context, path string, data []byte, _ map[string]string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.blobs[path] = append([]byte(nil), data...)
	return nil
}

func (o *ObjectStore) Download(_ context.Context, path string) ([]byte, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	data, ok := o.blobs[path]
	if !ok {
		return nil, errors.Newf(errors.NotFoundError, "OBJECT_NOT_FOUND", "no object stored at %s", path)
	}
	return append([]byte(nil), data...), nil
}

func (o *ObjectStore) Delete(_ context.Context, prefix string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for path := range o.blobs {
		if strings.HasPrefix(path, prefix) {
			delete(o.blobs, path)
		}
	}
	return nil
}
