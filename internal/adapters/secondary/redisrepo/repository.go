// Package redisrepo persists document records and ingestion logs in Redis.
// Documents live as JSON under doc:{id}; a per-owner hash maps each file
// name's versions to document ids so version lookups avoid scans.
package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"docingest/internal/core/domain"
	"docingest/pkg/errors"
	"docingest/pkg/logger"
)

const ingestLogTTL = 30 * 24 * time.Hour

type DocumentRepository struct {
	client *redis.Client
}

func NewDocumentRepository(client *redis.Client) *DocumentRepository {
	return &DocumentRepository{client: client}
}

func docKey(documentID string) string {
	return "doc:" + documentID
}

func versionsKey(fileName string, owner domain.Owner) string {
	return fmt.Sprintf("docver:%s:%s", owner.Key(), fileName)
}

func (r *DocumentRepository) Save(ctx context.Context, doc *domain.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, docKey(doc.ID), data, 0)
	pipe.HSet(ctx, versionsKey(doc.FileName, doc.Owner), strconv.Itoa(doc.Version), doc.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, documentID string, owner domain.Owner) (*domain.Document, error) {
	data, err := r.client.Get(ctx, docKey(documentID)).Result()
	if err == redis.Nil {
		return nil, errors.NewDocumentNotFoundError(documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	var doc domain.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	if doc.Owner.Key() != owner.Key() {
		return nil, errors.NewDocumentNotFoundError(documentID)
	}
	return &doc, nil
}

func (r *DocumentRepository) MaxVersion(ctx context.Context, fileName string, owner domain.Owner) (int, error) {
	fields, err := r.client.HKeys(ctx, versionsKey(fileName, owner)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list versions: %w", err)
	}

	max := 0
	for _, field := range fields {
		if version, err := strconv.Atoi(field); err == nil && version > max {
			max = version
		}
	}
	return max, nil
}

func (r *DocumentRepository) ListVersions(ctx context.Context, fileName string, owner domain.Owner) ([]*domain.Document, error) {
	ids, err := r.client.HVals(ctx, versionsKey(fileName, owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}

	docs := make([]*domain.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := r.GetByID(ctx, id, owner)
		if err != nil {
			if errors.IsType(err, errors.NotFoundError) {
				continue
			}
			return nil, err
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Version < docs[j].Version })
	return docs, nil
}

// IngestLog appends per-document processing entries to a capped Redis list
type IngestLog struct {
	client *redis.Client
	log    *logger.Logger
}

func NewIngestLog(client *redis.Client, log *logger.Logger) *IngestLog {
	return &IngestLog{client: client, log: log}
}

// Append records one processing entry. Logging is an audit convenience, so
// failures are swallowed after a warning.
func (l *IngestLog) Append(ctx context.Context, documentID string, owner domain.Owner, message string) {
	entry, err := json.Marshal(map[string]string{
		"owner":     owner.Key(),
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	key := "ingestlog:" + documentID
	pipe := l.client.TxPipeline()
	pipe.RPush(ctx, key, entry)
	pipe.Expire(ctx, key, ingestLogTTL)
	if _, err := pipe.Exec(ctx); err != nil && l.log != nil {
		l.log.Warn().Err(err).Str("document_id", documentID).Msg("Could not append ingest log entry")
	}
}
