package ports

import (
	"context"

	"docingest/internal/core/domain"
)

// Secondary ports: external collaborators consumed by the pipeline.
// Concrete clients live behind these interfaces; the core never touches a
// vendor SDK directly.

// ObjectStore holds uploaded source files
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, metadata map[string]string) error
	Download(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, prefix string) error
}

// SearchIndex stores and retrieves chunk records
type SearchIndex interface {
	Upload(ctx context.Context, chunks []*domain.Chunk) error
	Search(ctx context.Context, query SearchQuery) ([]*domain.Chunk, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

// SearchQuery filters and ranks chunks in the index
type SearchQuery struct {
	DocumentID string
	Owner      domain.Owner
	Text       string
	Top        int
	SelectOnly []string
}

// Embedder turns text into an embedding vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ExtractedPage is one page or slide returned by content extraction
type ExtractedPage struct {
	PageNumber int
	Content    string
}

// ContentExtractor converts binary documents into ordered page text (the DI
// collaborator).
type ContentExtractor interface {
	Extract(ctx context.Context, filePath string) ([]ExtractedPage, error)
}

// SafetyResult is the outcome of a content-safety scan
type SafetyResult struct {
	CategoryScores   map[string]int
	BlocklistMatches []string
}

// MaxSeverity returns the highest category severity in the result
func (r SafetyResult) MaxSeverity() int {
	max := 0
	for _, score := range r.CategoryScores {
		if score > max {
			max = score
		}
	}
	return max
}

// ContentSafety scans text before it reaches the language model
type ContentSafety interface {
	Analyze(ctx context.Context, text string) (SafetyResult, error)
}

// ChatMessage is one turn of a language-model conversation
type ChatMessage struct {
	Role    string
	Content string
}

// ChatModel completes a conversation. Output may arrive fenced as a code
// block; callers strip fences before parsing.
type ChatModel interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// DocumentRepository persists document records
type DocumentRepository interface {
	Save(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, documentID string, owner domain.Owner) (*domain.Document, error)
	MaxVersion(ctx context.Context, fileName string, owner domain.Owner) (int, error)
	ListVersions(ctx context.Context, fileName string, owner domain.Owner) ([]*domain.Document, error)
}

// IngestLog records per-document processing entries (external audit concern,
// best effort).
type IngestLog interface {
	Append(ctx context.Context, documentID string, owner domain.Owner, message string)
}
