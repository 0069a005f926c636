package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Owner identifies who a document belongs to. Exactly one of UserID or
// GroupID is set.
type Owner struct {
	UserID  string `json:"user_id,omitempty"`
	GroupID string `json:"group_id,omitempty"`
}

// Key returns the identity string used for repository lookups
func (o Owner) Key() string {
	if o.GroupID != "" {
		return "group:" + o.GroupID
	}
	return "user:" + o.UserID
}

// IsValid reports whether exactly one identifier is set
func (o Owner) IsValid() bool {
	return (o.UserID == "") != (o.GroupID == "")
}

// Document is one version of one uploaded file
type Document struct {
	ID                     string    `json:"id"`
	FileName               string    `json:"file_name"`
	Owner                  Owner     `json:"owner"`
	Version                int       `json:"version"`
	Status                 string    `json:"status"`
	PercentageComplete     float64   `json:"percentage_complete"`
	NumChunks              int       `json:"num_chunks"`
	NumFileChunks          int       `json:"num_file_chunks"`
	NumberOfPages          int       `json:"number_of_pages"`
	CurrentFileChunk       int       `json:"current_file_chunk"`
	DocumentClassification string    `json:"document_classification"`
	Title                  string    `json:"title"`
	Authors                []string  `json:"authors"`
	Abstract               string    `json:"abstract"`
	Keywords               []string  `json:"keywords"`
	PublicationDate        string    `json:"publication_date"`
	Organization           string    `json:"organization"`
	UploadDate             time.Time `json:"upload_date"`
	LastUpdated            time.Time `json:"last_updated"`
}

// Chunk is one indexed slice of a document's content
type Chunk struct {
	ID                     string    `json:"id"`
	DocumentID             string    `json:"document_id"`
	ChunkID                string    `json:"chunk_id"`
	ChunkText              string    `json:"chunk_text"`
	Embedding              []float32 `json:"embedding"`
	FileName               string    `json:"file_name"`
	ChunkSequence          int       `json:"chunk_sequence"`
	Owner                  Owner     `json:"owner"`
	Version                int       `json:"version"`
	Title                  string    `json:"title"`
	Author                 []string  `json:"author"`
	DocumentClassification string    `json:"document_classification"`
	UploadDate             time.Time `json:"upload_date"`
}

// ChunkKey builds the index identity for a page of a document
func ChunkKey(documentID string, pageNumber int) string {
	return fmt.Sprintf("%s_%d", documentID, pageNumber)
}

// DocumentPatch carries the fields of a document update. Nil fields are
// untouched. IncrementChunks adds to NumChunks instead of replacing it.
type DocumentPatch struct {
	Status                 *string
	FileName               *string
	Title                  *string
	Authors                []string
	Abstract               *string
	Keywords               []string
	PublicationDate        *string
	Organization           *string
	DocumentClassification *string
	NumChunks              *int
	IncrementChunks        bool
	NumFileChunks          *int
	NumberOfPages          *int
	CurrentFileChunk       *int
}

// Syncable document fields propagated onto chunks
const (
	FieldTitle                  = "title"
	FieldAuthors                = "authors"
	FieldFileName               = "file_name"
	FieldDocumentClassification = "document_classification"
)

// Well-known status values. Status is free text; these are the phases the
// pipeline itself emits.
const (
	StatusQueued             = "Queued for processing"
	StatusSending            = "Sending to content extraction"
	StatusComplete           = "Processing complete"
	StatusNoContent          = "Processing complete: no content indexed"
	StatusExtractingMetadata = "Extracting final metadata"
)

// SavingChunkStatus formats the per-page progress status
func SavingChunkStatus(current, total int) string {
	return fmt.Sprintf("Saving chunk %d of %d", current, total)
}

// ErrorStatus formats a terminal error status, truncated so the status
// field stays presentable. The cut lands on a rune boundary so a
// multibyte character is never split.
func ErrorStatus(err error) string {
	msg := err.Error()
	if len(msg) > 256 {
		cut := 256
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return "Error: " + msg
}

// IsErrorStatus reports whether a status text signals failure
func IsErrorStatus(status string) bool {
	s := strings.ToLower(status)
	return strings.Contains(s, "error") || strings.Contains(s, "failed")
}
