package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures of the ingestion pipeline
type ErrorType string

const (
	ValidationError ErrorType = "validation_error"
	NotFoundError   ErrorType = "not_found_error"
	ExtractionError ErrorType = "extraction_error"
	WriteError      ErrorType = "write_error"
	SyncError       ErrorType = "sync_error"
	InternalError   ErrorType = "internal_error"
)

// IngestError is the structured error carried through a run
type IngestError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
	InnerError error                  `json:"-"`
}

// Error implements the error interface
func (e *IngestError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the inner error
func (e *IngestError) Unwrap() error {
	return e.InnerError
}

// WithContext adds context to the error
func (e *IngestError) WithContext(key string, value interface{}) *IngestError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new IngestError
func New(errType ErrorType, code, message string) *IngestError {
	return &IngestError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// Newf creates a new IngestError with a formatted message
func Newf(errType ErrorType, code, format string, args ...interface{}) *IngestError {
	return New(errType, code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with ingestion context
func Wrap(err error, errType ErrorType, code, message string) *IngestError {
	ie := New(errType, code, message)
	ie.InnerError = err
	if err != nil {
		ie.Details = err.Error()
	}
	return ie
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, errType ErrorType, code, format string, args ...interface{}) *IngestError {
	return Wrap(err, errType, code, fmt.Sprintf(format, args...))
}

// Predefined constructors

// NewUnsupportedExtensionError reports a file extension outside the allow-list
func NewUnsupportedExtensionError(ext string) *IngestError {
	return New(ValidationError, "UNSUPPORTED_EXTENSION", fmt.Sprintf("file extension '%s' is not supported", ext))
}

// NewMissingExtensionError reports a file name without an extension
func NewMissingExtensionError(fileName string) *IngestError {
	return New(ValidationError, "MISSING_EXTENSION", fmt.Sprintf("file '%s' has no extension", fileName))
}

// NewFileSizeError reports a file exceeding the configured maximum
func NewFileSizeError(size, maxSize int64) *IngestError {
	return New(ValidationError, "FILE_SIZE_EXCEEDED", fmt.Sprintf("file size %d bytes exceeds maximum allowed size of %d bytes", size, maxSize))
}

// NewInvalidOwnerError reports an owner with neither or both identifiers set
func NewInvalidOwnerError() *IngestError {
	return New(ValidationError, "INVALID_OWNER", "exactly one of user id or group id must be set")
}

// NewDocumentNotFoundError reports an update against a missing document record
func NewDocumentNotFoundError(documentID string) *IngestError {
	return New(NotFoundError, "DOCUMENT_NOT_FOUND", fmt.Sprintf("document %s not found", documentID))
}

// NewExtractionError wraps a parse/split/extraction failure with file context
func NewExtractionError(fileName string, err error) *IngestError {
	return Wrap(err, ExtractionError, "EXTRACTION_FAILED", fmt.Sprintf("content extraction failed for %s", fileName)).
		WithContext("file_name", fileName)
}

// NewChunkWriteError wraps an embedding or index-upload failure
func NewChunkWriteError(documentID string, pageNumber int, err error) *IngestError {
	return Wrap(err, WriteError, "CHUNK_WRITE_FAILED", fmt.Sprintf("failed to write chunk %d of document %s", pageNumber, documentID)).
		WithContext("document_id", documentID).
		WithContext("page_number", pageNumber)
}

// NewSyncError wraps a chunk metadata propagation failure
func NewSyncError(chunkID string, err error) *IngestError {
	return Wrap(err, SyncError, "CHUNK_SYNC_FAILED", fmt.Sprintf("failed to sync metadata onto chunk %s", chunkID)).
		WithContext("chunk_id", chunkID)
}

// IsType checks whether err (or anything it wraps) is of the given type
func IsType(err error, errType ErrorType) bool {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Type == errType
	}
	return false
}

// IsCode checks whether err carries a specific code
func IsCode(err error, code string) bool {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Code == code
	}
	return false
}
