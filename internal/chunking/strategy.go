package chunking

import (
	"context"
	"strings"
)

// Fragment is one strategy-emitted slice of document text, destined to
// become a single indexed chunk.
type Fragment struct {
	PageNumber int
	Text       string
	// FileName overrides the source file name on the emitted chunk.
	// Used by spreadsheet strategies for per-sheet derived names; empty
	// means the document's own file name.
	FileName string
}

// FileContext carries per-file information into a strategy invocation
type FileContext struct {
	FileName string
	// FilePath is the local temp path of the source file. Binary formats
	// extract from disk rather than from the content slice.
	FilePath string
	// StartPage is the first page number to assign (1 when zero).
	StartPage int
}

func (fc FileContext) firstPage() int {
	if fc.StartPage > 0 {
		return fc.StartPage
	}
	return 1
}

// ChunkingStrategy turns file content into an ordered list of text
// fragments. An empty result is not an error.
type ChunkingStrategy interface {
	Chunk(ctx context.Context, content []byte, fc FileContext) ([]Fragment, error)
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
