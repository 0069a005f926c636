package chunking

import (
	"context"
	"strings"
)

// textStrategy splits plain text on whitespace into fixed-size word groups
type textStrategy struct {
	wordsPerChunk int
}

func newTextStrategy(wordsPerChunk int) *textStrategy {
	return &textStrategy{wordsPerChunk: wordsPerChunk}
}

func (s *textStrategy) Chunk(_ context.Context, content []byte, fc FileContext) ([]Fragment, error) {
	words := strings.Fields(string(content))
	if len(words) == 0 {
		return nil, nil
	}

	var fragments []Fragment
	page := fc.firstPage()
	for start := 0; start < len(words); start += s.wordsPerChunk {
		end := start + s.wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		fragments = append(fragments, Fragment{
			PageNumber: page,
			Text:       strings.Join(words[start:end], " "),
		})
		page++
	}
	return fragments, nil
}
