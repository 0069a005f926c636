package chunking

import (
	"context"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"docingest/pkg/errors"
)

// htmlStrategy converts HTML to markdown and reuses the markdown
// sectioning, so HTML and markdown uploads chunk identically.
type htmlStrategy struct {
	converter *md.Converter
	markdown  *markdownStrategy
}

func newHTMLStrategy(markdown *markdownStrategy) *htmlStrategy {
	converter := md.NewConverter("", true, &md.Options{
		HorizontalRule:   "---",
		BulletListMarker: "*",
		CodeBlockStyle:   "fenced",
		Fence:            "```",
		EmDelimiter:      "*",
		StrongDelimiter:  "**",
		LinkStyle:        "inlined",
	})
	return &htmlStrategy{converter: converter, markdown: markdown}
}

func (s *htmlStrategy) Chunk(ctx context.Context, content []byte, fc FileContext) ([]Fragment, error) {
	converted, err := s.converter.ConvertString(string(content))
	if err != nil {
		return nil, errors.NewExtractionError(fc.FileName, err)
	}
	return s.markdown.Chunk(ctx, []byte(converted), fc)
}
