package chunking

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

// markdownStrategy splits markdown into heading-aware sections, then packs
// sections into fragments of targetWords with a minWords floor. Undersized
// fragments are merged forward rather than emitted as slivers; the final
// fragment always goes out whatever its size.
type markdownStrategy struct {
	targetWords int
	minWords    int
	parser      goldmark.Markdown
}

func newMarkdownStrategy(targetWords, minWords int) *markdownStrategy {
	return &markdownStrategy{
		targetWords: targetWords,
		minWords:    minWords,
		parser:      goldmark.New(),
	}
}

func (s *markdownStrategy) Chunk(_ context.Context, content []byte, fc FileContext) ([]Fragment, error) {
	sections := s.sections(content)

	// Oversized sections are pre-split so a single giant section cannot
	// blow past the target on its own.
	var pieces []string
	for _, section := range sections {
		pieces = append(pieces, splitByWords(section, s.targetWords)...)
	}

	var fragments []Fragment
	page := fc.firstPage()
	var current []string
	currentWords := 0

	emit := func() {
		if currentWords == 0 {
			return
		}
		fragments = append(fragments, Fragment{
			PageNumber: page,
			Text:       strings.TrimSpace(strings.Join(current, "\n\n")),
		})
		page++
		current = nil
		currentWords = 0
	}

	for i, piece := range pieces {
		wc := countWords(piece)
		if wc == 0 {
			continue
		}
		current = append(current, piece)
		currentWords += wc

		if currentWords >= s.targetWords {
			emit()
			continue
		}
		// At or past the floor, close the fragment early when the next
		// piece would overshoot the target.
		if currentWords >= s.minWords && i+1 < len(pieces) &&
			currentWords+countWords(pieces[i+1]) > s.targetWords {
			emit()
		}
	}
	emit()

	return fragments, nil
}

// sections splits the markdown source at top-level headings
func (s *markdownStrategy) sections(source []byte) []string {
	doc := s.parser.Parser().Parse(gtext.NewReader(source))

	var cuts []int
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		heading, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		lines := heading.Lines()
		if lines.Len() == 0 {
			continue
		}
		cuts = append(cuts, lineStart(source, lines.At(0).Start))
	}

	if len(cuts) == 0 {
		return []string{string(source)}
	}

	var sections []string
	prev := 0
	for _, cut := range cuts {
		if cut > prev {
			sections = append(sections, string(source[prev:cut]))
		}
		prev = cut
	}
	sections = append(sections, string(source[prev:]))
	return sections
}

// lineStart walks back from pos to the beginning of its line
func lineStart(source []byte, pos int) int {
	if pos > len(source) {
		pos = len(source)
	}
	for pos > 0 && source[pos-1] != '\n' {
		pos--
	}
	return pos
}

// splitByWords breaks text into pieces of at most maxWords words
func splitByWords(text string, maxWords int) []string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		if len(words) == 0 {
			return nil
		}
		return []string{text}
	}
	var pieces []string
	for start := 0; start < len(words); start += maxWords {
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}
		pieces = append(pieces, strings.Join(words[start:end], " "))
	}
	return pieces
}
