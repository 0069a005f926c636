package chunking

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"docingest/internal/core/ports"
	"docingest/pkg/errors"
)

type binaryKind int

const (
	kindPDF binaryKind = iota
	kindWord
	kindPresentation
	kindImage
)

// binaryStrategy delegates page extraction to the external content
// extraction collaborator. PDFs past the configured limits are first split
// into physical sub-files, each extracted independently and concatenated
// into one logical page sequence.
type binaryStrategy struct {
	extractor     ports.ContentExtractor
	kind          binaryKind
	diPageLimit   int
	diMaxFileSize int64
	tempDir       string

	// Overridable for tests; default to pdfcpu.
	pageCount func(filePath string) (int, error)
	trimPages func(inFile, outFile string, pages []string) error
}

func newBinaryStrategy(extractor ports.ContentExtractor, kind binaryKind, diPageLimit int, diMaxFileSize int64, tempDir string) *binaryStrategy {
	return &binaryStrategy{
		extractor:     extractor,
		kind:          kind,
		diPageLimit:   diPageLimit,
		diMaxFileSize: diMaxFileSize,
		tempDir:       tempDir,
		pageCount: func(filePath string) (int, error) {
			return api.PageCountFile(filePath)
		},
		trimPages: func(inFile, outFile string, pages []string) error {
			return api.TrimFile(inFile, outFile, pages, nil)
		},
	}
}

func (s *binaryStrategy) Chunk(ctx context.Context, _ []byte, fc FileContext) ([]Fragment, error) {
	var pages []ports.ExtractedPage
	var err error

	switch s.kind {
	case kindPDF:
		pages, err = s.extractPDF(ctx, fc)
	case kindWord:
		pages, err = s.extractWord(ctx, fc)
	default:
		pages, err = s.extractor.Extract(ctx, fc.FilePath)
	}
	if err != nil {
		return nil, errors.NewExtractionError(fc.FileName, err)
	}

	var fragments []Fragment
	page := fc.firstPage()
	for _, extracted := range pages {
		if strings.TrimSpace(extracted.Content) == "" {
			continue
		}
		fragments = append(fragments, Fragment{
			PageNumber: page,
			Text:       extracted.Content,
		})
		page++
	}

	// Images with no recognizable text yield zero chunks; that is a valid
	// outcome, not a failure.
	return fragments, nil
}

// extractPDF extracts a PDF, splitting it into physical sub-files first when
// its size or page count exceeds the DI limits. Sub-file pages concatenate,
// in order, into one logical sequence.
func (s *binaryStrategy) extractPDF(ctx context.Context, fc FileContext) ([]ports.ExtractedPage, error) {
	info, err := os.Stat(fc.FilePath)
	if err != nil {
		return nil, err
	}
	totalPages, err := s.pageCount(fc.FilePath)
	if err != nil {
		return nil, err
	}

	if info.Size() <= s.diMaxFileSize && totalPages <= s.diPageLimit {
		return s.extractor.Extract(ctx, fc.FilePath)
	}

	spans := subFileSpans(totalPages, s.diPageLimit)
	var subFiles []string
	defer func() {
		for _, path := range subFiles {
			os.Remove(path)
		}
	}()

	var pages []ports.ExtractedPage
	for i, span := range spans {
		subFile := filepath.Join(s.tempDir, fmt.Sprintf("%s.part%d.pdf", filepath.Base(fc.FilePath), i+1))
		if err := s.trimPages(fc.FilePath, subFile, []string{fmt.Sprintf("%d-%d", span.from, span.to)}); err != nil {
			return nil, err
		}
		subFiles = append(subFiles, subFile)

		extracted, err := s.extractor.Extract(ctx, subFile)
		if err != nil {
			return nil, err
		}
		offset := span.from - 1
		for _, p := range extracted {
			pages = append(pages, ports.ExtractedPage{
				PageNumber: p.PageNumber + offset,
				Content:    p.Content,
			})
		}
	}
	return pages, nil
}

// extractWord consolidates the extractor's fragments into logical pages:
// the collaborator may return several fragments per page for Word documents.
func (s *binaryStrategy) extractWord(ctx context.Context, fc FileContext) ([]ports.ExtractedPage, error) {
	raw, err := s.extractor.Extract(ctx, fc.FilePath)
	if err != nil {
		return nil, err
	}

	byPage := make(map[int][]string)
	for _, fragment := range raw {
		byPage[fragment.PageNumber] = append(byPage[fragment.PageNumber], fragment.Content)
	}

	numbers := make([]int, 0, len(byPage))
	for n := range byPage {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	pages := make([]ports.ExtractedPage, 0, len(numbers))
	for _, n := range numbers {
		pages = append(pages, ports.ExtractedPage{
			PageNumber: n,
			Content:    strings.Join(byPage[n], "\n"),
		})
	}
	return pages, nil
}

type pageSpan struct {
	from, to int
}

// subFileSpans computes the physical sub-file page ranges. Max pages per
// sub-file is a quarter of the DI page limit, floored at 500.
func subFileSpans(totalPages, diPageLimit int) []pageSpan {
	maxPages := diPageLimit / 4
	if maxPages < 500 {
		maxPages = 500
	}

	var spans []pageSpan
	for from := 1; from <= totalPages; from += maxPages {
		to := from + maxPages - 1
		if to > totalPages {
			to = totalPages
		}
		spans = append(spans, pageSpan{from: from, to: to})
	}
	return spans
}
