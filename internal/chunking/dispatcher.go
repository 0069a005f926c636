package chunking

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"docingest/config"
	"docingest/internal/core/ports"
	"docingest/pkg/errors"
	"docingest/pkg/logger"
)

// Dispatcher validates an upload and resolves exactly one chunking strategy
// for it. The extension table is built once at construction.
type Dispatcher struct {
	maxFileSize int64
	allowed     map[string]bool
	strategies  map[string]ChunkingStrategy
	log         *logger.Logger
}

// NewDispatcher builds the extension to strategy table from configuration
func NewDispatcher(cfg *config.IngestConfig, extractor ports.ContentExtractor, log *logger.Logger) *Dispatcher {
	markdown := newMarkdownStrategy(cfg.SectionTargetWords, cfg.SectionMinWords)
	text := newTextStrategy(cfg.TextChunkWords)
	html := newHTMLStrategy(markdown)
	jsonStrat := newJSONStrategy(cfg.JSONChunkChars)
	tabular := newTabularStrategy(cfg.TabularChunkChars)

	strategies := map[string]ChunkingStrategy{
		".txt":  text,
		".md":   markdown,
		".html": html,
		".htm":  html,
		".json": jsonStrat,
		".csv":  tabular,
		".xlsx": tabular,
		".xls":  tabular,
	}

	pdf := newBinaryStrategy(extractor, kindPDF, cfg.DIPageLimit, cfg.DIMaxFileSize, cfg.TempDir)
	word := newBinaryStrategy(extractor, kindWord, cfg.DIPageLimit, cfg.DIMaxFileSize, cfg.TempDir)
	slides := newBinaryStrategy(extractor, kindPresentation, cfg.DIPageLimit, cfg.DIMaxFileSize, cfg.TempDir)
	image := newBinaryStrategy(extractor, kindImage, cfg.DIPageLimit, cfg.DIMaxFileSize, cfg.TempDir)

	strategies[".pdf"] = pdf
	strategies[".docx"] = word
	strategies[".pptx"] = slides
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".tif", ".heif"} {
		strategies[ext] = image
	}

	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}

	return &Dispatcher{
		maxFileSize: cfg.MaxFileSize,
		allowed:     allowed,
		strategies:  strategies,
		log:         log,
	}
}

// Resolve validates the file and returns its strategy. Violations are fatal
// validation errors raised before any chunk is produced.
func (d *Dispatcher) Resolve(fileName string, size int64, content []byte) (ChunkingStrategy, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return nil, errors.NewMissingExtensionError(fileName)
	}
	if !d.allowed[ext] {
		return nil, errors.NewUnsupportedExtensionError(ext)
	}
	if size > d.maxFileSize {
		return nil, errors.NewFileSizeError(size, d.maxFileSize)
	}

	strategy, ok := d.strategies[ext]
	if !ok {
		return nil, errors.NewUnsupportedExtensionError(ext)
	}

	// Sniffed content type is advisory only; the extension decides.
	if len(content) > 0 && d.log != nil {
		detected := mimetype.Detect(content)
		if !mimetype.EqualsAny(detected.String(), expectedMimeTypes(ext)...) {
			d.log.Warn().
				Str("file_name", fileName).
				Str("detected_type", detected.String()).
				Msg("Content type does not match file extension")
		}
	}

	return strategy, nil
}

func expectedMimeTypes(ext string) []string {
	switch ext {
	case ".txt":
		return []string{"text/plain"}
	case ".md":
		return []string{"text/plain", "text/markdown"}
	case ".html", ".htm":
		return []string{"text/html"}
	case ".json":
		return []string{"application/json", "text/plain"}
	case ".csv":
		return []string{"text/csv", "text/plain"}
	case ".xlsx":
		return []string{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}
	case ".xls":
		return []string{"application/vnd.ms-excel"}
	case ".pdf":
		return []string{"application/pdf"}
	case ".docx":
		return []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"}
	case ".pptx":
		return []string{"application/vnd.openxmlformats-officedocument.presentationml.presentation"}
	case ".jpg", ".jpeg":
		return []string{"image/jpeg"}
	case ".png":
		return []string{"image/png"}
	case ".bmp":
		return []string{"image/bmp"}
	case ".tiff", ".tif":
		return []string{"image/tiff"}
	case ".heif":
		return []string{"image/heif", "image/heic"}
	}
	return nil
}
