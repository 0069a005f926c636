package chunking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docingest/config"
	"docingest/internal/core/ports"
	"docingest/pkg/errors"
)

type stubExtractor struct {
	pages []ports.ExtractedPage
	err   error
	calls []string
}

func (s *stubExtractor) Extract(_ context.Context, filePath string) ([]ports.ExtractedPage, error) {
	s.calls = append(s.calls, filePath)
	return s.pages, s.err
}

func testIngestConfig() *config.IngestConfig {
	cfg := config.Load().Ingest
	return &cfg
}

func TestDispatcherResolve(t *testing.T) {
	dispatcher := NewDispatcher(testIngestConfig(), &stubExtractor{}, nil)

	t.Run("resolves each supported family", func(t *testing.T) {
		for _, name := range []string{"a.txt", "a.md", "a.html", "a.json", "a.csv", "a.xlsx", "a.pdf", "a.docx", "a.pptx", "a.png"} {
			strategy, err := dispatcher.Resolve(name, 100, nil)
			require.NoError(t, err, name)
			assert.NotNil(t, strategy, name)
		}
	})

	t.Run("missing extension is fatal", func(t *testing.T) {
		_, err := dispatcher.Resolve("README", 100, nil)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ValidationError))
		assert.True(t, errors.IsCode(err, "MISSING_EXTENSION"))
	})

	t.Run("unsupported extension is fatal", func(t *testing.T) {
		_, err := dispatcher.Resolve("video.mp4", 100, nil)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ValidationError))
		assert.True(t, errors.IsCode(err, "UNSUPPORTED_EXTENSION"))
	})

	t.Run("oversize file is fatal", func(t *testing.T) {
		cfg := testIngestConfig()
		cfg.MaxFileSize = 10
		small := NewDispatcher(cfg, &stubExtractor{}, nil)

		_, err := small.Resolve("a.txt", 11, nil)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ValidationError))
		assert.True(t, errors.IsCode(err, "FILE_SIZE_EXCEEDED"))
	})

	t.Run("extension decides case-insensitively", func(t *testing.T) {
		strategy, err := dispatcher.Resolve("REPORT.TXT", 100, nil)
		require.NoError(t, err)
		assert.NotNil(t, strategy)
	})
}
