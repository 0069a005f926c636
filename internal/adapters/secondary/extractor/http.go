// Package extractor is the client for the external content-extraction
// service that turns binary documents into ordered page text.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"docingest/internal/core/ports"
)

// HTTPExtractor posts a file to the extraction endpoint and decodes the
// returned page list.
type HTTPExtractor struct {
	endpoint string
	client   *http.Client
}

func NewHTTPExtractor(endpoint string, timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type extractResponse struct {
	Pages []struct {
		PageNumber int    `json:"page_number"`
		Content    string `json:"content"`
	} `json:"pages"`
}

func (e *HTTPExtractor) Extract(ctx context.Context, filePath string) ([]ports.ExtractedPage, error) {
	if e.endpoint == "" {
		return nil, fmt.Errorf("content extraction endpoint is not configured")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-File-Name", filepath.Base(filePath))

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content extraction returned status %d", resp.StatusCode)
	}

	var decoded extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("content extraction response decode: %w", err)
	}

	pages := make([]ports.ExtractedPage, 0, len(decoded.Pages))
	for _, page := range decoded.Pages {
		pages = append(pages, ports.ExtractedPage{
			PageNumber: page.PageNumber,
			Content:    page.Content,
		})
	}
	return pages, nil
}
