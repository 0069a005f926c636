// Package metadata enriches a freshly ingested document with fields proposed
// by a language model, grounded on the document's own indexed chunks. The
// merge is non-destructive: fields a user or upload already filled are never
// overwritten.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"docingest/config"
	"docingest/internal/core/domain"
	"docingest/internal/core/ports"
	"docingest/internal/lifecycle"
	"docingest/pkg/logger"
	"docingest/pkg/metrics"
)

// Draft is the set of fields the extraction pass may fill
type Draft struct {
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Organization    string   `json:"organization"`
	PublicationDate string   `json:"publication_date"`
	Keywords        []string `json:"keywords"`
	Abstract        string   `json:"abstract"`
}

const systemPrompt = `You extract bibliographic metadata from document excerpts.
Respond with a single JSON object holding exactly these keys:
title, authors, organization, publication_date, keywords, abstract.
Use empty strings or empty lists for anything the excerpts do not support.`

// Extractor runs the optional post-ingestion metadata pass
type Extractor struct {
	lifecycle *lifecycle.Manager
	index     ports.SearchIndex
	chat      ports.ChatModel
	safety    ports.ContentSafety
	cfg       config.MetadataConfig
	log       *logger.Logger
	metrics   *metrics.Metrics
}

func NewExtractor(lc *lifecycle.Manager, index ports.SearchIndex, chat ports.ChatModel, safety ports.ContentSafety, cfg config.MetadataConfig, log *logger.Logger, m *metrics.Metrics) *Extractor {
	return &Extractor{
		lifecycle: lc,
		index:     index,
		chat:      chat,
		safety:    safety,
		cfg:       cfg,
		log:       log,
		metrics:   m,
	}
}

// Enrich proposes and merges metadata for doc. A content-safety block ends
// the pass silently with the document untouched.
func (e *Extractor) Enrich(ctx context.Context, doc *domain.Document) error {
	draft := draftFromDocument(doc)

	if e.cfg.SafetyEnabled {
		if e.safety == nil {
			e.outcome("failed")
			return fmt.Errorf("content safety is enabled but no analyzer is configured")
		}
		result, err := e.safety.Analyze(ctx, draftText(draft, doc.FileName))
		if err != nil {
			e.outcome("failed")
			return fmt.Errorf("content safety analysis: %w", err)
		}
		if result.MaxSeverity() >= e.cfg.SeverityThreshold || len(result.BlocklistMatches) > 0 {
			e.log.FromContext(ctx).Info().
				Int("max_severity", result.MaxSeverity()).
				Int("blocklist_matches", len(result.BlocklistMatches)).
				Msg("Metadata extraction blocked by content safety")
			e.outcome("blocked")
			return nil
		}
	}

	excerpts, err := e.gatherContext(ctx, doc)
	if err != nil {
		e.outcome("failed")
		return err
	}

	proposal, err := e.propose(ctx, draft, excerpts)
	if err != nil {
		e.outcome("failed")
		return err
	}

	merged := merge(draft, proposal)
	patch, dirty := diffPatch(draft, merged)
	if !dirty {
		e.outcome("noop")
		return nil
	}

	if _, err := e.lifecycle.UpdateDocument(ctx, doc.ID, doc.Owner, patch); err != nil {
		e.outcome("failed")
		return err
	}
	e.outcome("merged")
	return nil
}

// gatherContext retrieves the top-ranked chunks of the document itself
func (e *Extractor) gatherContext(ctx context.Context, doc *domain.Document) (string, error) {
	chunks, err := e.index.Search(ctx, ports.SearchQuery{
		DocumentID: doc.ID,
		Owner:      doc.Owner,
		Text:       doc.FileName,
		Top:        e.cfg.ContextChunks,
		SelectOnly: []string{"chunk_text"},
	})
	if err != nil {
		return "", fmt.Errorf("chunk context retrieval: %w", err)
	}

	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.ChunkText)
	}
	return strings.Join(texts, "\n---\n"), nil
}

func (e *Extractor) propose(ctx context.Context, draft Draft, excerpts string) (Draft, error) {
	current, _ := json.Marshal(draft)
	answer, err := e.chat.Complete(ctx, []ports.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Known metadata:\n%s\n\nExcerpts:\n%s", current, excerpts)},
	})
	if err != nil {
		return Draft{}, fmt.Errorf("metadata completion: %w", err)
	}

	var proposal Draft
	if err := json.Unmarshal([]byte(stripCodeFences(answer)), &proposal); err != nil {
		return Draft{}, fmt.Errorf("metadata completion parse: %w", err)
	}
	return proposal, nil
}

func (e *Extractor) outcome(label string) {
	if e.metrics != nil {
		e.metrics.MetadataPassTotal.WithLabelValues(label).Inc()
	}
}

func draftFromDocument(doc *domain.Document) Draft {
	return Draft{
		Title:           doc.Title,
		Authors:         doc.Authors,
		Organization:    doc.Organization,
		PublicationDate: doc.PublicationDate,
		Keywords:        doc.Keywords,
		Abstract:        doc.Abstract,
	}
}

func draftText(draft Draft, fileName string) string {
	parts := []string{fileName, draft.Title, draft.Organization, draft.Abstract}
	parts = append(parts, draft.Authors...)
	parts = append(parts, draft.Keywords...)
	return strings.Join(parts, "\n")
}

// merge keeps every filled field of current and takes the proposal only for
// the gaps. Authors fall back to "Unknown" when neither side has any.
func merge(current, proposal Draft) Draft {
	merged := current
	if !filled(merged.Title) {
		merged.Title = proposal.Title
	}
	if !filledList(merged.Authors) {
		merged.Authors = proposal.Authors
	}
	if !filledList(merged.Authors) {
		merged.Authors = []string{"Unknown"}
	}
	if !filled(merged.Organization) {
		merged.Organization = proposal.Organization
	}
	if !filled(merged.PublicationDate) {
		merged.PublicationDate = proposal.PublicationDate
	}
	if !filledList(merged.Keywords) {
		merged.Keywords = proposal.Keywords
	}
	if !filled(merged.Abstract) {
		merged.Abstract = proposal.Abstract
	}
	return merged
}

// diffPatch builds the update for fields the merge actually changed
func diffPatch(current, merged Draft) (domain.DocumentPatch, bool) {
	var patch domain.DocumentPatch
	dirty := false
	if merged.Title != current.Title {
		patch.Title = &merged.Title
		dirty = true
	}
	if merged.Organization != current.Organization {
		patch.Organization = &merged.Organization
		dirty = true
	}
	if merged.PublicationDate != current.PublicationDate {
		patch.PublicationDate = &merged.PublicationDate
		dirty = true
	}
	if merged.Abstract != current.Abstract {
		patch.Abstract = &merged.Abstract
		dirty = true
	}
	if !equalStrings(merged.Authors, current.Authors) {
		patch.Authors = merged.Authors
		dirty = true
	}
	if !equalStrings(merged.Keywords, current.Keywords) {
		patch.Keywords = merged.Keywords
		dirty = true
	}
	return patch, dirty
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func filled(s string) bool {
	return strings.TrimSpace(s) != ""
}

func filledList(list []string) bool {
	for _, entry := range list {
		if strings.TrimSpace(entry) != "" {
			return true
		}
	}
	return false
}

// stripCodeFences removes a surrounding markdown code block, with or
// without a language tag, from a model answer.
func stripCodeFences(answer string) string {
	trimmed := strings.TrimSpace(answer)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
