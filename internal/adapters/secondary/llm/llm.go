// Package llm adapts OpenAI-compatible chat and embedding endpoints to the
// pipeline's ChatModel and Embedder ports.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"docingest/config"
	"docingest/internal/core/ports"
)

// ChatModel completes conversations through an OpenAI-compatible chat API
type ChatModel struct {
	client llms.Model
}

func NewChatModel(cfg *config.AIConfig) (*ChatModel, error) {
	client, err := openai.New(
		openai.WithBaseURL(cfg.ChatHost),
		openai.WithToken(cfg.Token),
		openai.WithModel(cfg.ChatModel),
	)
	if err != nil {
		return nil, err
	}
	return &ChatModel{client: client}, nil
}

func (c *ChatModel) Complete(ctx context.Context, messages []ports.ChatMessage) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, message := range messages {
		content = append(content, llms.MessageContent{
			Role:  chatRole(message.Role),
			Parts: []llms.ContentPart{llms.TextPart(message.Content)},
		})
	}

	response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return response.Choices[0].Content, nil
}

func chatRole(role string) schema.ChatMessageType {
	switch strings.ToLower(role) {
	case "system":
		return schema.ChatMessageTypeSystem
	case "assistant":
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}

// Embedder produces embedding vectors through an OpenAI-compatible API
type Embedder struct {
	embedder embeddings.Embedder
}

func NewEmbedder(cfg *config.AIConfig) (*Embedder, error) {
	client, err := openai.New(
		openai.WithBaseURL(cfg.EmbeddingHost),
		openai.WithToken(cfg.Token),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}
	return &Embedder{embedder: embedder}, nil
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}
	return vectors[0], nil
}
