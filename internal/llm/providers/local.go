// File path: internal/llm/providers/local.go
package providers

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
)

type Message struct {
	Role    string
	Content string
}

type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Embed(ctx context.Context, input []string) ([][]float32, error)
	Name() string
}

// NormalizeMessages lowercases roles and rejects empty conversations. Every
// provider runs it before dispatch so role matching is case-insensitive.
func NormalizeMessages(messages []Message) ([]Message, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages provided")
	}
	for i := range messages {
		messages[i].Role = strings.ToLower(messages[i].Role)
	}
	return messages, nil
}

// LocalProvider is an offline fallback used when no API key is configured.
// Chat echoes the last message and Embed produces deterministic vectors, so
// ingestion and retrieval stay exercisable without network access.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (l *LocalProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	messages, err := NormalizeMessages(messages)
	if err != nil {
		return "", err
	}
	last := messages[len(messages)-1].Content
	return "[local-stub] " + strings.TrimSpace(last), nil
}

func (l *LocalProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	vectors := make([][]float32, len(input))
	for i, text := range input {
		vectors[i] = localVector(text)
	}
	return vectors, nil
}

func (l *LocalProvider) Name() string {
	return "local"
}

// localVector hashes the text into a fixed-width vector so that identical
// inputs embed identically and distinct inputs usually differ.
func localVector(text string) []float32 {
	const width = 8
	vec := make([]float32, width)
	h := fnv.New32a()
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h.Reset()
		h.Write([]byte(word))
		sum := h.Sum32()
		vec[sum%width] += float32(sum%997) / 997
	}
	return vec
}
