package domain

import (
	"context"
	"fmt"
	"strings"
)

// Embedder turns search text into a vector comparable with drill videoEmbedding vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the vector and the provider's token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// NormalizeQuery lower-cases text, trims it and collapses inner whitespace,
// so that "Hip  Rotation " and "hip rotation" share one embedding.
func NormalizeQuery(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// InstructionEmbedder is the outermost query decorator. It prefixes the provider's
// query instruction (asymmetric models such as e5 or bge expect one) and rejects
// empty vectors, so callers never score against a zero-length embedding.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder wraps inner. An empty instruction sends the text unchanged.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed delegates the prefixed text to the inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	input := text
	if e.instruction != "" {
		input = e.instruction + text
	}
	result, err := e.inner.Embed(ctx, input)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("query embed: %w", err)
	}
	if len(result.Embedding) == 0 {
		return EmbeddingResult{}, fmt.Errorf("query embed: empty vector: %w", ErrEmbeddingProviderError)
	}
	return result, nil
}
