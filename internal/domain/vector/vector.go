// Package vector holds the similarity math and the embedding shape adapter.
package vector

import (
	"bytes"
	"encoding/json"
	"math"
)

// CosineSimilarity returns the cosine of the angle between a and b, clamped to [-1, 1].
// Vectors of different length, empty vectors and zero-magnitude vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0
	}
	return math.Max(-1, math.Min(1, sim))
}

// Normalize converts a stored embedding into a flat vector.
// Accepted shapes: [0.1, 0.2, ...] and [{"embedding": [0.1, 0.2, ...]}].
// Anything else, including null, yields nil.
func Normalize(raw json.RawMessage) []float32 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}

	var flat []float32
	if err := json.Unmarshal(raw, &flat); err == nil {
		if len(flat) == 0 {
			return nil
		}
		return flat
	}

	var wrapped []struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped) != 1 {
		return nil
	}
	if len(wrapped[0].Embedding) == 0 {
		return nil
	}
	return wrapped[0].Embedding
}
