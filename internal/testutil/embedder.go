package testutil

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync"
)

// HashEmbedderDim is the vector dimension of HashEmbedder.
const HashEmbedderDim = 64

// HashEmbedder is a deterministic embedder for tests. Each lowercase word
// hashes into a bucket of a fixed-size vector, which is then L2-normalized.
// Texts sharing words land near each other under cosine similarity, so
// retrieval tests can use meaningful queries without a model.
type HashEmbedder struct {
	mu    sync.Mutex
	calls int
}

// NewHashEmbedder creates a HashEmbedder.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{}
}

// Embed encodes each text into a word-bucket vector.
func (h *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = hashVector(text)
	}
	return vectors, nil
}

// Calls reports how many Embed invocations were made.
func (h *HashEmbedder) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func hashVector(text string) []float32 {
	vec := make([]float32, HashEmbedderDim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		f := fnv.New32a()
		_, _ = f.Write([]byte(word))
		vec[f.Sum32()%HashEmbedderDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// All-blank text still needs a valid unit vector.
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// FailingEmbedder always returns an error, for degradation tests.
type FailingEmbedder struct{}

// Embed fails unconditionally.
func (FailingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedder offline")
}
