package knowledge

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	chromem "github.com/philippgille/chromem-go"
)

// Embedder maps text to dense fixed-dimension vectors. Implementations must
// be deterministic for identical input and batchable.
//
// The interface is defined here, by the consumer, so the store can accept a
// Genkit-backed embedder in production and a hash-based stub in tests.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// GenkitEmbedder adapts a Genkit ai.Embedder to the Embedder interface.
type GenkitEmbedder struct {
	embedder ai.Embedder
}

// NewGenkitEmbedder wraps the given Genkit embedder.
func NewGenkitEmbedder(e ai.Embedder) *GenkitEmbedder {
	return &GenkitEmbedder{embedder: e}
}

// Embed encodes the given texts in one batched request.
func (g *GenkitEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	resp, err := g.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("embed failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding returned for text %d", i)
		}
		vectors[i] = e.Embedding
	}
	return vectors, nil
}

// Lazy defers embedder construction to first use. The model behind the
// embedder is expensive to load on a Pi, so it is built exactly once,
// guarded by sync.Once, and shared process-wide afterwards.
type Lazy struct {
	build func() (Embedder, error)

	once sync.Once
	e    Embedder
	err  error
}

// NewLazy creates a lazily initialized embedder from a build function.
func NewLazy(build func() (Embedder, error)) *Lazy {
	return &Lazy{build: build}
}

// Embed initializes the underlying embedder on first call and delegates.
// A failed initialization is sticky: every subsequent call returns the
// same error without retrying.
func (l *Lazy) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	l.once.Do(func() {
		l.e, l.err = l.build()
	})
	if l.err != nil {
		return nil, fmt.Errorf("embedder unavailable: %w", l.err)
	}
	return l.e.Embed(ctx, texts)
}

// EmbeddingFunc bridges an Embedder to chromem-go's per-text callback.
// chromem normalizes vectors itself, so no manual normalization is needed.
func EmbeddingFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) == 0 {
			return nil, fmt.Errorf("no embedding returned")
		}
		return vectors[0], nil
	}
}
