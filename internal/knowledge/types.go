package knowledge

import "time"

// Document represents a stored knowledge record: a knowledge-base chunk or
// one conversation turn. Metadata must be map[string]string to comply with
// chromem-go requirements.
type Document struct {
	ID        string            // Unique identifier; re-adding an ID overwrites
	Content   string            // Document text content
	Metadata  map[string]string // type, source, chunk_index, timestamp, ...
	CreatedAt time.Time
}

// Result is a single search result with its cosine similarity score.
type Result struct {
	Document   Document
	Similarity float32 // 0-1, higher is closer
}

// SearchOption configures search behavior using the functional options
// pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK   int
	filter map[string]string
}

// WithTopK sets the maximum number of results to return. Default is 3.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithFilter restricts results to documents whose metadata contains the
// given key/value pair. Multiple filters combine with AND logic.
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{topK: 3}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
