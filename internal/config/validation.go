package config

import "fmt"

// Validate checks the configuration for internally consistent values.
// It returns the first violation found, wrapped around a sentinel error.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d with chunk_size %d",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}

	if c.RetrievalTopK < 1 || c.RetrievalTopK > 10 {
		return fmt.Errorf("%w: retrieval_top_k must be between 1 and 10, got %d", ErrInvalidTopK, c.RetrievalTopK)
	}

	if c.MaxTokens < 1 || c.MaxTokens > 4096 {
		return fmt.Errorf("%w: max_tokens must be between 1 and 4096, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.DetectTokens < 1 || c.DetectTokens > 4096 {
		return fmt.Errorf("%w: detect_tokens must be between 1 and 4096, got %d", ErrInvalidMaxTokens, c.DetectTokens)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be between 0 and 2, got %g", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxConversations < 1 {
		return fmt.Errorf("%w: max_conversations must be at least 1, got %d", ErrInvalidWindow, c.MaxConversations)
	}

	switch c.DisplayDriver {
	case DisplayOLED, DisplayConsole:
	default:
		return fmt.Errorf("%w: %q (must be %q or %q)",
			ErrInvalidDisplayDriver, c.DisplayDriver, DisplayOLED, DisplayConsole)
	}

	if c.OllamaHost == "" {
		return fmt.Errorf("%w: ollama_host must not be empty", ErrInvalidOllamaHost)
	}

	return nil
}
