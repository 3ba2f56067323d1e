package rag

// Default chunking parameters for knowledge-base indexing. Small fixed
// windows keep memory use low on the Pi while still giving retrieval
// enough surrounding text.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

// Chunk splits text into fixed-size windows of chunkSize characters that
// overlap by overlap characters. Boundaries are purely character-offset
// based; the final chunk may be shorter than chunkSize.
//
// Chunk is a pure function: identical input always yields the identical
// sequence. Empty text yields nil (nothing to index). A non-positive
// chunkSize returns the whole text as a single chunk rather than erroring.
func Chunk(text string, chunkSize, overlap int) []string {
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		return []string{text}
	}

	step := chunkSize - overlap
	if step < 1 {
		step = 1
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		// Once a chunk reaches the end of the text, a further window would
		// contain only overlap already emitted.
		if end == len(runes) {
			break
		}
	}
	return chunks
}
