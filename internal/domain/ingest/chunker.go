package ingest

import "strings"

// Default chunking parameters, in whitespace tokens.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50
)

// Chunk splits text into windows of at most chunkSize tokens, advancing by
// (chunkSize - overlap) tokens so consecutive chunks share their boundary.
// Tokens are whitespace-separated words; each chunk is the space-joined
// text of its tokens. Empty input yields nil; overlap >= chunkSize is
// clamped to chunkSize-1.
func Chunk(text string, chunkSize, overlap int) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	if len(tokens) <= chunkSize {
		return []string{strings.Join(tokens, " ")}
	}

	stride := chunkSize - overlap
	var chunks []string
	for start := 0; start < len(tokens); start += stride {
		end := start + chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[start:end], " "))
		if end == len(tokens) {
			break
		}
	}
	return chunks
}
