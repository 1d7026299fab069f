// Package chunker splits raw document text into overlapping word windows.
package chunker

import (
	"fmt"
	"strings"
)

// Defaults match the sizes the corpus was originally indexed with.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 100
)

// Split divides text into chunks of chunkSize whitespace-delimited words,
// each window advancing by chunkSize-overlap words. Empty or whitespace-only
// chunks are dropped. The output is deterministic for identical input and
// parameters, which keeps downstream chunk IDs stable.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must be non-negative, got %d", overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d must be smaller than chunk size %d", overlap, chunkSize)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := chunkSize - overlap
	var chunks []string
	for i := 0; i < len(words); i += step {
		end := i + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[i:end], " ")
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}
