package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// BatchFileName is the processed-documents file written by `abitbot ingest`
// and consumed when re-indexing without reprocessing the raw downloads.
const BatchFileName = "processed_documents.json"

// LoadBatch reads a processed-documents file: a JSON list of records with
// id, text and metadata keys. Structural problems with individual records
// are left to the indexer's validation pass; this only fails on unreadable
// or malformed JSON.
func LoadBatch(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch %s: %w", path, err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding batch %s: %w", path, err)
	}
	return records, nil
}

// WriteBatch saves records as a processed-documents file, creating the
// target directory if needed.
func WriteBatch(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating batch directory: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding batch: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing batch %s: %w", path, err)
	}
	return nil
}
