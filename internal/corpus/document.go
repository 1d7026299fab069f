// Package corpus turns harvested program pages and curriculum PDFs into
// uniform, identifiable records ready for embedding.
package corpus

import (
	"fmt"
	"strconv"

	"github.com/nvoronin/abitbot/internal/chunker"
)

// SourceKind identifies where a document's text came from.
type SourceKind string

const (
	SourceWebContent SourceKind = "web_content"
	SourceStudyPlan  SourceKind = "study_plan"
)

// Code returns the short form used inside chunk IDs.
func (k SourceKind) Code() string {
	if k == SourceStudyPlan {
		return "plan"
	}
	return "content"
}

// Document is a unit of harvested content before chunking.
type Document struct {
	ProgramName string
	Source      SourceKind
	RawText     string
	SourcePath  string
}

// Record is the atomic retrievable unit stored in the vector collection.
// Metadata is kept as a free-form mapping so batches loaded from JSON can be
// validated field-by-field before indexing.
type Record struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Expand chunks a document and assigns each chunk a deterministic ID of the
// form "{program}_{sourceCode}_{index}". Re-running on unchanged input yields
// identical IDs, which makes upserts idempotent.
func Expand(doc Document, chunkSize, overlap int) ([]Record, error) {
	chunks, err := chunker.Split(doc.RawText, chunkSize, overlap)
	if err != nil {
		return nil, fmt.Errorf("chunking %s/%s: %w", doc.ProgramName, doc.Source, err)
	}

	records := make([]Record, 0, len(chunks))
	for i, text := range chunks {
		records = append(records, Record{
			ID:   fmt.Sprintf("%s_%s_%d", doc.ProgramName, doc.Source.Code(), i),
			Text: text,
			Metadata: map[string]any{
				"program_name":   doc.ProgramName,
				"content_source": string(doc.Source),
				"source_file":    doc.SourcePath,
				"chunk_index":    i,
				"chunk_type":     string(doc.Source),
			},
		})
	}
	return records, nil
}

// MetadataString fetches a metadata value as a string, converting integers
// that survived a JSON round trip as float64.
func (r Record) MetadataString(key string) string {
	switch v := r.Metadata[key].(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.Itoa(int(v))
	default:
		return ""
	}
}
