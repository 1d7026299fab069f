// Package metrics collects statistics for an ingestion run.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/nvoronin/abitbot/internal/corpus"
)

// IngestMetrics collects statistics for a full ingestion run.
type IngestMetrics struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at,omitempty"`
	Duration   time.Duration    `json:"duration_ms,omitempty"`
	RecordsIn  int              `json:"records_in"`
	Indexed    int              `json:"indexed"`
	Skipped    int              `json:"skipped"`
	Stored     uint64           `json:"stored_total"`
	Programs   []ProgramMetrics `json:"programs"`
	Errors     []string         `json:"errors,omitempty"`
}

// ProgramMetrics counts chunks per program broken down by source kind.
type ProgramMetrics struct {
	Name       string `json:"name"`
	WebContent int    `json:"web_content"`
	StudyPlan  int    `json:"study_plan"`
}

// New starts tracking an ingestion run.
func New() *IngestMetrics {
	return &IngestMetrics{StartedAt: time.Now()}
}

// CollectRecords computes per-program chunk statistics from the batch.
func (m *IngestMetrics) CollectRecords(records []corpus.Record) {
	m.RecordsIn = len(records)

	byProgram := map[string]*ProgramMetrics{}
	for _, r := range records {
		name := r.MetadataString("program_name")
		pm, ok := byProgram[name]
		if !ok {
			pm = &ProgramMetrics{Name: name}
			byProgram[name] = pm
		}
		if r.MetadataString("chunk_type") == string(corpus.SourceStudyPlan) {
			pm.StudyPlan++
		} else {
			pm.WebContent++
		}
	}

	m.Programs = m.Programs[:0]
	for _, pm := range byProgram {
		m.Programs = append(m.Programs, *pm)
	}
	sort.Slice(m.Programs, func(i, j int) bool { return m.Programs[i].Name < m.Programs[j].Name })
}

// Finish marks the run as complete.
func (m *IngestMetrics) Finish(indexed, skipped int, stored uint64, errs []string) {
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
	m.Indexed = indexed
	m.Skipped = skipped
	m.Stored = stored
	m.Errors = errs
}

// PrintSummary writes a human-readable report.
func (m *IngestMetrics) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║        ABITBOT INGEST REPORT         ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", m.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "║ Records in:  %-23d║\n", m.RecordsIn)
	fmt.Fprintf(w, "║ Indexed:     %-23d║\n", m.Indexed)
	fmt.Fprintf(w, "║ Skipped:     %-23d║\n", m.Skipped)
	fmt.Fprintf(w, "║ In store:    %-23d║\n", m.Stored)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ PROGRAMS\n")
	for _, p := range m.Programs {
		fmt.Fprintf(w, "║   %-20s web: %-4d plan: %-4d\n", p.Name, p.WebContent, p.StudyPlan)
	}
	if len(m.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range m.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the metrics as formatted JSON.
func (m *IngestMetrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
