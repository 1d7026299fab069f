package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nvoronin/abitbot/internal/corpus"
)

func sampleRecords() []corpus.Record {
	return []corpus.Record{
		{ID: "ai_content_0", Text: "a", Metadata: map[string]any{"program_name": "ai", "chunk_type": "web_content"}},
		{ID: "ai_content_1", Text: "b", Metadata: map[string]any{"program_name": "ai", "chunk_type": "web_content"}},
		{ID: "ai_plan_0", Text: "c", Metadata: map[string]any{"program_name": "ai", "chunk_type": "study_plan"}},
		{ID: "ai_product_content_0", Text: "d", Metadata: map[string]any{"program_name": "ai_product", "chunk_type": "web_content"}},
	}
}

func TestCollectRecords(t *testing.T) {
	m := New()
	m.CollectRecords(sampleRecords())

	if m.RecordsIn != 4 {
		t.Errorf("RecordsIn = %d, want 4", m.RecordsIn)
	}
	if len(m.Programs) != 2 {
		t.Fatalf("expected 2 programs, got %d", len(m.Programs))
	}
	// Sorted by name: ai before ai_product.
	if m.Programs[0].Name != "ai" || m.Programs[0].WebContent != 2 || m.Programs[0].StudyPlan != 1 {
		t.Errorf("unexpected ai counters: %+v", m.Programs[0])
	}
	if m.Programs[1].Name != "ai_product" || m.Programs[1].WebContent != 1 || m.Programs[1].StudyPlan != 0 {
		t.Errorf("unexpected ai_product counters: %+v", m.Programs[1])
	}
}

func TestCollectRecords_Recollect(t *testing.T) {
	m := New()
	m.CollectRecords(sampleRecords())
	m.CollectRecords(sampleRecords()[:1])

	if m.RecordsIn != 1 {
		t.Errorf("RecordsIn = %d, want 1 after recollect", m.RecordsIn)
	}
	if len(m.Programs) != 1 {
		t.Errorf("expected 1 program after recollect, got %d", len(m.Programs))
	}
}

func TestFinish(t *testing.T) {
	m := New()
	m.Finish(10, 2, 10, []string{"one failure"})

	if m.Indexed != 10 || m.Skipped != 2 || m.Stored != 10 {
		t.Errorf("unexpected counters: %+v", m)
	}
	if m.FinishedAt.Before(m.StartedAt) {
		t.Error("FinishedAt before StartedAt")
	}
	if len(m.Errors) != 1 {
		t.Errorf("expected 1 error, got %d", len(m.Errors))
	}
}

func TestPrintSummary(t *testing.T) {
	m := New()
	m.CollectRecords(sampleRecords())
	m.Finish(4, 0, 4, nil)

	var buf bytes.Buffer
	m.PrintSummary(&buf)
	out := buf.String()

	for _, want := range []string{"ABITBOT INGEST REPORT", "Records in:", "ai_product"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ERRORS") {
		t.Error("summary should omit the errors section when there are none")
	}
}

func TestPrintSummary_WithErrors(t *testing.T) {
	m := New()
	m.Finish(0, 1, 0, []string{"embed failed for ai_plan_3"})

	var buf bytes.Buffer
	m.PrintSummary(&buf)
	if !strings.Contains(buf.String(), "embed failed for ai_plan_3") {
		t.Error("summary should list errors")
	}
}

func TestJSON(t *testing.T) {
	m := New()
	m.CollectRecords(sampleRecords())
	m.Finish(4, 0, 4, nil)

	data, err := m.JSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("JSON output does not parse: %v", err)
	}
	if decoded["records_in"].(float64) != 4 {
		t.Errorf("records_in = %v, want 4", decoded["records_in"])
	}
}
