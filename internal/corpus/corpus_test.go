package corpus

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestExpand_AssignsStableIDs(t *testing.T) {
	doc := Document{
		ProgramName: "ai",
		Source:      SourceWebContent,
		RawText:     strings.Repeat("слово ", 25),
		SourcePath:  "downloads/ai_content.txt",
	}

	records, err := Expand(doc, 10, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("expected records")
	}
	for i, r := range records {
		wantID := "ai_content_" + string(rune('0'+i))
		if r.ID != wantID {
			t.Errorf("record %d: id = %q, want %q", i, r.ID, wantID)
		}
		if r.Text == "" {
			t.Errorf("record %d: empty text", i)
		}
		if r.Metadata["program_name"] != "ai" {
			t.Errorf("record %d: program_name = %v", i, r.Metadata["program_name"])
		}
		if r.Metadata["chunk_index"] != i {
			t.Errorf("record %d: chunk_index = %v", i, r.Metadata["chunk_index"])
		}
		if r.Metadata["chunk_type"] != "web_content" {
			t.Errorf("record %d: chunk_type = %v", i, r.Metadata["chunk_type"])
		}
	}

	again, err := Expand(doc, 10, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(records, again) {
		t.Error("re-expanding identical input produced different records")
	}
}

func TestExpand_StudyPlanUsesPlanCode(t *testing.T) {
	records, err := Expand(Document{
		ProgramName: "ai_product",
		Source:      SourceStudyPlan,
		RawText:     "дисциплины первого семестра",
		SourcePath:  "downloads/plan.pdf",
	}, 100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].ID != "ai_product_plan_0" {
		t.Errorf("id = %q, want ai_product_plan_0", records[0].ID)
	}
}

func TestExpand_InvalidOverlapFails(t *testing.T) {
	_, err := Expand(Document{ProgramName: "ai", Source: SourceWebContent, RawText: "text"}, 10, 10)
	if err == nil {
		t.Fatal("expected configuration error for overlap >= chunk size")
	}
}

func TestBatchRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "processed", BatchFileName)

	records := []Record{
		{ID: "ai_content_0", Text: "Программа AI", Metadata: map[string]any{"program_name": "ai", "chunk_index": 0}},
		{ID: "ai_content_1", Text: "фокусируется на ML", Metadata: map[string]any{"program_name": "ai", "chunk_index": 1}},
	}
	if err := WriteBatch(path, records); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	loaded, err := LoadBatch(path)
	if err != nil {
		t.Fatalf("LoadBatch: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(loaded))
	}
	if loaded[0].ID != "ai_content_0" || loaded[1].Text != "фокусируется на ML" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
	// chunk_index comes back as float64 from JSON; MetadataString hides that.
	if got := loaded[1].MetadataString("chunk_index"); got != "1" {
		t.Errorf("chunk_index = %q, want \"1\"", got)
	}
}

func TestLoadBatch_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadBatch(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestProcessDir_WebContentOnly(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("программа магистратуры ", 30)
	if err := os.WriteFile(filepath.Join(dir, "ai_content.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p := &Processor{ChunkSize: 20, Overlap: 5}
	records, err := p.ProcessDir(dir)
	if err != nil {
		t.Fatalf("ProcessDir: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("expected records from web content")
	}
	for _, r := range records {
		if !strings.HasPrefix(r.ID, "ai_content_") {
			t.Errorf("unexpected id %q", r.ID)
		}
	}
}

func TestProcessDir_EmptyDirFails(t *testing.T) {
	p := &Processor{ChunkSize: 10, Overlap: 0}
	if _, err := p.ProcessDir(t.TempDir()); err == nil {
		t.Fatal("expected error for directory without downloads")
	}
}
