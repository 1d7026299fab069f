package corpus

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// planPathPrefix labels the line in a *_plan_info.txt file that points at
// the downloaded study-plan PDF.
const planPathPrefix = "Скачанный учебный план:"

// Processor expands raw downloads into chunked, identifiable records.
type Processor struct {
	ChunkSize int
	Overlap   int
	Log       *slog.Logger
}

// ProcessDir scans a downloads directory for "<program>_content.txt" files,
// pairs each with its "<program>_plan_info.txt" neighbour, and produces
// records for both the web content and the study-plan PDF it references.
// A program missing its plan info, or a plan PDF that cannot be read, only
// drops that part; the web content is still processed.
func (p *Processor) ProcessDir(dir string) ([]Record, error) {
	contentFiles, err := filepath.Glob(filepath.Join(dir, "*_content.txt"))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(contentFiles) == 0 {
		return nil, fmt.Errorf("no *_content.txt files found in %s", dir)
	}

	var all []Record
	for _, contentPath := range contentFiles {
		program := strings.TrimSuffix(filepath.Base(contentPath), "_content.txt")
		records, err := p.processProgram(program, contentPath, dir)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

func (p *Processor) processProgram(program, contentPath, dir string) ([]Record, error) {
	log := p.log().With("program", program)

	raw, err := os.ReadFile(contentPath)
	if err != nil {
		return nil, fmt.Errorf("reading web content for %s: %w", program, err)
	}

	records, err := Expand(Document{
		ProgramName: program,
		Source:      SourceWebContent,
		RawText:     string(raw),
		SourcePath:  contentPath,
	}, p.ChunkSize, p.Overlap)
	if err != nil {
		return nil, err
	}
	log.Info("processed web content", "chunks", len(records))

	planPath := p.resolvePlanPath(filepath.Join(dir, program+"_plan_info.txt"))
	if planPath == "" {
		log.Warn("no study plan PDF for program")
		return records, nil
	}

	planText, err := ExtractPDFText(planPath)
	if err != nil {
		log.Warn("skipping unreadable study plan", "path", planPath, "error", err)
		return records, nil
	}

	planRecords, err := Expand(Document{
		ProgramName: program,
		Source:      SourceStudyPlan,
		RawText:     planText,
		SourcePath:  planPath,
	}, p.ChunkSize, p.Overlap)
	if err != nil {
		return nil, err
	}
	log.Info("processed study plan", "chunks", len(planRecords))

	return append(records, planRecords...), nil
}

// resolvePlanPath reads a plan info file and returns the PDF path it names,
// or "" when the file or the PDF is absent.
func (p *Processor) resolvePlanPath(infoPath string) string {
	data, err := os.ReadFile(infoPath)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, planPathPrefix) {
			continue
		}
		path := strings.TrimSpace(strings.TrimPrefix(line, planPathPrefix))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (p *Processor) log() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}
