package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON indicates no JSON object could be recovered from model output.
var ErrNoJSON = errors.New("llm: response contained no parseable JSON")

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSONObject recovers a JSON value from model output: strict parse
// first, then the contents of a fenced code block, then the outermost
// {...} slice. Model output is not guaranteed well formed, so each tier is
// a deliberate recovery step rather than an error path.
func ExtractJSONObject(text string) (any, error) {
	trimmed := strings.TrimSpace(text)

	var direct any
	if err := json.Unmarshal([]byte(trimmed), &direct); err == nil {
		return direct, nil
	}

	if match := fencedBlock.FindStringSubmatch(trimmed); match != nil {
		var fenced any
		if err := json.Unmarshal([]byte(match[1]), &fenced); err == nil {
			return fenced, nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start != -1 && end > start {
		var sliced any
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &sliced); err == nil {
			return sliced, nil
		}
	}

	return nil, ErrNoJSON
}

// Task is one actionable item proposed by a summarization call.
type Task struct {
	Title    string `json:"title"`
	Priority string `json:"priority,omitempty"`
}

// SummaryTasks is the {summary, tasks} contract expected from voice-note
// summarization.
type SummaryTasks struct {
	Summary string `json:"summary"`
	Tasks   []Task `json:"tasks"`
}

// Degraded reports whether the raw text had to stand in for the summary
// because no JSON could be recovered.
type ParsedSummary struct {
	SummaryTasks
	Degraded bool
}

var braceBlock = regexp.MustCompile(`(?s)\{.*\}`)

// ParseSummaryTasks parses a {summary, tasks} response with three tiers:
// strict parse, first brace block, and finally the raw text as a degraded
// summary with no tasks. It never fails.
func ParseSummaryTasks(text string) ParsedSummary {
	trimmed := strings.TrimSpace(text)

	var strict SummaryTasks
	if err := json.Unmarshal([]byte(trimmed), &strict); err == nil && strict.Summary != "" {
		strict.Summary = strings.TrimSpace(strict.Summary)
		if strict.Tasks == nil {
			strict.Tasks = []Task{}
		}
		return ParsedSummary{SummaryTasks: strict}
	}

	if match := braceBlock.FindString(trimmed); match != "" {
		var extracted SummaryTasks
		if err := json.Unmarshal([]byte(match), &extracted); err == nil && extracted.Summary != "" {
			extracted.Summary = strings.TrimSpace(extracted.Summary)
			if extracted.Tasks == nil {
				extracted.Tasks = []Task{}
			}
			return ParsedSummary{SummaryTasks: extracted}
		}
	}

	return ParsedSummary{
		SummaryTasks: SummaryTasks{Summary: trimmed, Tasks: []Task{}},
		Degraded:     true,
	}
}
