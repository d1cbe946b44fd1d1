package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Event names of RunEvent.
const (
	EventRunStart    = "run_start"
	EventJobStart    = "job_start"
	EventJobComplete = "job_complete"
	EventRunComplete = "run_complete"
)

// RunEvent is one JSON line of run progress.
type RunEvent struct {
	Event      string   `json:"event"`
	Timestamp  string   `json:"timestamp"`
	RunID      string   `json:"run_id,omitempty"`
	Job        string   `json:"job,omitempty"`
	Action     string   `json:"action,omitempty"`
	Status     string   `json:"status,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms,omitempty"`
	Jobs       int      `json:"jobs,omitempty"`
	Lists      []string `json:"lists,omitempty"`
	Cleaned    []string `json:"cleaned,omitempty"`
}

// Summary is the outcome of a run.
type Summary struct {
	RunID          string
	Status         string
	Jobs           int
	Duration       time.Duration
	CleanedSchemas []string
}

// FormatHeader returns a markdown header.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown list item.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s:** %s", key, value)
}

// Table renders rows under headers in the effective mode. JSON mode
// emits an array of objects keyed by header.
func (r *Renderer) Table(headers []string, rows [][]any) error {
	mode := r.EffectiveMode()
	if mode == ModeJSON {
		objs := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			obj := make(map[string]any, len(headers))
			for i, h := range headers {
				if i < len(row) {
					obj[h] = row[i]
				}
			}
			objs = append(objs, obj)
		}
		return r.JSON(objs)
	}

	if len(rows) == 0 {
		r.Println("(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range rows {
		values := make(table.Row, len(row))
		for i, v := range row {
			values[i] = formatValue(v)
		}
		t.AppendRow(values)
	}

	if mode == ModeMarkdown {
		t.RenderMarkdown()
		return nil
	}
	t.Render()
	return nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(time.DateTime)
	case []byte:
		return string(x)
	}
	return fmt.Sprintf("%v", v)
}
