// Package output renders user-facing CLI output.
//
// Text output is styled with lipgloss when writing to a terminal and plain
// otherwise. Markdown and JSON modes produce machine-friendly output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects the output format.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto" // TTY=text, non-TTY=markdown
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Modes lists the accepted --output values.
var Modes = []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON)}

// Renderer writes results to out and diagnostics to errOut.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool
	styles Styles
}

// NewRenderer creates a renderer. An empty mode is ModeAuto.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	tty := isTerminal(out)

	lr := lipgloss.NewRenderer(out)
	if !tty {
		lr.SetColorProfile(termenv.Ascii)
	}

	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		isTTY:  tty,
		styles: NewStyles(lr),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Mode returns the configured mode.
func (r *Renderer) Mode() Mode { return r.mode }

// EffectiveMode resolves ModeAuto against the terminal.
func (r *Renderer) EffectiveMode() Mode {
	switch r.mode {
	case ModeText, ModeMarkdown, ModeJSON:
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether out is a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Styles returns the text styles.
func (r *Renderer) Styles() Styles { return r.styles }

// Writer returns the result writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the diagnostics writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header prints a section header.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, text))
		return
	}
	style := r.styles.Header2
	if level <= 1 {
		style = r.styles.Header1
	}
	r.Println(style.Render(text))
}

// KeyValue prints a labelled value.
func (r *Renderer) KeyValue(key, value string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatKeyValue(key, value))
		return
	}
	r.Printf("%s %s\n", r.styles.Key.Render(key+":"), value)
}

func (r *Renderer) Success(msg string) {
	r.Println(r.styles.Success.Render(statusSymbol("success") + " " + msg))
}

func (r *Renderer) Muted(msg string) {
	r.Println(r.styles.Muted.Render(msg))
}

// Warning and Error go to errOut.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render("warning: "+msg))
}

func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render(msg))
}

// StatusLine prints "<symbol> name  detail".
func (r *Renderer) StatusLine(name, status, detail string) {
	symbol := statusSymbol(status)
	switch status {
	case "success", "completed":
		symbol = r.styles.Success.Render(symbol)
	case "failed":
		symbol = r.styles.Error.Render(symbol)
	default:
		symbol = r.styles.Muted.Render(symbol)
	}
	line := symbol + " " + name
	if detail != "" {
		line += "  " + r.styles.Muted.Render(detail)
	}
	r.Println(line)
}

// JobStarted reports a job about to run. Only text mode shows it.
func (r *Renderer) JobStarted(name, action string) {
	switch r.EffectiveMode() {
	case ModeJSON:
		r.Event(RunEvent{Event: EventJobStart, Job: name, Action: action})
	case ModeText:
		r.Printf("%s %s %s\n", r.styles.Muted.Render("→"), r.styles.JobName.Render(name), r.styles.Action.Render(action))
	}
}

// JobFinished reports a job outcome with its duration.
func (r *Renderer) JobFinished(name, action, status string, elapsed time.Duration, err error) {
	switch r.EffectiveMode() {
	case ModeJSON:
		ev := RunEvent{
			Event:      EventJobComplete,
			Job:        name,
			Action:     action,
			Status:     status,
			DurationMS: elapsed.Milliseconds(),
		}
		if err != nil {
			ev.Error = err.Error()
		}
		r.Event(ev)
	case ModeMarkdown:
		r.Printf("- `%s` (%s): %s in %s\n", name, action, status, formatDuration(elapsed))
	default:
		r.StatusLine(r.styles.JobName.Render(name)+" "+r.styles.Action.Render(action), status, formatDuration(elapsed))
	}
}

// RunSummary reports the end of a run.
func (r *Renderer) RunSummary(s Summary) {
	switch r.EffectiveMode() {
	case ModeJSON:
		r.Event(RunEvent{
			Event:      EventRunComplete,
			RunID:      s.RunID,
			Status:     s.Status,
			Jobs:       s.Jobs,
			DurationMS: s.Duration.Milliseconds(),
			Cleaned:    s.CleanedSchemas,
		})
	case ModeMarkdown:
		r.Println("")
		r.Println(FormatHeader(2, "Summary"))
		r.Println(FormatKeyValue("Status", s.Status))
		r.Println(FormatKeyValue("Jobs", fmt.Sprintf("%d", s.Jobs)))
		r.Println(FormatKeyValue("Duration", formatDuration(s.Duration)))
		if s.RunID != "" {
			r.Println(FormatKeyValue("Run", s.RunID))
		}
	default:
		msg := fmt.Sprintf("%s: %d jobs in %s", s.Status, s.Jobs, formatDuration(s.Duration))
		if s.Status == "completed" {
			r.Success(msg)
		} else {
			r.Println(r.styles.Error.Render(statusSymbol(s.Status) + " " + msg))
		}
		if len(s.CleanedSchemas) > 0 {
			r.Muted(fmt.Sprintf("cleaned %d test schemas", len(s.CleanedSchemas)))
		}
	}
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Event writes one JSON line.
func (r *Renderer) Event(ev RunEvent) {
	if ev.Timestamp == "" {
		ev.Timestamp = now().UTC().Format(time.RFC3339)
	}
	data, _ := json.Marshal(ev)
	_, _ = fmt.Fprintln(r.out, string(data))
}

var now = time.Now

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}
