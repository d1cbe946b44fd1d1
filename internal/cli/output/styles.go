package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used for text output.
type Styles struct {
	Header1  lipgloss.Style
	Header2  lipgloss.Style
	Bold     lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	JobName  lipgloss.Style
	Action   lipgloss.Style
	Duration lipgloss.Style
	Key      lipgloss.Style
}

var (
	colorGreen  = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#66BB6A"}
	colorYellow = lipgloss.AdaptiveColor{Light: "#F57F17", Dark: "#FFD54F"}
	colorRed    = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#EF5350"}
	colorBlue   = lipgloss.AdaptiveColor{Light: "#1565C0", Dark: "#64B5F6"}
	colorGray   = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9E9E9E"}
)

// NewStyles builds the styles on the given lipgloss renderer.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Header1:  r.NewStyle().Bold(true).Underline(true),
		Header2:  r.NewStyle().Bold(true),
		Bold:     r.NewStyle().Bold(true),
		Muted:    r.NewStyle().Foreground(colorGray),
		Success:  r.NewStyle().Foreground(colorGreen),
		Warning:  r.NewStyle().Foreground(colorYellow),
		Error:    r.NewStyle().Foreground(colorRed).Bold(true),
		JobName:  r.NewStyle().Foreground(colorBlue),
		Action:   r.NewStyle().Foreground(colorGray).Italic(true),
		Duration: r.NewStyle().Foreground(colorGray),
		Key:      r.NewStyle().Bold(true),
	}
}

// statusSymbol maps a job or run status to its marker.
func statusSymbol(status string) string {
	switch status {
	case "success", "completed":
		return "✓"
	case "failed":
		return "✗"
	case "skipped":
		return "-"
	case "running":
		return "•"
	default:
		return "?"
	}
}
