package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vvka-141/fsload/pkg/fsload"
)

// Color palette - keeping it minimal and accessible.
var (
	ColorPrimary   = lipgloss.Color("39")  // Blue
	ColorSecondary = lipgloss.Color("245") // Gray
	ColorSuccess   = lipgloss.Color("34")  // Green
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorError     = lipgloss.Color("196") // Red
	ColorMuted     = lipgloss.Color("240") // Dark gray
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSecondary).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Width(12)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// Symbols for visual feedback.
const (
	SymbolCheck      = "✓"
	SymbolCross      = "✗"
	SymbolArrowRight = "→"
	SymbolBullet     = "•"
)

// RenderSummary formats the outcome of a load for the terminal.
func RenderSummary(s *fsload.LoadSummary) string {
	var b strings.Builder

	title := SuccessStyle.Render(SymbolCheck + " Load " + s.LoadID)
	switch {
	case s.AlreadyLoaded:
		title = HelpStyle.Render(SymbolBullet + " Load " + s.LoadID + " already complete")
	case s.Failed > 0 || s.Requeued > 0:
		title = ErrorStyle.Render(SymbolCross + " Load " + s.LoadID + " incomplete")
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(LabelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("schema", s.SchemaName)
	row("dataset", s.DatasetRoot)
	if !s.AlreadyLoaded {
		row("copied", fmt.Sprintf("%d", s.Completed))
		if s.Restored > 0 {
			row("restored", fmt.Sprintf("%d", s.Restored))
		}
		if s.Failed > 0 {
			row("failed", ErrorStyle.Render(fmt.Sprintf("%d", s.Failed)))
		}
		if s.Requeued > 0 {
			row("re-queued", WarningStyle.Render(fmt.Sprintf("%d", s.Requeued)))
		}
		if len(s.TruncatedTables) > 0 {
			row("truncated", strings.Join(s.TruncatedTables, ", "))
		}
		if len(s.DeleteErrors) > 0 {
			row("delete errs", WarningStyle.Render(fmt.Sprintf("%d", len(s.DeleteErrors))))
		}
		if len(s.Followups) > 0 {
			row("references", fmt.Sprintf("%d", len(s.Followups)))
		}
	}
	row("took", s.Duration.Round(time.Millisecond).String())

	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
