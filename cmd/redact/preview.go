package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/gonkalabs/gonka-redact-go/internal/sanitize"
)

var (
	pendingStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#5c4a00")).Foreground(lipgloss.Color("#ffe680"))
	confirmedStyle = lipgloss.NewStyle().Background(lipgloss.Color("#5c0000")).Foreground(lipgloss.Color("#ffb3b3")).Bold(true)
	rejectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Strikethrough(true)
	tagStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Faint(true)
	legendStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func styleFor(st sanitize.Status) lipgloss.Style {
	switch st {
	case sanitize.StatusConfirmed:
		return confirmedStyle
	case sanitize.StatusRejected:
		return rejectedStyle
	default:
		return pendingStyle
	}
}

// renderPreview highlights every span fragment and tags it with its id, then
// wraps the result to width columns. Wrapping is ANSI-aware.
func renderPreview(frags []sanitize.Fragment, width int) string {
	var b strings.Builder
	for _, f := range frags {
		if f.Span == nil {
			b.WriteString(f.Text)
			continue
		}
		b.WriteString(styleFor(f.Span.Status).Render(f.Text))
		b.WriteString(tagStyle.Render("[" + f.Span.ID + "]"))
	}
	if width <= 0 {
		return b.String()
	}
	return wordwrap.String(b.String(), width)
}

func legend(c sanitize.Counts) string {
	return legendStyle.Render(fmt.Sprintf("%s %d pending  %s %d confirmed  %s %d rejected",
		pendingStyle.Render(" "), c.Pending,
		confirmedStyle.Render(" "), c.Confirmed,
		rejectedStyle.Render("x"), c.Rejected,
	))
}
