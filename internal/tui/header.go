package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/perfmon/internal/format"
)

// HeaderModel renders the top bar: title, version, monitored scope, elapsed
// time.
type HeaderModel struct {
	startTime time.Time
	version   string
	scope     string
	width     int
}

// NewHeaderModel creates a new header.
func NewHeaderModel(version, scope string) HeaderModel {
	return HeaderModel{
		startTime: time.Now(),
		version:   version,
		scope:     scope,
	}
}

// SetScope updates the displayed CPU scope label.
func (h *HeaderModel) SetScope(scope string) {
	h.scope = scope
}

// Reset restarts the elapsed timer.
func (h *HeaderModel) Reset() {
	h.startTime = time.Now()
}

// SetWidth updates the available width.
func (h *HeaderModel) SetWidth(w int) {
	h.width = w
}

// View renders the header.
func (h HeaderModel) View() string {
	titleText := "perfmon"
	if h.version != "" && h.version != "dev" {
		titleText += " " + h.version
	}
	title := titleStyle.Render(titleText)

	pipe := versionStyle.Render(" | ")

	scope := metricValueStyle.Render(h.scope)
	elapsed := elapsedStyle.Render(fmt.Sprintf("Elapsed: %s",
		format.FormatDuration(time.Since(h.startTime).Round(time.Second))))

	leftPart := title + pipe + scope + pipe + elapsed
	leftLen := lipgloss.Width(leftPart)

	innerWidth := h.width - 2
	if innerWidth < 0 {
		innerWidth = 0
	}

	gap := innerWidth - leftLen
	if gap < 0 {
		gap = 0
	}

	row := leftPart + spaces(gap)

	return headerStyle.Width(h.width).Render(row)
}

// spaces returns a string of n space characters.
func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
