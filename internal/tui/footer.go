package tui

import "github.com/charmbracelet/lipgloss"

// FooterModel renders the bottom bar: key hints and run status.
type FooterModel struct {
	paused bool
	width  int
}

// NewFooterModel creates a new footer.
func NewFooterModel() FooterModel {
	return FooterModel{}
}

// SetPaused toggles the paused status indicator.
func (f *FooterModel) SetPaused(paused bool) {
	f.paused = paused
}

// SetWidth updates the available width.
func (f *FooterModel) SetWidth(w int) {
	f.width = w
}

// View renders the footer.
func (f FooterModel) View() string {
	hints := footerKeyStyle.Render("q") + footerDescStyle.Render(" quit  ") +
		footerKeyStyle.Render("p") + footerDescStyle.Render(" pause  ") +
		footerKeyStyle.Render("r") + footerDescStyle.Render(" reset  ") +
		footerKeyStyle.Render("s") + footerDescStyle.Render(" scope")

	status := statusRunningStyle.Render("RUNNING")
	if f.paused {
		status = statusPausedStyle.Render("PAUSED")
	}

	gap := f.width - lipgloss.Width(hints) - lipgloss.Width(status) - 2
	if gap < 1 {
		gap = 1
	}

	return " " + hints + spaces(gap) + status
}
