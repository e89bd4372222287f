package tui

import (
	"fmt"
	"strings"

	"github.com/agbru/perfmon/internal/format"
)

// historyCapacity bounds the number of retained chart samples; at the 500ms
// UI tick this covers several minutes of history.
const historyCapacity = 600

// hotThreshold is the utilization above which a bar renders in the alarm
// color.
const hotThreshold = 85.0

// CPUModel displays the utilization chart for the selected scope and
// per-core bars.
type CPUModel struct {
	history *RingBuffer
	cores   []float64
	global  float64
	process float64
	scoped  bool // chart tracks the process reading instead of the global one
	width   int
	height  int
}

// NewCPUModel creates the CPU panel.
func NewCPUModel(processScoped bool) CPUModel {
	return CPUModel{history: NewRingBuffer(historyCapacity), scoped: processScoped}
}

// SetSize updates dimensions.
func (m *CPUModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetScope switches which reading the chart tracks. The history is cleared;
// the two series are not comparable on one chart.
func (m *CPUModel) SetScope(processScoped bool) {
	if m.scoped == processScoped {
		return
	}
	m.scoped = processScoped
	m.history.Reset()
}

// Update records one sampling round.
func (m *CPUModel) Update(msg SampleMsg) {
	m.global = msg.Global
	m.process = msg.Process
	m.cores = msg.Cores
	if m.scoped {
		m.history.Push(msg.Process)
	} else {
		m.history.Push(msg.Global)
	}
}

// Reset clears the chart history.
func (m *CPUModel) Reset() {
	m.history.Reset()
}

// View renders the CPU panel.
func (m CPUModel) View() string {
	var rows strings.Builder

	// The ▸ marker flags the series the chart below is tracking.
	globalLabel, processLabel := "Global:", "Process:"
	if m.scoped {
		processLabel = "▸ Process:"
	} else {
		globalLabel = "▸ Global:"
	}
	topLine := fmt.Sprintf(" %s %s%s%s %s",
		metricLabelStyle.Render(globalLabel),
		metricValueStyle.Render(format.FormatPercent(m.global)),
		metricLabelStyle.Render(" | "),
		metricLabelStyle.Render(processLabel),
		metricValueStyle.Render(format.FormatPercent(m.process)))
	rows.WriteString(topLine)

	inner := m.width - 4
	if inner < 8 {
		inner = 8
	}

	chartRows := m.chartRows()
	for _, line := range RenderBrailleChart(m.history.Slice(), inner, chartRows) {
		rows.WriteString("\n ")
		rows.WriteString(chartStyle.Render(line))
	}

	barWidth := inner - 12
	if barWidth < 4 {
		barWidth = 4
	}
	for i, v := range m.cores {
		rows.WriteString(fmt.Sprintf("\n %s %s %s",
			metricLabelStyle.Render(fmt.Sprintf("%3d", i)),
			renderBar(v, barWidth),
			metricValueStyle.Render(fmt.Sprintf("%5.1f%%", v))))
	}

	return panelStyle.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(rows.String())
}

// chartRows sizes the chart to the space left above the per-core bars.
func (m CPUModel) chartRows() int {
	rows := m.height - 4 - len(m.cores)
	if rows < 1 {
		rows = 1
	}
	if rows > 6 {
		rows = 6
	}
	return rows
}

// renderBar draws a fixed-width horizontal utilization bar.
func renderBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100.0 * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if pct > hotThreshold {
		return barHotStyle.Render(bar)
	}
	return barStyle.Render(bar)
}
