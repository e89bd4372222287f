package tui

import (
	"fmt"
	"strings"

	"github.com/agbru/perfmon/internal/format"
)

// EngineSample is one GPU engine type's utilization in a sampling round.
type EngineSample struct {
	Name  string
	Value float64
}

// GPUModel displays per-engine utilization and the process's GPU memory.
type GPUModel struct {
	engines   []EngineSample
	history   *RingBuffer
	dedicated uint64
	shared    uint64
	width     int
	height    int
}

// NewGPUModel creates the GPU panel.
func NewGPUModel() GPUModel {
	return GPUModel{history: NewRingBuffer(historyCapacity)}
}

// SetSize updates dimensions.
func (m *GPUModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Update records one sampling round. The sparkline tracks the 3D engine.
func (m *GPUModel) Update(msg SampleMsg) {
	m.engines = msg.Engines
	m.dedicated = msg.Dedicated
	m.shared = msg.Shared
	for _, e := range msg.Engines {
		if e.Name == "3D" {
			m.history.Push(e.Value)
			return
		}
	}
	m.history.Push(0)
}

// Reset clears the sparkline history.
func (m *GPUModel) Reset() {
	m.history.Reset()
}

// View renders the GPU panel.
func (m GPUModel) View() string {
	var rows strings.Builder

	inner := m.width - 4
	if inner < 8 {
		inner = 8
	}

	spark := m.history.Slice()
	if len(spark) > inner {
		spark = spark[len(spark)-inner:]
	}
	rows.WriteString(" ")
	rows.WriteString(chartStyle.Render(RenderSparkline(spark)))

	if len(m.engines) == 0 {
		rows.WriteString("\n ")
		rows.WriteString(metricLabelStyle.Render("no GPU engine activity"))
	}

	barWidth := inner - 20
	if barWidth < 4 {
		barWidth = 4
	}
	for _, e := range m.engines {
		rows.WriteString(fmt.Sprintf("\n %s %s %s",
			metricLabelStyle.Render(fmt.Sprintf("%-12s", e.Name)),
			renderBar(e.Value, barWidth),
			metricValueStyle.Render(fmt.Sprintf("%5.1f%%", e.Value))))
	}

	rows.WriteString(fmt.Sprintf("\n %s %s%s%s %s",
		metricLabelStyle.Render("Dedicated:"),
		metricValueStyle.Render(format.FormatBytes(m.dedicated)),
		metricLabelStyle.Render(" | "),
		metricLabelStyle.Render("Shared:"),
		metricValueStyle.Render(format.FormatBytes(m.shared))))

	return panelStyle.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(rows.String())
}
