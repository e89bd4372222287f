package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	apperrors "github.com/agbru/perfmon/internal/errors"
)

// Source is the reading surface the dashboard polls. *perfmon.Monitor
// satisfies it.
type Source interface {
	GlobalCPUUtilization() float64
	ProcessCPUUtilization() float64
	CPUCoreUtilization() []float64
	GPUEngineNames() []string
	GPUEngineUtilization(key string) float64
	GPUDedicatedMemoryBytes() uint64
	GPUSharedMemoryBytes() uint64
}

// Messages exchanged inside the dashboard.
type (
	// TickMsg drives the periodic refresh.
	TickMsg time.Time

	// SampleMsg carries one polled set of readings.
	SampleMsg struct {
		Global    float64
		Process   float64
		Cores     []float64
		Engines   []EngineSample
		Dedicated uint64
		Shared    uint64
	}

	// ContextCancelledMsg reports that the parent context ended.
	ContextCancelledMsg struct{ Err error }
)

// uiTickInterval is the dashboard refresh period; the sampling engine runs
// on its own faster clock underneath.
const uiTickInterval = 500 * time.Millisecond

// LayoutManager holds terminal dimensions and provides layout calculations.
type LayoutManager struct {
	width  int
	height int
}

// bodyHeight returns the available height for the main body panels.
func (l LayoutManager) bodyHeight() int {
	h := l.height - headerHeight - footerHeight
	if h < minBodyHeight {
		h = minBodyHeight
	}
	return h
}

// cpuWidth returns the width allocated to the CPU panel.
func (l LayoutManager) cpuWidth() int {
	return l.width * CPUPanelWidthPercent / 100
}

// gpuWidth returns the width allocated to the GPU panel.
func (l LayoutManager) gpuWidth() int {
	return l.width - l.cpuWidth()
}

// Layout constants for the TUI dashboard.
const (
	headerHeight         = 1
	footerHeight         = 1
	minBodyHeight        = 4
	CPUPanelWidthPercent = 60
)

// Model is the root bubbletea model for the TUI dashboard.
type Model struct {
	header HeaderModel
	cpu    CPUModel
	gpu    GPUModel
	footer FooterModel

	keymap KeyMap

	LayoutManager

	source        Source
	processScoped bool
	paused        bool
	ctx           context.Context
}

// NewModel creates a new TUI model.
func NewModel(ctx context.Context, source Source, processScoped bool, version string) Model {
	return Model{
		header:        NewHeaderModel(version, scopeLabel(processScoped)),
		cpu:           NewCPUModel(processScoped),
		gpu:           NewGPUModel(),
		footer:        NewFooterModel(),
		keymap:        DefaultKeyMap(),
		source:        source,
		processScoped: processScoped,
		ctx:           ctx,
	}
}

func scopeLabel(processScoped bool) string {
	if processScoped {
		return "process"
	}
	return "system"
}

// Init returns the initial commands.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		sampleCmd(m.source),
		watchContextCmd(m.ctx),
	)
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutPanels()
		return m, nil

	case TickMsg:
		if m.paused {
			return m, tickCmd()
		}
		return m, tea.Batch(sampleCmd(m.source), tickCmd())

	case SampleMsg:
		m.cpu.Update(msg)
		m.gpu.Update(msg)
		return m, nil

	case ContextCancelledMsg:
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Pause):
		m.paused = !m.paused
		m.footer.SetPaused(m.paused)
		return m, nil

	case key.Matches(msg, m.keymap.Reset):
		m.header.Reset()
		m.cpu.Reset()
		m.gpu.Reset()
		return m, nil

	case key.Matches(msg, m.keymap.Scope):
		m.processScoped = !m.processScoped
		m.header.SetScope(scopeLabel(m.processScoped))
		m.cpu.SetScope(m.processScoped)
		return m, nil
	}

	return m, nil
}

// View renders the entire dashboard.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	header := m.header.View()
	footer := m.footer.View()

	// Main body: CPU on the left, GPU on the right.
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.cpu.View(), m.gpu.View())

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) layoutPanels() {
	m.header.SetWidth(m.width)
	m.footer.SetWidth(m.width)
	m.cpu.SetSize(m.cpuWidth(), m.bodyHeight())
	m.gpu.SetSize(m.gpuWidth(), m.bodyHeight())
}

// Run is the public entry point for the TUI mode.
// It creates the bubbletea program, runs it, and returns the exit code.
func Run(ctx context.Context, source Source, processScoped bool, version string) int {
	// Rebuild styles from the current ui theme (set by app.Run via InitTheme).
	initTUIStyles()

	model := NewModel(ctx, source, processScoped, version)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return apperrors.ExitErrorGeneric
	}
	return apperrors.ExitSuccess
}

// tickCmd returns a command that sends a TickMsg after the refresh period.
func tickCmd() tea.Cmd {
	return tea.Tick(uiTickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// sampleCmd polls the source and returns a SampleMsg.
func sampleCmd(s Source) tea.Cmd {
	return func() tea.Msg {
		names := s.GPUEngineNames()
		engines := make([]EngineSample, 0, len(names))
		for _, name := range names {
			engines = append(engines, EngineSample{Name: name, Value: s.GPUEngineUtilization(name)})
		}
		return SampleMsg{
			Global:    s.GlobalCPUUtilization(),
			Process:   s.ProcessCPUUtilization(),
			Cores:     s.CPUCoreUtilization(),
			Engines:   engines,
			Dedicated: s.GPUDedicatedMemoryBytes(),
			Shared:    s.GPUSharedMemoryBytes(),
		}
	}
}

// watchContextCmd waits for context cancellation and sends a message.
func watchContextCmd(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		<-ctx.Done()
		return ContextCancelledMsg{Err: ctx.Err()}
	}
}
