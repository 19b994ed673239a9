package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer draws an interactive progress panel with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *indexingModel
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It fails for non-terminal output.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	model := newIndexingModel(cfg.Title)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:   cfg,
		model: model,
		done:  make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	var runCtx context.Context
	runCtx, r.cancel = context.WithCancel(ctx)

	opts := []tea.ProgramOption{tea.WithContext(runCtx)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.send(progressUpdateMsg(event))
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.send(errorMsg(event))
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.send(completeMsg(stats))
}

func (r *TUIRenderer) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	p, started := r.program, r.started
	r.mu.Unlock()

	if !started {
		return nil
	}
	p.Quit()

	// An unresponsive terminal must not hang shutdown.
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

type progressUpdateMsg ProgressEvent
type errorMsg ErrorEvent
type completeMsg CompletionStats

// indexingModel is the bubbletea model for indexing progress.
type indexingModel struct {
	title       string
	width       int
	current     ProgressEvent
	warnings    int
	errors      int
	complete    bool
	quitting    bool
	stats       CompletionStats
	spinner     spinner.Model
	progressBar progress.Model
	styles      Styles
}

func newIndexingModel(title string) *indexingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	p := progress.New(
		progress.WithSolidFill(ColorLime),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	if title == "" {
		title = "Ancestry Indexer"
	}
	return &indexingModel{
		title:       title,
		width:       80,
		spinner:     s,
		progressBar: p,
		styles:      DefaultStyles(),
	}
}

// Init implements tea.Model.
func (m *indexingModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *indexingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = max(msg.Width-20, 20)

	case progressUpdateMsg:
		m.current = ProgressEvent(msg)

	case errorMsg:
		if msg.IsWarn {
			m.warnings++
		} else {
			m.errors++
		}

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *indexingModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	sections := []string{m.renderStages(), m.renderProgress()}
	if item := m.current.Item; item != "" {
		sections = append(sections, m.styles.Dim.Render(item))
	}
	if status := m.renderStatus(); status != "" {
		sections = append(sections, status)
	}

	panel := m.styles.Panel.Width(max(m.width-4, 40)).Render(strings.Join(sections, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, m.styles.Header.Render(m.title), panel) + "\n"
}

func (m *indexingModel) renderStages() string {
	stages := []Stage{StageLoading, StageResolving, StageIndexing}

	parts := make([]string, 0, len(stages))
	for _, s := range stages {
		switch {
		case s < m.current.Stage:
			parts = append(parts, m.styles.Success.Render("● "+s.String()))
		case s == m.current.Stage:
			parts = append(parts, m.styles.Active.Render(m.spinner.View()+" "+s.String()))
		default:
			parts = append(parts, m.styles.Dim.Render("○ "+s.String()))
		}
	}
	return strings.Join(parts, m.styles.Dim.Render(" → "))
}

func (m *indexingModel) renderProgress() string {
	if m.current.Total == 0 {
		msg := m.current.Message
		if msg == "" {
			msg = "Preparing..."
		}
		return m.spinner.View() + " " + m.styles.Label.Render(msg)
	}

	percent := float64(m.current.Current) / float64(m.current.Total)
	bar := m.progressBar.ViewAs(percent)
	pct := m.styles.Active.Render(fmt.Sprintf("%3.0f%%", percent*100))
	count := m.styles.Label.Render(fmt.Sprintf("%d / %d documents", m.current.Current, m.current.Total))
	return fmt.Sprintf("%s  %s\n%s", bar, pct, count)
}

func (m *indexingModel) renderStatus() string {
	var parts []string
	if m.warnings > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", m.warnings)))
	}
	if m.errors > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", m.errors)))
	}
	return strings.Join(parts, m.styles.Dim.Render("  │  "))
}

func (m *indexingModel) renderComplete() string {
	lines := []string{
		m.styles.Success.Render("✓ Indexing Complete"),
		"",
		m.styles.Label.Render("Entities:  ") + m.styles.Active.Render(fmt.Sprint(m.stats.Entities)),
		m.styles.Label.Render("Documents: ") + m.styles.Active.Render(fmt.Sprint(m.stats.Documents)),
		m.styles.Label.Render("Ancestors: ") + m.styles.Active.Render(fmt.Sprint(m.stats.ValuesAdded)),
		m.styles.Label.Render("Duration:  ") + m.styles.Active.Render(formatDuration(m.stats.Duration)),
	}
	if m.stats.Errors > 0 {
		lines = append(lines, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", m.stats.Errors)))
	}
	if m.stats.Warnings > 0 {
		lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", m.stats.Warnings)))
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorLime)).
		Padding(1, 2).
		Width(max(m.width-4, 40))
	return panel.Render(strings.Join(lines, "\n")) + "\n"
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

var _ Renderer = (*TUIRenderer)(nil)
