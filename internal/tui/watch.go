// Package tui is the live shop-floor view: the work order header, its
// findings, and a ticking timer per open session. It follows The Elm
// Architecture via bubbletea; the model holds a snapshot of the rows plus
// the current instant, and both advance on their own cadence.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hangarline/internal/config"
	"hangarline/internal/domain"
	"hangarline/internal/ledger"
	"hangarline/internal/projector"
	"hangarline/internal/repo"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5B8DEF")).
			Padding(0, 1)
	bannerTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	timerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	errStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	statusStyles = map[string]lipgloss.Style{
		domain.StatusOpen:       lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC")),
		domain.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true),
		domain.StatusOnHold:     lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true),
		domain.StatusClosed:     lipgloss.NewStyle().Foreground(lipgloss.Color("#999999")),
	}
)

type tickMsg time.Time

type refreshMsg struct {
	wo       domain.WorkOrder
	findings []domain.Finding
	events   map[string][]domain.SessionEvent
	err      error
}

// Model is the watch-view state.
type Model struct {
	repo  repo.Repo
	cfg   *config.Config
	woUID string

	wo       domain.WorkOrder
	findings []domain.Finding
	events   map[string][]domain.SessionEvent
	now      time.Time
	err      error

	table table.Model
	width int
}

// NewModel builds the watch model for one work order.
func NewModel(r repo.Repo, cfg *config.Config, woUID string) Model {
	if cfg == nil {
		cfg = config.Default()
	}
	columns := []table.Column{
		{Title: "#", Width: 3},
		{Title: "Status", Width: 12},
		{Title: "Finding", Width: 40},
		{Title: "Active", Width: 34},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderBottom(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#5B8DEF"))
	t.SetStyles(styles)
	return Model{
		repo:  r,
		cfg:   cfg,
		woUID: woUID,
		now:   time.Now(),
		table: t,
	}
}

func (m Model) tickInterval() time.Duration {
	secs := m.cfg.Timer.TickSeconds
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

func (m Model) refreshInterval() time.Duration {
	secs := m.cfg.Refresh.IntervalSeconds
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tickInterval(), func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) refreshCmd(after time.Duration) tea.Cmd {
	r, woUID := m.repo, m.woUID
	return tea.Tick(after, func(time.Time) tea.Msg {
		return fetch(r, woUID)
	})
}

func fetch(r repo.Repo, woUID string) refreshMsg {
	ctx := context.Background()
	wo, err := r.GetWorkOrder(ctx, woUID)
	if err != nil {
		return refreshMsg{err: err}
	}
	findings, err := r.ListFindings(ctx, woUID)
	if err != nil {
		return refreshMsg{err: err}
	}
	events := make(map[string][]domain.SessionEvent, len(findings))
	for _, f := range findings {
		evs, err := r.ListSessionEvents(ctx, f.ID)
		if err != nil {
			return refreshMsg{err: err}
		}
		events[f.ID] = evs
	}
	return refreshMsg{wo: wo, findings: findings, events: events}
}

func (m Model) Init() tea.Cmd {
	// The first paint waits for the settle delay so a watch launched right
	// after a mutation sees the committed rows.
	settle := time.Duration(m.cfg.Refresh.SettleDelayMs) * time.Millisecond
	return tea.Batch(m.refreshCmd(settle), m.tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.refreshCmd(0)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		m.now = time.Time(msg)
		m.rebuildRows()
		return m, m.tickCmd()
	case refreshMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.wo = msg.wo
			m.findings = msg.findings
			m.events = msg.events
			m.rebuildRows()
		}
		return m, m.refreshCmd(m.refreshInterval())
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) rebuildRows() {
	rows := make([]table.Row, 0, len(m.findings))
	for _, f := range m.findings {
		evs := m.events[f.ID]
		timers := projector.Timers(evs, m.now)
		parts := make([]string, 0, len(timers))
		for _, tr := range timers {
			parts = append(parts, fmt.Sprintf("%s %s %s", tr.Employee, tr.TaskCode, timerStyle.Render(tr.Elapsed)))
		}
		status := ledger.DisplayStatus(f.Status, evs)
		if style, ok := statusStyles[status]; ok {
			status = style.Render(status)
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", f.Num),
			status,
			f.Description,
			strings.Join(parts, "  "),
		})
	}
	m.table.SetRows(rows)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.banner())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errStyle.Render("refresh failed: "+m.err.Error()) + "\n")
	}
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("q quit · r refresh"))
	return b.String()
}

func (m Model) banner() string {
	h := m.wo.Header
	title := bannerTitleStyle.Render(h.Number)
	if h.Number == "" {
		title = bannerTitleStyle.Render("(loading)")
	}
	lines := []string{
		title,
		fmt.Sprintf("A/C %s · %s", orDash(h.Registration), orDash(h.Customer)),
		orDash(h.PartDesc),
	}
	return bannerStyle.Render(strings.Join(lines, "\n"))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Run starts the watch view and blocks until the user quits.
func Run(r repo.Repo, cfg *config.Config, woUID string) error {
	p := tea.NewProgram(NewModel(r, cfg, woUID), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
