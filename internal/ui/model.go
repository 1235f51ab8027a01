package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Automattic/hdfscm/internal/queue"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const (
	maxLogLines    = 100
	refreshEvery   = 100 * time.Millisecond
	defaultWidth   = 80
	defaultLogRows = 20
)

//nolint:gochecknoglobals
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#0675C4"))

	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#0675C4"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E34A4A"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

type progressProvider interface {
	Progress() queue.Progress
}

// ProgressMsg carries a snapshot of the transfer queue.
type ProgressMsg struct {
	t    time.Time
	data queue.Progress
}

// TeaModel renders a single transfer: one progress panel on top of a
// scrolling log panel.
type TeaModel struct {
	width  int
	height int

	title  string
	cancel context.CancelFunc

	uiHandler       *Handler
	progressHandler progressProvider

	innerWidth int

	data         queue.Progress
	bar          progress.Model
	logsViewport viewport.Model
	logs         []string

	ready bool
}

func NewTeaModel(uiHandler *Handler, progressHandler progressProvider, title string, cancel context.CancelFunc) TeaModel {
	return TeaModel{
		title:           title,
		cancel:          cancel,
		uiHandler:       uiHandler,
		progressHandler: progressHandler,
		bar:             progress.New(progress.WithDefaultGradient(), progress.WithWidth(defaultWidth)),
		logsViewport:    viewport.New(defaultWidth, defaultLogRows),
		logs:            make([]string, 0, maxLogLines),
	}
}

func (m TeaModel) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		pollProgress(m.progressHandler),
	)
}

func pollProgress(p progressProvider) tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return ProgressMsg{t: t, data: p.Progress()}
	})
}

//nolint:ireturn
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()

			return m, tea.Quit
		case "q":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.innerWidth = m.width - 2 //nolint:mnd

		m.bar.Width = m.innerWidth

		// Progress panel: borders, title, bar, spacing and five lines of details.
		const progressRows = 11
		m.logsViewport.Width = m.innerWidth
		m.logsViewport.Height = max(1, m.height-progressRows-4) //nolint:mnd

		m.refreshLogs()

		if !m.ready {
			m.ready = true
			m.uiHandler.Ready.Store(true)
		}

	case ProgressMsg:
		m.data = msg.data

		cmds = append(cmds,
			m.bar.SetPercent(m.data.ProgressPct/100), //nolint:mnd
			pollProgress(m.progressHandler),
		)

	case LogMsg:
		if len(m.logs) >= maxLogLines {
			m.logs = m.logs[1:]
		}
		m.logs = append(m.logs, string(msg))

		m.refreshLogs()

	case progress.FrameMsg:
		updated, cmd := m.bar.Update(msg)
		if bar, ok := updated.(progress.Model); ok {
			m.bar = bar
		}
		cmds = append(cmds, cmd)
	}

	m.logsViewport, cmd = m.logsViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *TeaModel) refreshLogs() {
	if len(m.logs) == 0 {
		return
	}

	logs := lipgloss.NewStyle().
		Width(m.logsViewport.Width).
		Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n"))

	m.logsViewport.SetContent(logs)
	m.logsViewport.GotoBottom()
}

func (m TeaModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	progressSection := borderStyle.
		Width(m.innerWidth).
		Render(lipgloss.JoinVertical(
			lipgloss.Left,
			titleStyle.Width(m.innerWidth).Render(m.title),
			"",
			m.bar.View(),
			"",
			m.details(),
		))

	logsSection := borderStyle.
		Width(m.innerWidth).
		Render(lipgloss.JoinVertical(
			lipgloss.Left,
			titleStyle.Width(m.innerWidth).Render("Log"),
			lipgloss.NewStyle().Width(m.innerWidth).Render(m.logsViewport.View()),
		))

	helpSection := helpStyle.
		Width(m.innerWidth).
		Render("q: close view • ctrl+c: abort transfer")

	return lipgloss.JoinVertical(lipgloss.Left, progressSection, logsSection, helpSection)
}

func (m TeaModel) details() string {
	p := m.data

	var speed string
	if p.TransferSpeedUnit == queue.UnitBytes {
		speed = humanize.Bytes(uint64(p.TransferSpeed)) + "/s"
	} else {
		speed = fmt.Sprintf("%d %s", int(p.TransferSpeed), p.TransferSpeedUnit)
	}

	lines := []string{
		fmt.Sprintf("Progress: %.2f%% (%d/%d files, %s of %s)",
			p.ProgressPct,
			p.ProcessedItems,
			p.TotalItems,
			humanize.Bytes(p.ProcessedBytes),
			humanize.Bytes(p.TotalBytes),
		),
		fmt.Sprintf("Files: InProgress=%d, Transferred=%d, Skipped=%d",
			p.InProgressItems,
			p.SuccessItems,
			p.SkippedItems,
		),
	}

	switch {
	case !p.HasStarted:
		lines = append(lines, "Time: Waiting", "")
	case p.HasFinished:
		lines = append(lines,
			fmt.Sprintf("Time: Started=%s, Finished=%s",
				p.StartTime.Format(time.TimeOnly),
				p.FinishTime.Format(time.TimeOnly),
			),
			"",
		)
	default:
		lines = append(lines,
			fmt.Sprintf("Time: Started=%s, ETA=%s (%s left)",
				p.StartTime.Format(time.TimeOnly),
				p.ETA.Format(time.TimeOnly),
				p.TimeLeft.Round(time.Second),
			),
			"Speed: "+speed,
		)
	}

	out := infoStyle.Width(m.innerWidth).Render(strings.Join(lines, "\n"))
	if p.FailedItems > 0 {
		out += "\n" + failedStyle.Render(fmt.Sprintf("Failed: %d", p.FailedItems))
	}

	return out
}
