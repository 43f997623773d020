// Package ui is the terminal front end of the view command: a progress bar
// while the graph is built chunk by chunk, then the legend panel and a
// summary of the load.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/session"
)

// ProgressMsg carries a chunk counter from the builder to the model.
type ProgressMsg graph.Progress

// LoadedMsg is sent when a load finishes.
type LoadedMsg struct {
	Result *session.Result
	Err    error
}

// ReloadMsg asks the model to start a new load, as the r key does. The
// file watcher sends it when an input changes.
type ReloadMsg struct{}

// LoadFunc runs one load. It is called from a tea.Cmd goroutine.
type LoadFunc func(ctx context.Context) (*session.Result, error)

type state int

const (
	stateLoading state = iota
	stateReady
	stateFailed
)

// maxDetailNodes caps the node list shown for the selected type.
const maxDetailNodes = 8

// Model is the bubbletea model of the view command.
type Model struct {
	title string
	load  LoadFunc

	ctx    context.Context
	cancel context.CancelFunc

	state    state
	progress progress.Model
	current  graph.Progress
	legend   LegendPanelModel
	result   *session.Result
	err      error
	notice   string

	width  int
	height int
}

// NewModel creates the model. The first load starts from Init.
func NewModel(title string, load LoadFunc) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		title:    title,
		load:     load,
		ctx:      ctx,
		cancel:   cancel,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

func (m Model) Init() tea.Cmd {
	return m.startLoad()
}

func (m Model) startLoad() tea.Cmd {
	load, ctx := m.load, m.ctx
	return func() tea.Msg {
		res, err := load(ctx)
		return LoadedMsg{Result: res, Err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = max(10, min(60, msg.Width-8))
		m.legend.SetSize(max(30, msg.Width/2), msg.Height-8)
		return m, nil

	case ProgressMsg:
		m.current = graph.Progress(msg)
		return m, nil

	case LoadedMsg:
		if errors.Is(msg.Err, session.ErrLoadInProgress) {
			m.notice = "a load is already running"
			return m, nil
		}
		if msg.Err != nil {
			m.state = stateFailed
			m.err = msg.Err
			return m, nil
		}
		m.state = stateReady
		m.result = msg.Result
		m.err = nil
		m.notice = ""
		m.legend.SetLegend(msg.Result.Legend)
		return m, nil

	case ReloadMsg:
		return m.reload()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancel()
			return m, tea.Quit
		case "j", "down":
			m.legend.MoveDown()
		case "k", "up":
			m.legend.MoveUp()
		case "r":
			return m.reload()
		}
		return m, nil
	}
	return m, nil
}

func (m Model) reload() (tea.Model, tea.Cmd) {
	if m.state == stateLoading {
		return m, nil
	}
	m.state = stateLoading
	m.current = graph.Progress{}
	m.notice = ""
	return m, m.startLoad()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	switch m.state {
	case stateLoading:
		b.WriteString(m.progress.ViewAs(m.current.Fraction()))
		b.WriteString("\n")
		b.WriteString(subtleStyle.Render(fmt.Sprintf("chunk %d/%d  nodes %d  edges %d",
			m.current.Done, m.current.Total, m.current.Nodes, m.current.Edges)))
		b.WriteString("\n")

	case stateFailed:
		b.WriteString(Alert("Load failed", m.err.Error()))
		b.WriteString("\n")

	case stateReady:
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			m.legend.View(),
			strings.Repeat(" ", SpaceSM),
			m.summaryView()))
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(ColorWarning).Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("j/k: select type • r: reload • q: quit"))
	return b.String()
}

func (m Model) summaryView() string {
	res := m.result
	s := res.Stats
	lines := []string{
		titleStyle.Render("Summary"),
		"",
		fmt.Sprintf("nodes   %d (%d rows)", s.Nodes, s.RawNodes),
		fmt.Sprintf("edges   %d (%d rows)", s.Edges, s.RawEdges),
		fmt.Sprintf("dropped %d dangling", s.EdgesDropped),
		fmt.Sprintf("pruned  %d isolated", s.Pruned),
		fmt.Sprintf("chunks  %d", s.Chunks),
	}
	if s.Warnings > 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(ColorWarning).
			Render(fmt.Sprintf("%d malformed rows skipped", s.Warnings)))
	}
	if res.LayoutErr != nil {
		lines = append(lines, lipgloss.NewStyle().Foreground(ColorDanger).
			Render("layout failed: "+res.LayoutErr.Error()))
	} else {
		lines = append(lines, lipgloss.NewStyle().Foreground(ColorSuccess).Render("layout ok"))
	}

	if e, ok := m.legend.Selected(); ok && res.Graph != nil {
		lines = append(lines, "", titleStyle.Render(e.Category))
		shown := 0
		for _, n := range res.Graph.Nodes() {
			if n.Category() != e.Category {
				continue
			}
			if shown == maxDetailNodes {
				lines = append(lines, subtleStyle.Render(fmt.Sprintf("… and %d more", e.Count-shown)))
				break
			}
			lines = append(lines, fmt.Sprintf("%s  %s", n.ID, subtleStyle.Render(n.Label())))
			shown++
		}
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

// Result returns the latest successful load, or nil.
func (m Model) Result() *session.Result {
	return m.result
}

// Err returns the error of the last failed load.
func (m Model) Err() error {
	return m.err
}
