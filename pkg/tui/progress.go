package tui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4285F4"))
)

// Progress renders a spinner with the current fetch phase. It satisfies
// telemetry.ProgressReporter.
type Progress struct {
	program *tea.Program
	done    chan struct{}
	once    sync.Once
}

type setPhaseMsg struct {
	phase string
}

type setDetailMsg struct {
	detail string
}

type finishMsg struct{}

type progressModel struct {
	title   string
	phase   string
	detail  string
	steps   int
	done    bool
	spinner spinner.Model
}

func NewProgress(title string, output io.Writer) *Progress {
	return newProgress(title, tea.WithOutput(output))
}

func newProgress(title string, opts ...tea.ProgramOption) *Progress {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	model := progressModel{
		title:   title,
		spinner: s,
	}
	return &Progress{
		program: tea.NewProgram(model, opts...),
		done:    make(chan struct{}),
	}
}

func (p *Progress) Start() {
	go func() {
		defer close(p.done)
		_, _ = p.program.Run()
	}()
}

func (p *Progress) Wait() {
	<-p.done
}

func (p *Progress) SetPhase(phase string) {
	p.program.Send(setPhaseMsg{phase: phase})
}

func (p *Progress) SetDetail(detail string) {
	p.program.Send(setDetailMsg{detail: detail})
}

// Finish clears the spinner and stops the program. Safe to call twice.
func (p *Progress) Finish() {
	p.program.Send(finishMsg{})
	p.once.Do(func() {
		p.program.Quit()
	})
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case setPhaseMsg:
		if typed.phase != m.phase {
			m.steps++
		}
		m.phase = typed.phase
		m.detail = ""
		return m, nil
	case setDetailMsg:
		m.detail = typed.detail
		return m, nil
	case finishMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if typed.Type == tea.KeyCtrlC {
			m.done = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}

	header := headerStyle.Render(m.title)
	if m.steps > 0 {
		header += infoStyle.Render(fmt.Sprintf(" [step %d]", m.steps))
	}

	statusLine := ""
	if m.phase != "" {
		detail := ""
		if m.detail != "" {
			detail = infoStyle.Render(fmt.Sprintf(" (%s)", m.detail))
		}
		statusLine = fmt.Sprintf("\n%s %s%s", m.spinner.View(), phaseStyle.Render(m.phase), detail)
	}

	return "\n" + header + statusLine + "\n"
}
