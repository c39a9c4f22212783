package spinner

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/forgestack/forge/internal/ui"
)

type Model struct {
	spinner spinner.Model
	step    string
	err     error
	done    bool
	result  interface{}
}

// StepMsg replaces the text shown next to the spinner.
type StepMsg string

type ResultMsg struct {
	Result interface{}
}

type ErrorMsg struct {
	Err error
}

func NewSpinnerModel() Model {
	return NewSpinnerModelWithMessage("Starting...")
}

func NewSpinnerModelWithMessage(message string) Model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ui.PrimaryColor))
	return Model{
		spinner: s,
		step:    message,
	}
}

func (m Model) HasError() bool {
	return m.err != nil
}

func (m Model) GetError() error {
	return m.err
}

func (m Model) HasResult() bool {
	return m.result != nil
}

func (m Model) GetResult() interface{} {
	return m.result
}

func (m Model) Step() string {
	return m.step
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.err = fmt.Errorf("interrupted")
			m.done = true
			return m, tea.Quit
		}
	case error:
		return m.fail(msg)
	case ErrorMsg:
		return m.fail(msg.Err)
	case ResultMsg:
		m.result = msg.Result
		m.done = true
		return m, tea.Quit
	case StepMsg:
		m.step = string(msg)
		return m, nil
	case string:
		m.step = msg
		return m, nil
	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// fail leaves the failed step on screen; the caller reports the error.
func (m Model) fail(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.done = true
	return m, tea.Sequence(
		tea.Printf("%s", ui.ErrorStyle.Render(ui.ErrorSymbol+" "+strings.TrimSpace(m.step))),
		tea.Quit,
	)
}

func (m Model) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), m.step)
}
