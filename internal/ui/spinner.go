package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Spinner wraps a bubbletea spinner shown while a handshake is in flight.
type Spinner struct {
	message string
	program *tea.Program
	done    chan struct{}
}

type spinnerModel struct {
	spinner  spinner.Model
	message  string
	quitting bool
}

type spinnerDoneMsg struct{}

func initialSpinnerModel(message string) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = Info
	return spinnerModel{spinner: s, message: message}
}

func (m *spinnerModel) Init() tea.Cmd { return m.spinner.Tick }

func (m *spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
	case spinnerDoneMsg:
		m.quitting = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *spinnerModel) View() string {
	if m.quitting {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), m.message)
}

// NewSpinner creates a spinner for message.
func NewSpinner(message string) *Spinner {
	return &Spinner{message: message, done: make(chan struct{})}
}

// Start renders the spinner until Stop or StopError is called.
func (s *Spinner) Start() {
	model := initialSpinnerModel(s.message)
	s.program = tea.NewProgram(&model)
	go func() {
		_, _ = s.program.Run()
		close(s.done)
	}()
}

// Stop ends the spinner with a success line.
func (s *Spinner) Stop(message string) {
	if s.program != nil {
		s.program.Send(spinnerDoneMsg{})
		<-s.done
	}
	fmt.Printf("%s %s\n", Success.Render(IconSuccess), message)
}

// StopError ends the spinner with an error line.
func (s *Spinner) StopError(err error) {
	if s.program != nil {
		s.program.Send(spinnerDoneMsg{})
		<-s.done
	}
	fmt.Printf("%s %s\n", Error.Render(IconError), Error.Render(err.Error()))
}
