package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pgwire-go/pgwire/internal/client"
	"github.com/pgwire-go/pgwire/internal/ui"
	"github.com/pgwire-go/pgwire/pkg/pgwire"
)

// transitionMsg reports one state change observed on the connection.
type transitionMsg struct {
	state pgwire.ConnectionState
}

// errMsg reports a fatal error on the connection's read loop.
type errMsg struct{ err error }

type model struct {
	conn        *client.Conn
	history     []pgwire.ConnectionState
	historySize int
	params      map[string]string
	err         error
}

func newModel(conn *client.Conn, historySize int) model {
	m := model{
		conn:        conn,
		history:     []pgwire.ConnectionState{conn.State.CurrentState()},
		historySize: historySize,
		params:      map[string]string{},
	}
	for _, name := range []string{"server_version", "server_encoding", "TimeZone", "application_name"} {
		if v, ok := conn.State.ServerParameter(name); ok {
			m.params[name] = v
		}
	}
	return m
}

func (m model) Init() tea.Cmd {
	return watchConn(m.conn)
}

// watchConn reads one frame, applies it to the state machine, and
// reports the resulting state as a tea.Msg. The monitor re-issues this
// command after every message, turning the connection's read loop into
// a stream of Bubble Tea messages.
func watchConn(conn *client.Conn) tea.Cmd {
	return func() tea.Msg {
		tag, payload, err := pgwire.ReadFrame(conn.Conn)
		if err != nil {
			return errMsg{err}
		}
		msg, err := pgwire.ParseBackend(tag, payload)
		if err != nil {
			return errMsg{err}
		}
		if err := conn.State.Receive(msg); err != nil {
			return errMsg{err}
		}
		return transitionMsg{state: conn.State.CurrentState()}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case transitionMsg:
		m.history = append(m.history, msg.state)
		if len(m.history) > m.historySize {
			m.history = m.history[len(m.history)-m.historySize:]
		}
		for _, name := range []string{"server_version", "server_encoding", "TimeZone", "application_name"} {
			if v, ok := m.conn.State.ServerParameter(name); ok {
				m.params[name] = v
			}
		}
		if msg.state.Kind == pgwire.StateTerminated {
			return m, tea.Quit
		}
		return m, watchConn(m.conn)
	case errMsg:
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(ui.Title.Render("pgwire-monitor"))
	b.WriteString("\n")

	current := m.conn.State.CurrentState()
	b.WriteString(fmt.Sprintf("current state: %s\n\n", ui.StateStyle(current.Kind).Render(current.String())))

	if len(m.params) > 0 {
		b.WriteString(ui.Subtitle.Render("server parameters"))
		b.WriteString("\n")
		for _, name := range []string{"server_version", "server_encoding", "TimeZone", "application_name"} {
			if v, ok := m.params[name]; ok {
				b.WriteString(fmt.Sprintf("  %s = %s\n", name, v))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(ui.Subtitle.Render("transition history"))
	b.WriteString("\n")
	for _, s := range m.history {
		b.WriteString(fmt.Sprintf("  %s %s\n", ui.IconArrow, ui.StateStyle(s.Kind).Render(s.String())))
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(ui.Error.Render(fmt.Sprintf("%s %s", ui.IconError, m.err.Error())))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(ui.Muted.Render("press q to quit"))
	return ui.BoxStyle.Render(b.String())
}

func runMonitor(pgCfg pgwire.ConnectionConfig, password string) error {
	spinner := ui.NewSpinner(fmt.Sprintf("connecting to %s:%d", pgCfg.Host, pgCfg.Port))
	spinner.Start()
	conn, err := client.Connect(pgCfg, password)
	if err != nil {
		spinner.StopError(err)
		return err
	}
	spinner.Stop("authenticated")
	defer func() { _ = conn.Close() }()

	p := tea.NewProgram(newModel(conn, 50))
	_, err = p.Run()
	return err
}
