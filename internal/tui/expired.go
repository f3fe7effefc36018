package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ExpiredMessage is what the user is told when the session cannot be renewed.
const ExpiredMessage = "Your session has expired. Please log in again."

// LoginHint points the user back to the unauthenticated entry point.
const LoginHint = "Run `orderdeck login` to sign in."

// SessionExpiredMsg asks a running program to show the expired-session modal.
type SessionExpiredMsg struct{}

// ExpiredModal tells the user the session is gone and waits for OK. On
// acknowledgement it runs onAck, which clears the stored session.
type ExpiredModal struct {
	onAck        func() error
	acknowledged bool
	err          error
	width        int
}

// NewExpiredModal creates the modal. onAck may be nil.
func NewExpiredModal(onAck func() error) ExpiredModal {
	return ExpiredModal{onAck: onAck}
}

func (m ExpiredModal) Init() tea.Cmd { return nil }

// Update acknowledges on enter, space, esc or q and then quits.
func (m ExpiredModal) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		if m.acknowledged {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter", " ", "esc", "q", "ctrl+c":
			m = m.acknowledge()
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ExpiredModal) acknowledge() ExpiredModal {
	m.acknowledged = true
	if m.onAck != nil {
		m.err = m.onAck()
	}
	return m
}

// Acknowledged reports whether the user pressed OK.
func (m ExpiredModal) Acknowledged() bool {
	return m.acknowledged
}

// Err returns the error from clearing the session, if any.
func (m ExpiredModal) Err() error {
	return m.err
}

func (m ExpiredModal) View() string {
	if m.acknowledged {
		var sb strings.Builder
		if m.err != nil {
			sb.WriteString(errorStyle.Render("could not clear session: "+m.err.Error()) + "\n")
		}
		sb.WriteString(mutedStyle.Render(LoginHint) + "\n")
		return sb.String()
	}
	body := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("Session expired"),
		"",
		ExpiredMessage,
		"",
		buttonStyle.Render("OK"),
	)
	box := modalStyle.Render(body)
	if m.width > 0 {
		box = lipgloss.PlaceHorizontal(m.width, lipgloss.Center, box)
	}
	return box + "\n"
}
