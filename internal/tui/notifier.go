package tui

import (
	"fmt"
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/waabox/orderdeck/internal/api"
)

// ModalNotifier shows ExpiredModal on the terminal and blocks until the user
// acknowledges it.
type ModalNotifier struct {
	In    io.Reader
	Out   io.Writer
	Clear func() error
}

func (n ModalNotifier) SessionExpired() {
	p := tea.NewProgram(NewExpiredModal(n.Clear), tea.WithInput(n.In), tea.WithOutput(n.Out))
	if _, err := p.Run(); err != nil {
		log.Warnf("session expired modal failed: %v", err)
		WriterNotifier{W: n.Out, Clear: n.Clear}.SessionExpired()
	}
}

// WriterNotifier prints the expired-session message. Used when there is no
// terminal to draw the modal on.
type WriterNotifier struct {
	W     io.Writer
	Clear func() error
}

func (n WriterNotifier) SessionExpired() {
	if n.Clear != nil {
		if err := n.Clear(); err != nil {
			log.Warnf("clearing session: %v", err)
		}
	}
	fmt.Fprintf(n.W, "%s\n%s\n", ExpiredMessage, LoginHint)
}

// NewNotifier picks the modal when in is a terminal and plain text otherwise.
func NewNotifier(in *os.File, out io.Writer, clear func() error) api.Notifier {
	if term.IsTerminal(int(in.Fd())) {
		return ModalNotifier{In: in, Out: out, Clear: clear}
	}
	return WriterNotifier{W: out, Clear: clear}
}

// Relay forwards the notification to an attached program, which then shows
// the modal inside its own view. Without one it falls back to Fallback.
type Relay struct {
	Fallback api.Notifier

	mu      sync.Mutex
	program *tea.Program
}

// Attach routes notifications to p until Detach.
func (r *Relay) Attach(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

func (r *Relay) Detach() {
	r.Attach(nil)
}

func (r *Relay) SessionExpired() {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(SessionExpiredMsg{})
		return
	}
	if r.Fallback != nil {
		r.Fallback.SessionExpired()
	}
}
