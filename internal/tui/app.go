package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/orderdeck/internal/domain"
)

// OrdersLoadedMsg is sent when orders have been fetched from the backend.
// It is exported so that tests can inject it directly into AppModel.Update.
type OrdersLoadedMsg struct {
	Orders []domain.Order
	Err    error
}

// OrderLister is the part of the backend the browser needs.
type OrderLister interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
}

// viewState indicates the current navigation level.
type viewState int

const (
	viewOrders viewState = iota
	viewLines
	viewExpired
)

// AppModel is the root Bubbletea model of the order browser.
type AppModel struct {
	backend OrderLister
	user    domain.User
	view    viewState

	list  OrderListModel
	lines LineListModel

	selected domain.Order
	expired  ExpiredModal
	loading  bool
	err      error
	width    int
}

// NewAppModel creates the browser. clearSession runs when the user
// acknowledges an expired session.
func NewAppModel(backend OrderLister, user domain.User, clearSession func() error) AppModel {
	return AppModel{
		backend: backend,
		user:    user,
		list:    NewOrderListModel(nil),
		lines:   NewLineListModel(nil),
		expired: NewExpiredModal(clearSession),
		loading: true,
	}
}

// Init triggers the initial order load.
func (m AppModel) Init() tea.Cmd {
	return m.loadOrders()
}

func (m AppModel) loadOrders() tea.Cmd {
	return func() tea.Msg {
		orders, err := m.backend.ListOrders(context.Background())
		return OrdersLoadedMsg{Orders: orders, Err: err}
	}
}

// Expired reports whether the browser ended on an expired session.
func (m AppModel) Expired() bool {
	return m.view == viewExpired
}

// Update handles all incoming messages and key events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		updated, _ := m.expired.Update(msg)
		m.expired = updated.(ExpiredModal)
		return m, nil

	case SessionExpiredMsg:
		m.view = viewExpired
		m.loading = false
		return m, nil

	case OrdersLoadedMsg:
		m.loading = false
		if errors.Is(msg.Err, domain.ErrSessionExpired) {
			m.view = viewExpired
			return m, nil
		}
		m.err = msg.Err
		if msg.Err == nil {
			m.list = NewOrderListModel(msg.Orders)
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewExpired {
			updated, cmd := m.expired.Update(msg)
			m.expired = updated.(ExpiredModal)
			return m, cmd
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "ctrl+r":
			m.loading = true
			return m, m.loadOrders()
		}
		switch m.view {
		case viewOrders:
			return m.updateOrders(msg)
		case viewLines:
			return m.updateLines(msg)
		}
	}
	return m, nil
}

func (m AppModel) updateOrders(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.list = m.list.MoveUp()
	case "down", "j":
		m.list = m.list.MoveDown()
	case "enter":
		if m.list.Len() == 0 {
			return m, nil
		}
		m.selected = m.list.SelectedOrder()
		m.lines = NewLineListModel(m.selected.Lines)
		m.view = viewLines
	}
	return m, nil
}

func (m AppModel) updateLines(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.lines = m.lines.MoveUp()
	case "down", "j":
		m.lines = m.lines.MoveDown()
	case "esc", "backspace":
		m.view = viewOrders
	}
	return m, nil
}

// View renders the current view.
func (m AppModel) View() string {
	if m.view == viewExpired {
		return m.expired.View()
	}

	header := " orderdeck"
	if m.user.Email != "" {
		header += "  " + m.user.DisplayName()
	}
	header = titleStyle.Render(header) + "\n"
	separator := strings.Repeat("─", 60) + "\n"

	var body, footer string
	switch {
	case m.loading:
		body = "\n Loading orders...\n"
	case m.err != nil:
		body = "\n " + errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	case m.view == viewLines:
		body = fmt.Sprintf(" Order %s  %s  (%d units)\n", m.selected.LookupCodeOrder, statusLabel(m.selected.Status), m.selected.TotalQuantity()) + m.lines.View() + "\n"
	default:
		body = m.list.View() + "\n"
	}
	if m.view == viewLines {
		footer = " ↑/↓: navigate   esc: back   ctrl+r: reload   q: quit\n"
	} else {
		footer = " ↑/↓: navigate   enter: lines   ctrl+r: reload   q: quit\n"
	}
	return header + separator + body + separator + mutedStyle.Render(footer)
}

// Run starts the browser and reports whether it ended on an expired session.
// relay, when set, routes session-expired notifications into the program
// while it runs.
func Run(backend OrderLister, user domain.User, clearSession func() error, relay *Relay) (bool, error) {
	p := tea.NewProgram(NewAppModel(backend, user, clearSession), tea.WithAltScreen())
	if relay != nil {
		relay.Attach(p)
		defer relay.Detach()
	}
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("running order browser: %w", err)
	}
	app, ok := final.(AppModel)
	return ok && app.Expired(), nil
}
