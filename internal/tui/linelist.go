package tui

import (
	"strconv"

	"github.com/waabox/orderdeck/internal/domain"
)

// LineListModel is an immutable model for the lines of the selected order.
type LineListModel struct {
	lines  []domain.OrderLine
	cursor int
}

// NewLineListModel creates a line list model.
func NewLineListModel(lines []domain.OrderLine) LineListModel {
	return LineListModel{lines: lines, cursor: 0}
}

// MoveDown returns a new model with the cursor moved down by one.
func (m LineListModel) MoveDown() LineListModel {
	if m.cursor < len(m.lines)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m LineListModel) MoveUp() LineListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// SelectedIndex returns the current cursor position.
func (m LineListModel) SelectedIndex() int {
	return m.cursor
}

func (m LineListModel) View() string {
	if len(m.lines) == 0 {
		return "This order has no lines."
	}
	rows := make([][]string, 0, len(m.lines))
	for i, l := range m.lines {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(l.Material),
			strconv.Itoa(l.Quantity),
			orDash(l.Lot),
			orDash(l.LicensePlate),
			orDash(l.SerialNumber),
			truncate(l.Notes, 30),
		})
	}
	return renderTable([]string{"#", "MATERIAL", "QTY", "LOT", "LICENSE PLATE", "SERIAL", "NOTES"}, rows, m.cursor)
}
