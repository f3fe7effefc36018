package tui

import (
	"strconv"

	"github.com/waabox/orderdeck/internal/domain"
)

// OrderListModel is an immutable model for the order list panel.
type OrderListModel struct {
	orders []domain.Order
	cursor int
}

// NewOrderListModel creates an order list model with the given orders.
func NewOrderListModel(orders []domain.Order) OrderListModel {
	return OrderListModel{orders: orders, cursor: 0}
}

// MoveDown returns a new model with the cursor moved down by one.
func (m OrderListModel) MoveDown() OrderListModel {
	if m.cursor < len(m.orders)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m OrderListModel) MoveUp() OrderListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// SelectedIndex returns the current cursor position.
func (m OrderListModel) SelectedIndex() int {
	return m.cursor
}

// SelectedOrder returns the highlighted order, or the zero Order if the list
// is empty.
func (m OrderListModel) SelectedOrder() domain.Order {
	if len(m.orders) == 0 {
		return domain.Order{}
	}
	return m.orders[m.cursor]
}

// Len returns the number of orders.
func (m OrderListModel) Len() int {
	return len(m.orders)
}

// View renders the order list with the cursor row highlighted.
func (m OrderListModel) View() string {
	if len(m.orders) == 0 {
		return "No orders found."
	}
	return renderTable(orderHeaders, orderRows(m.orders), m.cursor)
}

// RenderOrders renders orders as a plain table without a cursor.
func RenderOrders(orders []domain.Order) string {
	if len(orders) == 0 {
		return "No orders found.\n"
	}
	return renderTable(orderHeaders, orderRows(orders), -1) + "\n"
}

var orderHeaders = []string{"ID", "ORDER", "SHIPMENT", "STATUS", "PROJECT", "WAREHOUSE", "DELIVERY", "LINES", "QTY"}

func orderRows(orders []domain.Order) [][]string {
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []string{
			string(o.ID),
			truncate(o.LookupCodeOrder, 20),
			truncate(o.LookupCodeShipment, 20),
			statusLabel(o.Status),
			string(o.Project),
			string(o.Warehouse),
			orDash(o.ExpectedDeliveryDate),
			strconv.Itoa(len(o.Lines)),
			strconv.Itoa(o.TotalQuantity()),
		})
	}
	return rows
}

func statusLabel(s domain.ID) string {
	switch s {
	case domain.StatusCreated:
		return "Created"
	case "":
		return "?"
	default:
		return string(s)
	}
}

func orDash(s string) string {
	if s == "" {
		return "--"
	}
	return s
}
