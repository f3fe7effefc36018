package domain

// Order type, class and status codes used by the backend when an order is
// created from the client.
const (
	StatusCreated     ID = "3"
	OrderTypeOutbound ID = "2"
	OrderClassSales   ID = "1"
)

// OrderLine is a single material request within an order.
type OrderLine struct {
	Material     ID     `json:"material" toml:"material"`
	Quantity     int    `json:"quantity" toml:"quantity"`
	LicensePlate string `json:"license_plate,omitempty" toml:"license_plate"`
	SerialNumber string `json:"serial_number,omitempty" toml:"serial_number"`
	Lot          string `json:"lot,omitempty" toml:"lot"`
	VendorLot    string `json:"vendor_lot,omitempty" toml:"vendor_lot"`
	Notes        string `json:"notes,omitempty" toml:"notes"`
}

// Order is a multi-line order as exchanged with the /orders/ endpoint.
type Order struct {
	ID                   ID          `json:"id,omitempty" toml:"-"`
	LookupCodeOrder      string      `json:"lookup_code_order" toml:"lookup_code_order"`
	LookupCodeShipment   string      `json:"lookup_code_shipment,omitempty" toml:"lookup_code_shipment"`
	Status               ID          `json:"status,omitempty" toml:"status"`
	OrderType            ID          `json:"order_type,omitempty" toml:"order_type"`
	OrderClass           ID          `json:"order_class,omitempty" toml:"order_class"`
	Project              ID          `json:"project,omitempty" toml:"project"`
	Warehouse            ID          `json:"warehouse,omitempty" toml:"warehouse"`
	Contact              ID          `json:"contact,omitempty" toml:"contact"`
	ShippingAddress      ID          `json:"shipping_address,omitempty" toml:"shipping_address"`
	BillingAddress       ID          `json:"billing_address,omitempty" toml:"billing_address"`
	Carrier              ID          `json:"carrier,omitempty" toml:"carrier"`
	ServiceType          ID          `json:"service_type,omitempty" toml:"service_type"`
	ExpectedDeliveryDate string      `json:"expected_delivery_date,omitempty" toml:"expected_delivery_date"`
	Notes                string      `json:"notes,omitempty" toml:"notes"`
	Lines                []OrderLine `json:"lines" toml:"lines"`
	CreatedByUser        ID          `json:"created_by_user,omitempty" toml:"-"`
}

// TotalQuantity sums the quantities of all lines.
func (o Order) TotalQuantity() int {
	total := 0
	for _, l := range o.Lines {
		total += l.Quantity
	}
	return total
}
