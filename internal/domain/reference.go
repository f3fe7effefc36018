package domain

// Project is a customer project orders are placed against.
type Project struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Warehouse ships the materials of an order.
type Warehouse struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Carrier transports an order.
type Carrier struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// CarrierService is a service level offered by a carrier.
type CarrierService struct {
	ID      ID     `json:"id"`
	Name    string `json:"name"`
	Carrier ID     `json:"carrier"`
}

// InventoryItem is a stock record returned by /inventory/list/. Order lines
// reference its Material, not its own ID.
type InventoryItem struct {
	ID           ID     `json:"id"`
	Location     string `json:"location,omitempty"`
	LicensePlate string `json:"license_plate,omitempty"`
	Lot          string `json:"lot,omitempty"`
	VendorLot    string `json:"vendor_lot,omitempty"`
	Quantity     int    `json:"quantity"`
	Project      ID     `json:"project,omitempty"`
	Warehouse    ID     `json:"warehouse,omitempty"`
	Material     ID     `json:"material"`
	MaterialName string `json:"material_name"`
}

// Address types carried by contacts.
const (
	AddressShipping = "shipping"
	AddressBilling  = "billing"
)

// Address belongs to a contact.
type Address struct {
	ID           ID     `json:"id"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Country      string `json:"country,omitempty"`
	AddressType  string `json:"address_type"`
	Notes        string `json:"notes,omitempty"`
}

// Contact is an order recipient.
type Contact struct {
	ID        ID        `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Addresses []Address `json:"addresses"`
}

// FullName joins first and last name.
func (c Contact) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// FirstAddress returns the first address of the given type.
func (c Contact) FirstAddress(addressType string) (Address, bool) {
	for _, a := range c.Addresses {
		if a.AddressType == addressType {
			return a, true
		}
	}
	return Address{}, false
}

// ReferenceData bundles every lookup list needed to compose an order.
type ReferenceData struct {
	Projects        []Project
	Warehouses      []Warehouse
	Carriers        []Carrier
	CarrierServices []CarrierService
	Materials       []InventoryItem
	Contacts        []Contact
}
