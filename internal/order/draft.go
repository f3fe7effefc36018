// Package order prepares orders composed offline for submission.
package order

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/waabox/orderdeck/internal/domain"
)

const (
	msgRequired = "This field is required."
	dateLayout  = "2006-01-02"
)

// LoadDraft reads an order draft from a TOML file and applies the defaults.
func LoadDraft(path string) (domain.Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Order{}, fmt.Errorf("reading draft: %w", err)
	}
	return ParseDraft(string(data))
}

// ParseDraft decodes a TOML draft. Unknown keys are rejected so a typo does
// not silently drop a field.
func ParseDraft(data string) (domain.Order, error) {
	var o domain.Order
	md, err := toml.Decode(data, &o)
	if err != nil {
		return domain.Order{}, fmt.Errorf("parsing draft: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return domain.Order{}, fmt.Errorf("parsing draft: unknown keys %s", strings.Join(keys, ", "))
	}
	ApplyDefaults(&o)
	return o, nil
}

// ApplyDefaults fills the codes a new order is created with: status Created,
// type Outbound, class Sales Orders.
func ApplyDefaults(o *domain.Order) {
	if o.Status == "" {
		o.Status = domain.StatusCreated
	}
	if o.OrderType == "" {
		o.OrderType = domain.OrderTypeOutbound
	}
	if o.OrderClass == "" {
		o.OrderClass = domain.OrderClassSales
	}
}

// ApplyContactDefaults picks the first shipping and billing address of the
// order's contact when the draft leaves them empty. It reports whether the
// contact was found.
func ApplyContactDefaults(o *domain.Order, contacts []domain.Contact) bool {
	if o.Contact == "" {
		return false
	}
	for _, c := range contacts {
		if c.ID != o.Contact {
			continue
		}
		if o.ShippingAddress == "" {
			if a, ok := c.FirstAddress(domain.AddressShipping); ok {
				o.ShippingAddress = a.ID
			}
		}
		if o.BillingAddress == "" {
			if a, ok := c.FirstAddress(domain.AddressBilling); ok {
				o.BillingAddress = a.ID
			}
		}
		return true
	}
	return false
}

// NeedsContactDefaults reports whether an address is left to be filled from
// the contact.
func NeedsContactDefaults(o domain.Order) bool {
	return o.Contact != "" && (o.ShippingAddress == "" || o.BillingAddress == "")
}

// Validate checks what the backend would otherwise reject. It returns nil or
// a *domain.ValidationError.
func Validate(o domain.Order) error {
	verr := &domain.ValidationError{}
	required := []struct {
		field string
		value string
	}{
		{"lookup_code_order", o.LookupCodeOrder},
		{"lookup_code_shipment", o.LookupCodeShipment},
		{"expected_delivery_date", o.ExpectedDeliveryDate},
		{"project", string(o.Project)},
		{"warehouse", string(o.Warehouse)},
		{"contact", string(o.Contact)},
		{"shipping_address", string(o.ShippingAddress)},
		{"billing_address", string(o.BillingAddress)},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			verr.Add(r.field, msgRequired)
		}
	}
	if o.ExpectedDeliveryDate != "" {
		if _, err := time.Parse(dateLayout, o.ExpectedDeliveryDate); err != nil {
			verr.Add("expected_delivery_date", "Date has wrong format. Use YYYY-MM-DD.")
		}
	}

	if len(o.Lines) == 0 {
		verr.Add("lines", "Order must have at least one line.")
	}
	for i, l := range o.Lines {
		if l.Material == "" {
			verr.Add("lines", fmt.Sprintf("line %d: material: %s", i+1, msgRequired))
		}
		if l.Quantity <= 0 {
			verr.Add("lines", fmt.Sprintf("line %d: quantity: Ensure this value is greater than 0.", i+1))
		}
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

// Submit fills contact addresses from the backend when needed, validates the
// order and creates it.
func Submit(ctx context.Context, backend domain.OrderBackend, o domain.Order) (domain.Order, error) {
	ApplyDefaults(&o)
	if NeedsContactDefaults(o) {
		ref, err := backend.LoadReferenceData(ctx)
		if err != nil {
			return domain.Order{}, fmt.Errorf("loading contacts: %w", err)
		}
		if !ApplyContactDefaults(&o, ref.Contacts) {
			return domain.Order{}, fmt.Errorf("contact %s not found", o.Contact)
		}
	}
	if err := Validate(o); err != nil {
		return domain.Order{}, err
	}
	return backend.CreateOrder(ctx, o)
}
