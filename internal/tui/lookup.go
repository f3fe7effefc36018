package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/waabox/orderdeck/internal/domain"
)

// Lookup kinds accepted by RenderLookup.
const (
	LookupCarriers        = "carriers"
	LookupCarrierServices = "carrier-services"
	LookupWarehouses      = "warehouses"
	LookupProjects        = "projects"
	LookupMaterials       = "materials"
	LookupContacts        = "contacts"
)

// LookupKinds lists every reference list that can be rendered.
func LookupKinds() []string {
	kinds := []string{
		LookupCarriers, LookupCarrierServices, LookupWarehouses,
		LookupProjects, LookupMaterials, LookupContacts,
	}
	sort.Strings(kinds)
	return kinds
}

// RenderLookup renders one kind of reference data as a table.
func RenderLookup(kind string, ref domain.ReferenceData) (string, error) {
	var headers []string
	var rows [][]string
	switch kind {
	case LookupCarriers:
		headers = []string{"ID", "NAME"}
		for _, c := range ref.Carriers {
			rows = append(rows, []string{string(c.ID), c.Name})
		}
	case LookupCarrierServices:
		headers = []string{"ID", "NAME", "CARRIER"}
		for _, s := range ref.CarrierServices {
			rows = append(rows, []string{string(s.ID), s.Name, string(s.Carrier)})
		}
	case LookupWarehouses:
		headers = []string{"ID", "NAME"}
		for _, w := range ref.Warehouses {
			rows = append(rows, []string{string(w.ID), w.Name})
		}
	case LookupProjects:
		headers = []string{"ID", "NAME"}
		for _, p := range ref.Projects {
			rows = append(rows, []string{string(p.ID), p.Name})
		}
	case LookupMaterials:
		headers = []string{"MATERIAL", "NAME", "QTY", "LOT", "LOCATION"}
		for _, i := range ref.Materials {
			rows = append(rows, []string{string(i.Material), i.MaterialName, strconv.Itoa(i.Quantity), orDash(i.Lot), orDash(i.Location)})
		}
	case LookupContacts:
		headers = []string{"ID", "NAME", "EMAIL", "SHIPPING", "BILLING"}
		for _, c := range ref.Contacts {
			rows = append(rows, []string{string(c.ID), c.FullName(), orDash(c.Email), addressLabel(c, domain.AddressShipping), addressLabel(c, domain.AddressBilling)})
		}
	default:
		return "", fmt.Errorf("unknown lookup %q (want one of %s)", kind, strings.Join(LookupKinds(), ", "))
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No %s found.\n", kind), nil
	}
	return renderTable(headers, rows, -1) + "\n", nil
}

func addressLabel(c domain.Contact, addressType string) string {
	a, ok := c.FirstAddress(addressType)
	if !ok {
		return "--"
	}
	return fmt.Sprintf("#%s %s", a.ID, truncate(strings.TrimSpace(a.AddressLine1+", "+a.City), 30))
}
