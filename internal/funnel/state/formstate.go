// internal/funnel/state/formstate.go
package state

import "energylab-funnel/internal/funnel/epc"

// FormState accumulates everything collected across the wizard steps. It is
// the canonical union schema: every slide variant's fields, present from
// mount. Values set by an earlier step are never cleared by a later merge;
// only ResetAddress removes anything, and only the address-lookup subset.
type FormState struct {
	Postcode     string `json:"postcode"`
	Address      string `json:"address"`
	House        string `json:"house"`
	Street       string `json:"street"`
	Town         string `json:"town"`
	County       string `json:"county"`
	UPRN         string `json:"uprn"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`

	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	MarketingOptOut bool `json:"marketingOptOut"`

	EcoEligible         bool   `json:"ecoEligible"`
	BaxterKellyEligible bool   `json:"baxterKellyEligible"`
	ProductID           string `json:"product_id"`
	DesID               string `json:"des_id"`

	EPC *epc.Record `json:"epcData"`
}

// Patch is a copy-on-write overlay for FormState. Nil fields leave the
// current value untouched, so a step that only collects contact details
// cannot wipe the address collected earlier.
type Patch struct {
	Postcode     *string
	Address      *string
	House        *string
	Street       *string
	Town         *string
	County       *string
	UPRN         *string
	AddressLine1 *string
	AddressLine2 *string

	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string

	MarketingOptOut *bool

	EcoEligible         *bool
	BaxterKellyEligible *bool
	ProductID           *string
	DesID               *string

	// EPC overlays when non-nil. Clearing EPC data is only possible via
	// ResetAddress, matching the search-again behaviour.
	EPC *epc.Record
}

// New returns the all-empty FormState created at wizard mount.
func New() FormState {
	return FormState{}
}

// Merge returns a new FormState with the patch overlaid. The receiver is
// not modified.
func (s FormState) Merge(p Patch) FormState {
	out := s

	setString(&out.Postcode, p.Postcode)
	setString(&out.Address, p.Address)
	setString(&out.House, p.House)
	setString(&out.Street, p.Street)
	setString(&out.Town, p.Town)
	setString(&out.County, p.County)
	setString(&out.UPRN, p.UPRN)
	setString(&out.AddressLine1, p.AddressLine1)
	setString(&out.AddressLine2, p.AddressLine2)

	setString(&out.FirstName, p.FirstName)
	setString(&out.LastName, p.LastName)
	setString(&out.Email, p.Email)
	setString(&out.Phone, p.Phone)

	setBool(&out.MarketingOptOut, p.MarketingOptOut)
	setBool(&out.EcoEligible, p.EcoEligible)
	setBool(&out.BaxterKellyEligible, p.BaxterKellyEligible)
	setString(&out.ProductID, p.ProductID)
	setString(&out.DesID, p.DesID)

	if p.EPC != nil {
		out.EPC = p.EPC
	}

	return out
}

// ResetAddress returns a new FormState with the address-lookup subset
// cleared (the user chose to search again). Contact details and consent
// survive the reset.
func (s FormState) ResetAddress() FormState {
	out := s
	out.Postcode = ""
	out.Address = ""
	out.House = ""
	out.Street = ""
	out.Town = ""
	out.County = ""
	out.UPRN = ""
	out.AddressLine1 = ""
	out.AddressLine2 = ""
	out.EcoEligible = false
	out.BaxterKellyEligible = false
	out.ProductID = ""
	out.DesID = ""
	out.EPC = nil
	return out
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// String returns a pointer to s, for building patches.
func String(s string) *string { return &s }

// Bool returns a pointer to b, for building patches.
func Bool(b bool) *bool { return &b }
