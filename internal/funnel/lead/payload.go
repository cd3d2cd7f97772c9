// internal/funnel/lead/payload.go
package lead

import (
	"energylab-funnel/internal/funnel/epc"
	"energylab-funnel/internal/funnel/state"
)

const (
	consentYes = "YES"
	consentNo  = "NO"
)

// Payload is the lead-ingestion request body. Channel consent flags carry
// the literal strings YES/NO as the ingestion endpoint expects.
type Payload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	Postcode     string `json:"post_code"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	Town         string `json:"town,omitempty"`
	County       string `json:"county,omitempty"`
	UPRN         string `json:"uprn,omitempty"`

	ContactByPhone string `json:"contact_by_phone"`
	ContactBySMS   string `json:"contact_by_sms"`
	ContactByEmail string `json:"contact_by_email"`

	EcoEligible         bool   `json:"eco_eligible"`
	BaxterKellyEligible bool   `json:"baxter_kelly_eligible"`
	ProductID           string `json:"product_id,omitempty"`
	DesID               string `json:"des_id,omitempty"`

	EPC *epc.Record `json:"epc_data,omitempty"`

	Tracking Tracking `json:"tracking"`
}

// BuildPayload transforms accumulated form state plus campaign attribution
// into the ingestion payload. The single opt-out checkbox inverts into the
// three channel flags: all YES unless the user opted out.
func BuildPayload(form state.FormState, tracking Tracking) Payload {
	consent := consentYes
	if form.MarketingOptOut {
		consent = consentNo
	}

	return Payload{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Phone:     form.Phone,

		Postcode:     form.Postcode,
		AddressLine1: form.AddressLine1,
		AddressLine2: form.AddressLine2,
		Town:         form.Town,
		County:       form.County,
		UPRN:         form.UPRN,

		ContactByPhone: consent,
		ContactBySMS:   consent,
		ContactByEmail: consent,

		EcoEligible:         form.EcoEligible,
		BaxterKellyEligible: form.BaxterKellyEligible,
		ProductID:           form.ProductID,
		DesID:               form.DesID,

		EPC: form.EPC,

		Tracking: tracking,
	}
}
