// internal/funnel/address/models.go
package address

import "strings"

// Candidate is one normalized address-lookup result. The upstream API keys
// results positionally (Column0..Column12); the adapter translates those
// into this structure so nothing else in the funnel sees the raw keys.
type Candidate struct {
	HouseName   string `json:"houseName"`
	HouseNumber string `json:"houseNumber"`
	FlatNumber  string `json:"flatNumber"`
	SubBuilding string `json:"subBuilding"`
	Street      string `json:"street"`
	Locality    string `json:"locality"`
	Town        string `json:"town"`
	County      string `json:"county"`
	Postcode    string `json:"postcode"`
	UPRN        string `json:"uprn"`
}

// FormatDisplay renders the candidate as the single display string shown in
// the address list: house name, house number, flat number, sub-building,
// street, locality, town, postcode, skipping empty fields.
func (c Candidate) FormatDisplay() string {
	parts := make([]string, 0, 8)
	for _, p := range []string{
		c.HouseName,
		c.HouseNumber,
		c.FlatNumber,
		c.SubBuilding,
		c.Street,
		c.Locality,
		c.Town,
		c.Postcode,
	} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Lines is the canonical address-line split consumed by the eligibility and
// EPC lookups. Line2 may be empty; downstream callers omit it when it is.
type Lines struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2,omitempty"`
}

// BuildLines constructs the line1/line2 split. The branch order is
// contractual: eligibility and EPC matching depend on exactly this split.
func BuildLines(flatNumber, houseName, houseNumber, street string) Lines {
	switch {
	case flatNumber != "" && houseName != "":
		l := Lines{Line1: flatNumber + " " + houseName}
		if houseNumber != "" {
			l.Line2 = houseNumber + " " + street
		} else {
			l.Line2 = street
		}
		return l

	case houseName != "" && houseNumber == "" && flatNumber == "":
		return Lines{Line1: houseName, Line2: street}

	case houseNumber != "" && houseName == "" && flatNumber == "":
		return Lines{Line1: houseNumber + " " + street}

	default:
		parts := make([]string, 0, 3)
		for _, p := range []string{flatNumber, houseName, houseNumber} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			return Lines{Line1: strings.Join(parts, " "), Line2: street}
		}
		return Lines{Line1: street}
	}
}

// BuildCandidateLines applies BuildLines to a candidate.
func BuildCandidateLines(c Candidate) Lines {
	return BuildLines(c.FlatNumber, c.HouseName, c.HouseNumber, c.Street)
}
