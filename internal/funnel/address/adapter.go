// internal/funnel/address/adapter.go
package address

// rawAddress mirrors one element of the upstream addresses array. The
// provider keys fields positionally and is inconsistent about whitespace in
// the key names ("Column 0" vs "Column1"), so the JSON tags below must be
// preserved exactly as observed.
type rawAddress struct {
	Postcode    string `json:"Column 0"`
	Town        string `json:"Column1"`
	Locality    string `json:"Column 2"`
	County      string `json:"Column2"`
	Street      string `json:"Column4"`
	SubBuilding string `json:"Column 5"`
	HouseNumber string `json:"Column6"`
	HouseName   string `json:"Column7"`
	FlatNumber  string `json:"Column8"`
	UPRN        string `json:"Column 12"`
}

type lookupResponse struct {
	Success   bool         `json:"success"`
	Addresses []rawAddress `json:"addresses"`
}

func adaptCandidate(r rawAddress) Candidate {
	return Candidate{
		HouseName:   r.HouseName,
		HouseNumber: r.HouseNumber,
		FlatNumber:  r.FlatNumber,
		SubBuilding: r.SubBuilding,
		Street:      r.Street,
		Locality:    r.Locality,
		Town:        r.Town,
		County:      r.County,
		Postcode:    r.Postcode,
		UPRN:        r.UPRN,
	}
}

func adaptCandidates(raws []rawAddress) []Candidate {
	out := make([]Candidate, 0, len(raws))
	for _, r := range raws {
		out = append(out, adaptCandidate(r))
	}
	return out
}
