// internal/funnel/epc/models.go
package epc

// Record holds the property and energy-performance data returned by the EPC
// lookup API. The whole record is optional enrichment: a nil *Record is a
// valid terminal state for any address.
type Record struct {
	EnergyRating EnergyRating     `json:"energyRating"`
	Property     Property         `json:"property"`
	Features     Features         `json:"features"`
	Costs        *Costs           `json:"costs,omitempty"`
	Elements     BuildingElements `json:"elements"`
	Certificate  Certificate      `json:"certificate"`
}

// EnergyRating holds the current and potential letter grades plus the
// numeric efficiency scores behind them.
type EnergyRating struct {
	Current             string `json:"current"`
	Potential           string `json:"potential"`
	CurrentEfficiency   int    `json:"currentEfficiency"`
	PotentialEfficiency int    `json:"potentialEfficiency"`
}

type Property struct {
	Type                string  `json:"type"`
	TotalFloorArea      float64 `json:"totalFloorArea"`
	ConstructionAgeBand string  `json:"constructionAgeBand"`
	Tenure              string  `json:"tenure"`
	HabitableRooms      int     `json:"habitableRooms"`
	HeatedRooms         int     `json:"heatedRooms"`
}

type Features struct {
	MainFuel string `json:"mainFuel"`
	MainsGas bool   `json:"mainsGas"`
}

// Costs holds the annual cost breakdown, current vs potential, in GBP.
type Costs struct {
	Heating  CostPair `json:"heating"`
	Lighting CostPair `json:"lighting"`
	HotWater CostPair `json:"hotWater"`
}

type CostPair struct {
	Current   float64 `json:"current"`
	Potential float64 `json:"potential"`
}

// TotalCurrent sums the current annual running costs.
func (c *Costs) TotalCurrent() float64 {
	if c == nil {
		return 0
	}
	return c.Heating.Current + c.Lighting.Current + c.HotWater.Current
}

// PotentialSavings is the gap between current and potential annual costs.
// A pair with no potential figure contributes its current cost unchanged,
// mirroring how the certificate presents partial data.
func (c *Costs) PotentialSavings() float64 {
	if c == nil {
		return 0
	}
	potential := orCurrent(c.Heating) + orCurrent(c.Lighting) + orCurrent(c.HotWater)
	return c.TotalCurrent() - potential
}

func orCurrent(p CostPair) float64 {
	if p.Potential > 0 {
		return p.Potential
	}
	return p.Current
}

// BuildingElements describes each assessed element of the building.
type BuildingElements struct {
	Walls    Element `json:"walls"`
	Roof     Element `json:"roof"`
	Floor    Element `json:"floor"`
	Windows  Element `json:"windows"`
	Heating  Element `json:"heating"`
	HotWater Element `json:"hotWater"`
}

type Element struct {
	Description string `json:"description"`
	Efficiency  string `json:"efficiency"`
}

type Certificate struct {
	InspectionDate string `json:"inspectionDate"`
	LodgementDate  string `json:"lodgementDate"`
	UPRN           string `json:"uprn"`
}

// Summary is the property overview shown on the EPC confirmation sub-screen.
type Summary struct {
	PropertyType   string  `json:"propertyType"`
	TotalFloorArea float64 `json:"totalFloorArea"`
	EnergyRating   string  `json:"energyRating"`
	MainFuel       string  `json:"mainFuel"`
	Tenure         string  `json:"tenure"`
}

// Summarize extracts the confirmation-screen summary from a record.
func (r *Record) Summarize() Summary {
	return Summary{
		PropertyType:   r.Property.Type,
		TotalFloorArea: r.Property.TotalFloorArea,
		EnergyRating:   r.EnergyRating.Current,
		MainFuel:       r.Features.MainFuel,
		Tenure:         r.Property.Tenure,
	}
}
