package types

import "time"

// NullFloat is a spreadsheet number that may be blank
type NullFloat struct {
	Float64 float64
	Valid   bool
}

func Float(v float64) NullFloat { return NullFloat{Float64: v, Valid: true} }

// DevelopmentRow is one long-format row: farmer x variable x visit
type DevelopmentRow struct {
	FarmerCode   string    `json:"farmer_code"`
	FullName     string    `json:"full_name"`
	Gender       string    `json:"gender"`
	Village      string    `json:"village,omitempty"`
	AreaHa       NullFloat `json:"-"`
	ProductionKg NullFloat `json:"-"`
	Visit        int       `json:"visit"` // 0 when blank
	Variable     string    `json:"variable"`
	Response     string    `json:"response,omitempty"`
	Result       string    `json:"result"`
	Competence   string    `json:"competence"`
}

// AdoptionFarmer is one wide-format row with a rating per practice
type AdoptionFarmer struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Gender    string            `json:"gender"`
	Region    string            `json:"region"`
	AreaHa    NullFloat         `json:"-"`
	Visit     int               `json:"visit,omitempty"`
	Practices map[string]string `json:"practices"` // practice column -> raw code
}

// PolygonRow is a farm boundary survey row (Kobo export)
type PolygonRow struct {
	PolygonID    string    `json:"polygon_id"`
	FarmerName   string    `json:"farmer_name"`
	GPSTrace     string    `json:"gps_trace"`
	ReportedArea NullFloat `json:"-"`
	Latitude     NullFloat `json:"-"`
	Longitude    NullFloat `json:"-"`
	Precision    NullFloat `json:"-"`
}

// IncomeRow feeds the living-income computation
type IncomeRow struct {
	FarmerID      string  `json:"farmer_id"`
	Cooperative   string  `json:"cooperative"`
	CocoaVolumeKg float64 `json:"cocoa_volume_kg"`
	HouseholdSize int     `json:"household_size"`
	// Cost per kg; zero means not surveyed
	LaborCostPerKg float64 `json:"labor_cost_per_kg,omitempty"`
	InputCostPerKg float64 `json:"input_cost_per_kg,omitempty"`
}

// QuotaTransaction is one warehouse delivery against a farmer quota
type QuotaTransaction struct {
	Date     time.Time `json:"date"`
	FarmerID string    `json:"farmer_id"`
	Name     string    `json:"name"`
	QuotaKg  float64   `json:"quota_kg"`
	NetKg    float64   `json:"net_kg"`
}
