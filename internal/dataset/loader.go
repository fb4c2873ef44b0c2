package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"cocoa-insights-go/internal/categorize"
	"cocoa-insights-go/internal/types"
)

// Development sheet headers
const (
	ColFarmerCode  = "Farmer: Farmer Code"
	ColFullName    = "Farmer: Full Name"
	ColGender      = "Farmer: Gender"
	ColVillage     = "Farmer: Village"
	ColFarmArea    = "Farm: Total Farm Area HA"
	ColProduction  = "Farm: Production - last baseline KG"
	ColVisitNumber = "Visit Number"
	ColVariable    = "Variable"
	ColResponse    = "Response"
	ColResult      = "Result"
	ColCompetence  = "Competence"
)

var developmentColumns = []Column{
	{Name: ColFarmerCode, Keywords: []string{"farmer", "code"}},
	{Name: ColFullName, Keywords: []string{"full name"}},
	{Name: ColGender, Keywords: []string{"gender"}},
	{Name: ColVillage, Keywords: []string{"village"}},
	{Name: ColFarmArea, Keywords: []string{"farm area"}},
	{Name: ColProduction, Keywords: []string{"production"}},
	{Name: ColVisitNumber, Keywords: []string{"visit"}},
	{Name: ColVariable, Aliases: []string{"Practice"}},
	{Name: ColResponse},
	{Name: ColResult},
	{Name: ColCompetence},
}

// LoadDevelopment maps the long-format farmer development sheet.
// Farmer code and variable are required; every other missing column is
// returned so the caller can skip what depends on it.
func LoadDevelopment(t *Table) ([]types.DevelopmentRow, []string, error) {
	idx, missing := t.Resolve(developmentColumns...)
	if idx[ColFarmerCode] < 0 || idx[ColVariable] < 0 {
		return nil, missing, fmt.Errorf("development sheet: %w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	out := make([]types.DevelopmentRow, 0, len(t.Rows))
	for i := range t.Rows {
		code := t.Cell(i, idx[ColFarmerCode])
		if code == "" {
			continue
		}
		r := types.DevelopmentRow{
			FarmerCode: code,
			FullName:   t.Cell(i, idx[ColFullName]),
			Gender:     categorize.NormalizeGender(t.Cell(i, idx[ColGender])),
			Village:    t.Cell(i, idx[ColVillage]),
			Variable:   t.Cell(i, idx[ColVariable]),
			Response:   t.Cell(i, idx[ColResponse]),
			Result:     t.Cell(i, idx[ColResult]),
			Competence: t.Cell(i, idx[ColCompetence]),
		}
		if v, ok := t.Float(i, idx[ColFarmArea]); ok {
			r.AreaHa = types.Float(v)
		}
		if v, ok := t.Float(i, idx[ColProduction]); ok {
			r.ProductionKg = types.Float(v)
		}
		r.Visit, _ = t.Int(i, idx[ColVisitNumber])
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, missing, ErrNoDataRows
	}
	return out, missing, nil
}

// Identity columns of the adoption sheet, located by keyword
var (
	adoptionID     = Column{Name: "Farmer ID", Aliases: []string{"ID", "Codigo", "Farmer Code"}, Keywords: []string{"farmer", "id"}}
	adoptionName   = Column{Name: "Farmer Name", Aliases: []string{"Name", "Nombre"}, Keywords: []string{"name"}}
	adoptionGender = Column{Name: "Gender", Aliases: []string{"Genero", "Género", "Sexo"}, Keywords: []string{"gender"}}
	adoptionRegion = Column{Name: "Region", Aliases: []string{"Región", "Provincia", "Province", "Canton", "Zona"}, Keywords: []string{"region"}}
	adoptionArea   = Column{Name: "Farm Area (ha)", Aliases: []string{"Area", "Hectareas", "Superficie"}, Keywords: []string{"area"}}
	adoptionVisit  = Column{Name: "Visit", Aliases: []string{"Visita"}, Keywords: []string{"visit"}}
)

// LoadAdoption maps the wide adoption sheet. Practice columns are the
// non-identity columns whose filled cells all read as G/M/B ratings.
func LoadAdoption(t *Table) ([]types.AdoptionFarmer, []string, []string, error) {
	idx, missing := t.Resolve(adoptionID, adoptionName, adoptionGender, adoptionRegion, adoptionArea, adoptionVisit)
	identity := map[int]bool{}
	for _, i := range idx {
		if i >= 0 {
			identity[i] = true
		}
	}
	practices, cols := PracticeColumns(t, identity)
	if len(practices) == 0 {
		return nil, nil, missing, fmt.Errorf("adoption sheet: %w: no G/M/B practice columns", ErrMissingColumn)
	}
	out := make([]types.AdoptionFarmer, 0, len(t.Rows))
	for i := range t.Rows {
		f := types.AdoptionFarmer{
			ID:        t.Cell(i, idx[adoptionID.Name]),
			Name:      t.Cell(i, idx[adoptionName.Name]),
			Gender:    categorize.NormalizeGender(t.Cell(i, idx[adoptionGender.Name])),
			Region:    t.Cell(i, idx[adoptionRegion.Name]),
			Practices: make(map[string]string, len(practices)),
		}
		if f.ID == "" {
			f.ID = strconv.Itoa(i + 1)
		}
		if f.Region == "" {
			f.Region = "Unknown"
		}
		if v, ok := t.Float(i, idx[adoptionArea.Name]); ok {
			f.AreaHa = types.Float(v)
		}
		f.Visit, _ = t.Int(i, idx[adoptionVisit.Name])
		for k, p := range practices {
			f.Practices[p] = t.Cell(i, cols[k])
		}
		out = append(out, f)
	}
	return out, practices, missing, nil
}

// PracticeColumns returns headers (and their indices) whose filled cells all
// parse as ratings with at least one letter code, so plain 0/1/2 counters are
// not mistaken for practices.
func PracticeColumns(t *Table, skip map[int]bool) ([]string, []int) {
	var names []string
	var cols []int
	for j, h := range t.Headers {
		if skip[j] || h == "" {
			continue
		}
		filled, letter, all := 0, false, true
		for i := range t.Rows {
			c := t.Cell(i, j)
			if c == "" {
				continue
			}
			filled++
			if _, ok := categorize.ParseLevel(c); !ok {
				all = false
				break
			}
			if _, numeric := ParseFloat(c); !numeric {
				letter = true
			}
		}
		if all && letter && filled > 0 {
			names = append(names, h)
			cols = append(cols, j)
		}
	}
	return names, cols
}

// Kobo polygon survey headers
const (
	ColFarmerName   = "ID Petani"
	ColPolygonID    = "ID Kebun"
	ColGPSTrace     = "Polygon Area"
	ColReportedArea = "Luas Lahan Kebun Kakao"
	ColLatitude     = "_Lokasi Kebun_latitude"
	ColLongitude    = "_Lokasi Kebun_longitude"
	ColPrecision    = "_Lokasi Kebun_precision"
)

var polygonColumns = []Column{
	{Name: ColFarmerName},
	{Name: ColPolygonID},
	{Name: ColGPSTrace, Keywords: []string{"polygon"}},
	{Name: ColReportedArea, Keywords: []string{"luas"}},
	{Name: ColLatitude, Keywords: []string{"latitude"}},
	{Name: ColLongitude, Keywords: []string{"longitude"}},
	{Name: ColPrecision, Keywords: []string{"precision"}},
}

// LoadPolygons keeps rows with a GPS trace. The trace column is required.
func LoadPolygons(t *Table) ([]types.PolygonRow, []string, error) {
	idx, missing := t.Resolve(polygonColumns...)
	if idx[ColGPSTrace] < 0 {
		return nil, missing, fmt.Errorf("polygon sheet: %w: %s", ErrMissingColumn, ColGPSTrace)
	}
	var out []types.PolygonRow
	for i := range t.Rows {
		trace := t.Cell(i, idx[ColGPSTrace])
		if trace == "" {
			continue
		}
		p := types.PolygonRow{
			PolygonID:  t.Cell(i, idx[ColPolygonID]),
			FarmerName: t.Cell(i, idx[ColFarmerName]),
			GPSTrace:   trace,
		}
		if p.PolygonID == "" {
			p.PolygonID = fmt.Sprintf("row-%d", i+2)
		}
		if v, ok := t.Float(i, idx[ColReportedArea]); ok {
			p.ReportedArea = types.Float(v)
		}
		if v, ok := t.Float(i, idx[ColLatitude]); ok {
			p.Latitude = types.Float(v)
		}
		if v, ok := t.Float(i, idx[ColLongitude]); ok {
			p.Longitude = types.Float(v)
		}
		if v, ok := t.Float(i, idx[ColPrecision]); ok {
			p.Precision = types.Float(v)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, missing, ErrNoDataRows
	}
	return out, missing, nil
}

var incomeColumns = []Column{
	{Name: "farmer_id", Aliases: []string{"Farmer ID"}, Keywords: []string{"farmer"}},
	{Name: "cooperative", Aliases: []string{"Cooperative", "Coop"}, Keywords: []string{"coop"}},
	{Name: "cocoa_volume_kg", Aliases: []string{"Cocoa Volume (kg)"}, Keywords: []string{"volume"}},
	{Name: "household_size", Aliases: []string{"Household Size"}, Keywords: []string{"household"}},
	{Name: "labor_cost_per_kg", Keywords: []string{"labo"}},
	{Name: "input_cost_per_kg", Keywords: []string{"input"}},
}

// LoadIncome maps a farmer income sheet. Rows without a volume are skipped.
func LoadIncome(t *Table) ([]types.IncomeRow, []string, error) {
	idx, missing := t.Resolve(incomeColumns...)
	if idx["cocoa_volume_kg"] < 0 {
		return nil, missing, fmt.Errorf("income sheet: %w: cocoa_volume_kg", ErrMissingColumn)
	}
	var out []types.IncomeRow
	for i := range t.Rows {
		vol, ok := t.Float(i, idx["cocoa_volume_kg"])
		if !ok || vol < 0 {
			continue
		}
		r := types.IncomeRow{
			FarmerID:      t.Cell(i, idx["farmer_id"]),
			Cooperative:   t.Cell(i, idx["cooperative"]),
			CocoaVolumeKg: vol,
		}
		if r.FarmerID == "" {
			r.FarmerID = fmt.Sprintf("F%03d", i+1)
		}
		if r.Cooperative == "" {
			r.Cooperative = "Unknown"
		}
		r.HouseholdSize, _ = t.Int(i, idx["household_size"])
		r.LaborCostPerKg, _ = t.Float(i, idx["labor_cost_per_kg"])
		r.InputCostPerKg, _ = t.Float(i, idx["input_cost_per_kg"])
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, missing, ErrNoDataRows
	}
	return out, missing, nil
}

// Warehouse quota sheet headers
const (
	ColQuotaDate  = "Tanggal Transaksi"
	ColQuotaID    = "ID"
	ColQuotaName  = "Nama Propper"
	ColQuotaNet   = "Netto Gudang (Kg)"
	ColQuotaLimit = "Kouta"
)

// LoadQuota requires all five quota columns. Rows missing id, name, net or
// quota are dropped; an unreadable date is kept as the zero time. Output is
// sorted by farmer id then date, undated rows last.
func LoadQuota(t *Table) ([]types.QuotaTransaction, int, error) {
	if miss := t.MissingColumns(ColQuotaID, ColQuotaName, ColQuotaDate, ColQuotaNet, ColQuotaLimit); len(miss) > 0 {
		return nil, 0, fmt.Errorf("quota sheet: %w: %s", ErrMissingColumn, strings.Join(miss, ", "))
	}
	var (
		id    = t.Column(ColQuotaID)
		name  = t.Column(ColQuotaName)
		date  = t.Column(ColQuotaDate)
		net   = t.Column(ColQuotaNet)
		quota = t.Column(ColQuotaLimit)
	)
	var out []types.QuotaTransaction
	dropped := 0
	for i := range t.Rows {
		n, okN := t.Float(i, net)
		q, okQ := t.Float(i, quota)
		tx := types.QuotaTransaction{
			FarmerID: t.Cell(i, id),
			Name:     t.Cell(i, name),
			NetKg:    n,
			QuotaKg:  q,
		}
		if tx.FarmerID == "" || tx.Name == "" || !okN || !okQ {
			dropped++
			continue
		}
		tx.Date, _ = ParseDate(t.Cell(i, date))
		out = append(out, tx)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].FarmerID != out[b].FarmerID {
			return out[a].FarmerID < out[b].FarmerID
		}
		da, db := out[a].Date, out[b].Date
		if da.IsZero() || db.IsZero() {
			return !da.IsZero() && db.IsZero()
		}
		return da.Before(db)
	})
	return out, dropped, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"01-02-06",
	"1/2/06",
	"02 Jan 2006",
	"2 January 2006",
}

// ParseDate reads the date spellings produced by spreadsheet exports,
// including raw Excel serial numbers.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if d, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
