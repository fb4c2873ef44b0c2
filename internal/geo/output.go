package geo

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/twpayne/go-geom/encoding/geojson"

	"cocoa-insights-go/internal/aggregator"
	"cocoa-insights-go/internal/report"
)

// FarmSummary is one row of the Farm Summary sheet
type FarmSummary struct {
	FarmerName    string  `csv:"Farmer Name"`
	PolygonID     string  `csv:"Polygon ID"`
	AreaHa        float64 `csv:"Area (ha)"`
	OverlapStatus string  `csv:"Overlap Status"`
	ForestStatus  string  `csv:"Forest Status"`
}

// CleanedFarm is one row of the cleaned farm export
type CleanedFarm struct {
	FarmerName    string  `csv:"Farmer Name"`
	PolygonID     string  `csv:"Polygon ID"`
	AreaHa        float64 `csv:"Area (ha)"`
	ReportedArea  string  `csv:"Reported Area (ha)"`
	Precision     string  `csv:"Precision (m)"`
	OverlapStatus string  `csv:"Overlap Status"`
	ForestStatus  string  `csv:"Forest Status"`
	ForestPct     float64 `csv:"Forest Overlap %"`
	GPSTrace      string  `csv:"Polygon Area"`
}

// Metric is one row of the Summary Statistics sheet
type Metric struct {
	Name  string `csv:"Metric"`
	Value string `csv:"Value"`
}

// Stats compares the original and cleaned farm sets
type Stats struct {
	TotalOriginal    int
	TotalCleaned     int
	AreaOriginal     float64
	AreaCleaned      float64
	FarmsWithOverlap int
	OverlapCases     int
	Removed          int
	ForestOriginal   int
	ForestCleaned    int
	AvgFarmSize      float64
}

// Summarize computes the comparison statistics
func Summarize(original, cleaned []*Farm, overlaps []Overlap) Stats {
	s := Stats{
		TotalOriginal:  len(original),
		TotalCleaned:   len(cleaned),
		OverlapCases:   len(overlaps),
		Removed:        len(original) - len(cleaned),
		ForestOriginal: CountInForest(original),
		ForestCleaned:  CountInForest(cleaned),
	}
	for _, f := range original {
		s.AreaOriginal += f.AreaHa
		if f.HasOverlap {
			s.FarmsWithOverlap++
		}
	}
	for _, f := range cleaned {
		s.AreaCleaned += f.AreaHa
	}
	if len(original) > 0 {
		s.AvgFarmSize = s.AreaOriginal / float64(len(original))
	}
	return s
}

// Metrics renders the statistics in sheet order
func (s Stats) Metrics() []Metric {
	itoa := strconv.Itoa
	f2 := func(v float64) string { return strconv.FormatFloat(aggregator.Round2(v), 'f', 2, 64) }
	return []Metric{
		{"Total Farms (Original)", itoa(s.TotalOriginal)},
		{"Total Farms (Cleaned)", itoa(s.TotalCleaned)},
		{"Total Area Original (ha)", f2(s.AreaOriginal)},
		{"Total Area Cleaned (ha)", f2(s.AreaCleaned)},
		{"Farms with Overlaps", itoa(s.FarmsWithOverlap)},
		{"Overlap Cases", itoa(s.OverlapCases)},
		{"Farms Removed", itoa(s.Removed)},
		{"Farms in Forest (Original)", itoa(s.ForestOriginal)},
		{"Farms in Forest (Cleaned)", itoa(s.ForestCleaned)},
		{"Average Farm Size (ha)", f2(s.AvgFarmSize)},
	}
}

func summaries(farms []*Farm) []FarmSummary {
	out := make([]FarmSummary, len(farms))
	for i, f := range farms {
		out[i] = FarmSummary{
			FarmerName:    f.FarmerName,
			PolygonID:     f.PolygonID,
			AreaHa:        aggregator.Round2(f.AreaHa),
			OverlapStatus: f.OverlapNotes,
			ForestStatus:  f.ForestNotes,
		}
	}
	return out
}

// WriteAnalysis saves the three-sheet analysis workbook
func WriteAnalysis(path string, farms []*Farm, overlaps []Overlap, stats Stats) error {
	wb := report.NewWorkbook()
	if err := wb.AddStructs("Farm Summary", summaries(farms)); err != nil {
		return err
	}
	detail := make([]Overlap, len(overlaps))
	for i, o := range overlaps {
		o.Area1Ha = aggregator.Round2(o.Area1Ha)
		o.Area2Ha = aggregator.Round2(o.Area2Ha)
		o.OverlapHa = aggregator.Round2(o.OverlapHa)
		o.OverlapPct = aggregator.Round2(o.OverlapPct)
		detail[i] = o
	}
	if err := wb.AddStructs("Overlaps Detail", detail); err != nil {
		return err
	}
	if err := wb.AddStructs("Summary Statistics", stats.Metrics()); err != nil {
		return err
	}
	return wb.Save(path)
}

func optional(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCleaned saves the farms kept after overlap treatment
func WriteCleaned(path string, farms []*Farm) error {
	rows := make([]CleanedFarm, len(farms))
	for i, f := range farms {
		rows[i] = CleanedFarm{
			FarmerName:    f.FarmerName,
			PolygonID:     f.PolygonID,
			AreaHa:        aggregator.Round2(f.AreaHa),
			ReportedArea:  optional(f.ReportedArea.Float64, f.ReportedArea.Valid),
			Precision:     optional(f.Precision.Float64, f.Precision.Valid),
			OverlapStatus: f.OverlapNotes,
			ForestStatus:  f.ForestNotes,
			ForestPct:     aggregator.Round2(f.ForestPct),
			GPSTrace:      f.GPSTrace,
		}
	}
	wb := report.NewWorkbook()
	if err := wb.AddStructs("Cleaned Farms", rows); err != nil {
		return err
	}
	return wb.Save(path)
}

// FeatureCollection converts farms to GeoJSON features in lon/lat
func FeatureCollection(farms []*Farm) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(farms))}
	for _, f := range farms {
		props := map[string]interface{}{
			"farmer_name":    f.FarmerName,
			"polygon_id":     f.PolygonID,
			"area_ha":        aggregator.Round2(f.AreaHa),
			"overlap_status": f.OverlapNotes,
			"forest_status":  f.ForestNotes,
			"in_forest":      f.InForest,
		}
		if f.Precision.Valid {
			props["precision_m"] = f.Precision.Float64
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         f.PolygonID,
			Geometry:   f.Geometry,
			Properties: props,
		})
	}
	return fc
}

// WriteGeoJSON saves farms as a GeoJSON FeatureCollection
func WriteGeoJSON(path string, farms []*Farm) error {
	b, err := json.MarshalIndent(FeatureCollection(farms), "", "  ")
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	return report.WriteText(path, string(b))
}
