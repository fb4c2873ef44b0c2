// Package development analyses the long-format farmer development plan
// survey: baseline adoption and competence, visit-to-visit progress,
// production and data quality.
package development

import (
	"math"
	"sort"

	"cocoa-insights-go/internal/aggregator"
	"cocoa-insights-go/internal/categorize"
	"cocoa-insights-go/internal/types"
)

// Record is a survey row with its ratings mapped
type Record struct {
	types.DevelopmentRow
	ResponseLevel   categorize.Level
	ResponseOK      bool
	ResultLevel     categorize.Level
	ResultOK        bool
	CompetenceLevel categorize.Level
	CompetenceOK    bool
	LandSize        string
}

// CleanRow is the cleaned export of a Record
type CleanRow struct {
	FarmerCode      string  `csv:"Farmer: Farmer Code"`
	FullName        string  `csv:"Farmer: Full Name"`
	Gender          string  `csv:"Gender_Clean"`
	Village         string  `csv:"Farmer: Village"`
	AreaHa          float64 `csv:"Farm: Total Farm Area HA"`
	ProductionKg    float64 `csv:"Farm: Production - last baseline KG"`
	LandCategory    string  `csv:"Land_Category"`
	Visit           int     `csv:"Visit Number"`
	Variable        string  `csv:"Variable"`
	Response        string  `csv:"Response_Clean"`
	Result          string  `csv:"Result_Clean"`
	Competence      string  `csv:"Competence_Clean"`
	ResultScore     float64 `csv:"Result_Numeric"`
	CompetenceScore float64 `csv:"Competence_Numeric"`
}

func nullable(v types.NullFloat) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func levelName(l categorize.Level, ok bool) string {
	if !ok {
		return ""
	}
	return l.String()
}

func levelScore(l categorize.Level, ok bool) float64 {
	if !ok {
		return math.NaN()
	}
	return float64(l.Score())
}

// Clean maps ratings and land size and drops exact duplicate rows
func Clean(rows []types.DevelopmentRow) ([]Record, int) {
	seen := make(map[types.DevelopmentRow]bool, len(rows))
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		if seen[r] {
			continue
		}
		seen[r] = true
		rec := Record{DevelopmentRow: r, LandSize: categorize.LandBucket(r.AreaHa.Float64, r.AreaHa.Valid)}
		rec.ResponseLevel, rec.ResponseOK = categorize.ParseLevel(r.Response)
		rec.ResultLevel, rec.ResultOK = categorize.ParseLevel(r.Result)
		rec.CompetenceLevel, rec.CompetenceOK = categorize.ParseLevel(r.Competence)
		out = append(out, rec)
	}
	return out, len(rows) - len(out)
}

// CleanRows renders records for the cleaned CSV
func CleanRows(recs []Record) []CleanRow {
	out := make([]CleanRow, len(recs))
	for i, r := range recs {
		out[i] = CleanRow{
			FarmerCode:      r.FarmerCode,
			FullName:        r.FullName,
			Gender:          r.Gender,
			Village:         r.Village,
			AreaHa:          nullable(r.AreaHa),
			ProductionKg:    nullable(r.ProductionKg),
			LandCategory:    r.LandSize,
			Visit:           r.Visit,
			Variable:        r.Variable,
			Response:        levelName(r.ResponseLevel, r.ResponseOK),
			Result:          levelName(r.ResultLevel, r.ResultOK),
			Competence:      levelName(r.CompetenceLevel, r.CompetenceOK),
			ResultScore:     levelScore(r.ResultLevel, r.ResultOK),
			CompetenceScore: levelScore(r.CompetenceLevel, r.CompetenceOK),
		}
	}
	return out
}

// BaselineRow is one level of one rated measure
type BaselineRow struct {
	Measure string  `csv:"Measure"`
	Level   string  `csv:"Level"`
	Count   int     `csv:"Count"`
	Percent float64 `csv:"Percentage"`
}

// Baseline is the G/M/B split of Response, Result and Competence across
// all rated rows
func Baseline(recs []Record) []BaselineRow {
	measures := []struct {
		name string
		get  func(Record) (categorize.Level, bool)
	}{
		{"Response", func(r Record) (categorize.Level, bool) { return r.ResponseLevel, r.ResponseOK }},
		{"Result", func(r Record) (categorize.Level, bool) { return r.ResultLevel, r.ResultOK }},
		{"Competence", func(r Record) (categorize.Level, bool) { return r.CompetenceLevel, r.CompetenceOK }},
	}
	var out []BaselineRow
	for _, m := range measures {
		var labels []string
		for _, r := range recs {
			if l, ok := m.get(r); ok {
				labels = append(labels, l.String())
			}
		}
		if len(labels) == 0 {
			continue
		}
		for _, sh := range aggregator.Distribution(labels, categorize.LevelNames()) {
			out = append(out, BaselineRow{Measure: m.name, Level: sh.Label, Count: sh.Count, Percent: aggregator.Round2(sh.Percent)})
		}
	}
	return out
}

// FarmerLevel is the per-farmer adoption and competence summary
type FarmerLevel struct {
	FarmerCode        string  `csv:"Farmer_Code"`
	FullName          string  `csv:"Full_Name"`
	Gender            string  `csv:"Gender"`
	AreaHa            float64 `csv:"Land_Size"`
	LandSize          string  `csv:"Land_Category"`
	ProductionKg      float64 `csv:"Production_KG"`
	Variables         int     `csv:"Variable_Count"`
	Visits            int     `csv:"Visit_Count"`
	AdoptionScore     float64 `csv:"Adoption_Score"`
	CompetenceScore   float64 `csv:"Competence_Score"`
	AdoptionPct       float64 `csv:"Adoption_Percentage"`
	CompetencePct     float64 `csv:"Competence_Percentage"`
	OverallAdoption   string  `csv:"Overall_Adoption"`
	OverallCompetence string  `csv:"Overall_Competence"`
}

// FarmerLevels averages the Result and Competence scores of every farmer
// across all of their rows, in order of first appearance. Profile fields
// take the first non-blank value.
func FarmerLevels(recs []Record) []FarmerLevel {
	type acc struct {
		lvl                 FarmerLevel
		res, comp           []float64
		vars                map[string]bool
		visits              map[int]bool
		areaSet, productSet bool
	}
	byCode := map[string]*acc{}
	var order []string
	for _, r := range recs {
		a, ok := byCode[r.FarmerCode]
		if !ok {
			a = &acc{
				lvl:    FarmerLevel{FarmerCode: r.FarmerCode, AreaHa: math.NaN(), ProductionKg: math.NaN()},
				vars:   map[string]bool{},
				visits: map[int]bool{},
			}
			byCode[r.FarmerCode] = a
			order = append(order, r.FarmerCode)
		}
		if a.lvl.FullName == "" {
			a.lvl.FullName = r.FullName
		}
		if a.lvl.Gender == "" || a.lvl.Gender == categorize.UnknownGender {
			a.lvl.Gender = r.Gender
		}
		if !a.areaSet && r.AreaHa.Valid {
			a.lvl.AreaHa, a.areaSet = r.AreaHa.Float64, true
		}
		if !a.productSet && r.ProductionKg.Valid {
			a.lvl.ProductionKg, a.productSet = r.ProductionKg.Float64, true
		}
		a.vars[r.Variable] = true
		if r.Visit > 0 {
			a.visits[r.Visit] = true
		}
		if r.ResultOK {
			a.res = append(a.res, float64(r.ResultLevel.Score()))
		}
		if r.CompetenceOK {
			a.comp = append(a.comp, float64(r.CompetenceLevel.Score()))
		}
	}

	out := make([]FarmerLevel, 0, len(order))
	for _, code := range order {
		a := byCode[code]
		l := a.lvl
		l.LandSize = categorize.LandBucket(l.AreaHa, a.areaSet)
		l.Variables = len(a.vars)
		l.Visits = len(a.visits)
		l.AdoptionScore = mean(a.res)
		l.CompetenceScore = mean(a.comp)
		l.AdoptionPct = aggregator.Round2(l.AdoptionScore / 2 * 100)
		l.CompetencePct = aggregator.Round2(l.CompetenceScore / 2 * 100)
		l.OverallAdoption = categorize.OverallLevel(l.AdoptionPct).String()
		l.OverallCompetence = categorize.OverallLevel(l.CompetencePct).String()
		out = append(out, l)
	}
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}

// OverallShares is the farmer distribution of overall adoption and
// competence levels
func OverallShares(levels []FarmerLevel) (adoption, competence []aggregator.Share) {
	a := make([]string, len(levels))
	c := make([]string, len(levels))
	for i, l := range levels {
		a[i], c[i] = l.OverallAdoption, l.OverallCompetence
	}
	return aggregator.Distribution(a, categorize.LevelNames()), aggregator.Distribution(c, categorize.LevelNames())
}

// AdoptionByCompetence crosses overall adoption (rows) with overall
// competence (columns)
func AdoptionByCompetence(levels []FarmerLevel) aggregator.Table {
	a := make([]string, len(levels))
	c := make([]string, len(levels))
	for i, l := range levels {
		a[i], c[i] = l.OverallAdoption, l.OverallCompetence
	}
	return aggregator.Crosstab(a, c, categorize.LevelNames(), categorize.LevelNames())
}

// PracticeScore is the mean performance of one variable
type PracticeScore struct {
	Variable      string  `csv:"Variable"`
	Count         int     `csv:"Count"`
	ResultAvg     float64 `csv:"Result_Avg"`
	CompetenceAvg float64 `csv:"Competence_Avg"`
	Level         string  `csv:"Level"`
}

// PracticePerformance averages Result and Competence per variable, best
// Result first
func PracticePerformance(recs []Record) []PracticeScore {
	res := map[string][]float64{}
	comp := map[string][]float64{}
	var order []string
	for _, r := range recs {
		if _, ok := res[r.Variable]; !ok {
			res[r.Variable] = nil
			order = append(order, r.Variable)
		}
		if r.ResultOK {
			res[r.Variable] = append(res[r.Variable], float64(r.ResultLevel.Score()))
		}
		if r.CompetenceOK {
			comp[r.Variable] = append(comp[r.Variable], float64(r.CompetenceLevel.Score()))
		}
	}
	var out []PracticeScore
	for _, v := range order {
		if len(res[v]) == 0 {
			continue
		}
		ps := PracticeScore{
			Variable:      v,
			Count:         len(res[v]),
			ResultAvg:     math.Round(mean(res[v])*1000) / 1000,
			CompetenceAvg: math.Round(mean(comp[v])*1000) / 1000,
		}
		ps.Level = categorize.OverallLevel(ps.ResultAvg / 2 * 100).String()
		out = append(out, ps)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ResultAvg > out[j].ResultAvg })
	return out
}

// ProductionGroup is baseline production of one segment plus yield
type ProductionGroup struct {
	Segment    string  `csv:"Segment"`
	Farmers    int     `csv:"Farmers"`
	Mean       float64 `csv:"Mean_KG"`
	Median     float64 `csv:"Median_KG"`
	Std        float64 `csv:"Std_KG"`
	Min        float64 `csv:"Min_KG"`
	Max        float64 `csv:"Max_KG"`
	Total      float64 `csv:"Total_KG"`
	YieldPerHa float64 `csv:"Yield_KG_per_HA"`
}

// Production groups farmer baseline production by gender and by land size
func Production(levels []FarmerLevel) (byGender, byLand []ProductionGroup) {
	genders := make([]string, len(levels))
	lands := make([]string, len(levels))
	prod := make([]float64, len(levels))
	for i, l := range levels {
		genders[i], lands[i], prod[i] = l.Gender, l.LandSize, l.ProductionKg
	}
	build := func(keys []string, order []string) []ProductionGroup {
		var out []ProductionGroup
		for _, g := range aggregator.GroupStats(keys, prod, order) {
			pg := ProductionGroup{
				Segment: g.Key,
				Farmers: g.Count,
				Mean:    aggregator.Round2(g.Mean),
				Median:  aggregator.Round2(g.Median),
				Std:     aggregator.Round2(g.Std),
				Min:     g.Min,
				Max:     g.Max,
				Total:   g.Sum,
			}
			kg, ha := 0.0, 0.0
			for i, k := range keys {
				if k == g.Key && !math.IsNaN(prod[i]) && !math.IsNaN(levels[i].AreaHa) && levels[i].AreaHa > 0 {
					kg += prod[i]
					ha += levels[i].AreaHa
				}
			}
			if ha > 0 {
				pg.YieldPerHa = aggregator.Round2(kg / ha)
			}
			out = append(out, pg)
		}
		return out
	}
	return build(genders, []string{categorize.Male, categorize.Female}), build(lands, categorize.LandBuckets)
}
