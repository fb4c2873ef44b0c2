package development

import (
	"math"
	"strconv"

	"cocoa-insights-go/internal/aggregator"
	"cocoa-insights-go/internal/categorize"
)

// ProgressRecord compares one farmer+variable between visit 1 and visit 2.
// Competence fields are blank when either visit has no competence rating.
type ProgressRecord struct {
	FarmerCode       string `csv:"Farmer_Code"`
	FullName         string `csv:"Full_Name"`
	Gender           string `csv:"Gender"`
	Variable         string `csv:"Variable"`
	Visit1Result     string `csv:"Visit1_Result"`
	Visit2Result     string `csv:"Visit2_Result"`
	ResultChange     int    `csv:"Result_Change"`
	ResultStatus     string `csv:"Result_Status"`
	Visit1Competence string `csv:"Visit1_Competence"`
	Visit2Competence string `csv:"Visit2_Competence"`
	CompetenceChange string `csv:"Competence_Change"`
	CompetenceStatus string `csv:"Competence_Status"`
}

type visitKey struct {
	code, variable string
}

// Progress pairs visit-1 and visit-2 rows by farmer and variable. The
// first rated row of each visit wins; pairs without a Result rating on
// both visits are left out.
func Progress(recs []Record) []ProgressRecord {
	first := map[visitKey]Record{}
	second := map[visitKey]Record{}
	var order []visitKey
	for _, r := range recs {
		if !r.ResultOK {
			continue
		}
		k := visitKey{r.FarmerCode, r.Variable}
		switch r.Visit {
		case 1:
			if _, ok := first[k]; !ok {
				first[k] = r
				order = append(order, k)
			}
		case 2:
			if _, ok := second[k]; !ok {
				second[k] = r
			}
		}
	}

	var out []ProgressRecord
	for _, k := range order {
		v1 := first[k]
		v2, ok := second[k]
		if !ok {
			continue
		}
		delta := v2.ResultLevel.Score() - v1.ResultLevel.Score()
		p := ProgressRecord{
			FarmerCode:   k.code,
			FullName:     v1.FullName,
			Gender:       v1.Gender,
			Variable:     k.variable,
			Visit1Result: v1.ResultLevel.String(),
			Visit2Result: v2.ResultLevel.String(),
			ResultChange: delta,
			ResultStatus: categorize.ClassifyProgress(delta),
		}
		if v1.CompetenceOK && v2.CompetenceOK {
			cd := v2.CompetenceLevel.Score() - v1.CompetenceLevel.Score()
			p.Visit1Competence = v1.CompetenceLevel.String()
			p.Visit2Competence = v2.CompetenceLevel.String()
			p.CompetenceChange = signed(cd)
			p.CompetenceStatus = categorize.ClassifyProgress(cd)
		}
		out = append(out, p)
	}
	return out
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// ProgressShare is one status line of the progress summary
type ProgressShare struct {
	Measure string  `csv:"Measure"`
	Status  string  `csv:"Status"`
	Count   int     `csv:"Count"`
	Percent float64 `csv:"Percentage"`
}

// SummarizeProgress counts statuses of Result and, where tracked,
// Competence
func SummarizeProgress(prog []ProgressRecord) []ProgressShare {
	var res, comp []string
	for _, p := range prog {
		res = append(res, p.ResultStatus)
		if p.CompetenceStatus != "" {
			comp = append(comp, p.CompetenceStatus)
		}
	}
	var out []ProgressShare
	add := func(measure string, labels []string) {
		for _, sh := range aggregator.Distribution(labels, categorize.ProgressStatuses) {
			out = append(out, ProgressShare{Measure: measure, Status: sh.Label, Count: sh.Count, Percent: aggregator.Round2(sh.Percent)})
		}
	}
	add("Result", res)
	add("Competence", comp)
	return out
}

// StatusPct is the share of one status for a measure, 0 when absent
func StatusPct(shares []ProgressShare, measure, status string) float64 {
	for _, s := range shares {
		if s.Measure == measure && s.Status == status {
			return s.Percent
		}
	}
	return 0
}

// Quality holds the data-quality metrics of a development run
type Quality struct {
	Rows              int
	Farmers           int
	Variables         int
	Visits            int
	MissingProduction float64 // % of farmers
	MissingGender     float64 // % of farmers
	MissingArea       float64 // % of farmers
	MissingResult     float64 // % of rows
	MissingCompetence float64 // % of rows
	SingleVisit       float64 // % of farmers with at most one visit
	Completeness      float64 // % of rows with both ratings
}

// Assess computes data-quality metrics over the cleaned rows
func Assess(recs []Record, levels []FarmerLevel) Quality {
	q := Quality{Rows: len(recs), Farmers: len(levels)}
	vars := map[string]bool{}
	visits := map[int]bool{}
	noResult, noComp, complete := 0, 0, 0
	for _, r := range recs {
		vars[r.Variable] = true
		if r.Visit > 0 {
			visits[r.Visit] = true
		}
		if !r.ResultOK {
			noResult++
		}
		if !r.CompetenceOK {
			noComp++
		}
		if r.ResultOK && r.CompetenceOK {
			complete++
		}
	}
	q.Variables, q.Visits = len(vars), len(visits)
	q.MissingResult = share(noResult, q.Rows)
	q.MissingCompetence = share(noComp, q.Rows)
	q.Completeness = share(complete, q.Rows)

	noProd, noGender, noArea, single := 0, 0, 0, 0
	for _, l := range levels {
		if math.IsNaN(l.ProductionKg) {
			noProd++
		}
		if l.Gender == "" || l.Gender == categorize.UnknownGender {
			noGender++
		}
		if math.IsNaN(l.AreaHa) {
			noArea++
		}
		if l.Visits <= 1 {
			single++
		}
	}
	q.MissingProduction = share(noProd, q.Farmers)
	q.MissingGender = share(noGender, q.Farmers)
	q.MissingArea = share(noArea, q.Farmers)
	q.SingleVisit = share(single, q.Farmers)
	return q
}

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return aggregator.Round2(float64(n) / float64(total) * 100)
}

// Metric is one line of analysis_summary.csv
type Metric struct {
	Name  string `csv:"Metric"`
	Value string `csv:"Value"`
}
