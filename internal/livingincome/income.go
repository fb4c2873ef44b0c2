// Package livingincome compares farmer household income from cocoa with the
// living income benchmark.
package livingincome

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"cocoa-insights-go/internal/aggregator"
	"cocoa-insights-go/internal/categorize"
	"cocoa-insights-go/internal/config"
	"cocoa-insights-go/internal/types"
)

// Demo data ranges
const (
	demoVolumeMean  = 1200
	demoVolumeSigma = 300
	demoVolumeMin   = 200
	demoVolumeMax   = 3000

	demoLaborMin, demoLaborMax = 400, 600
	demoInputMin, demoInputMax = 250, 400
)

var demoCooperatives = []string{"Coop A", "Coop B", "Coop C", "Coop D"}

// DemoFarmers generates a deterministic farmer set for the dashboard when
// no income survey is available
func DemoFarmers(n int, seed uint64) []types.IncomeRow {
	src := rand.NewPCG(seed, seed)
	rng := rand.New(src)
	volume := distuv.Normal{Mu: demoVolumeMean, Sigma: demoVolumeSigma, Src: src}
	labor := distuv.Uniform{Min: demoLaborMin, Max: demoLaborMax, Src: src}
	input := distuv.Uniform{Min: demoInputMin, Max: demoInputMax, Src: src}

	out := make([]types.IncomeRow, n)
	for i := range out {
		v := volume.Rand()
		if v < demoVolumeMin {
			v = demoVolumeMin
		}
		if v > demoVolumeMax {
			v = demoVolumeMax
		}
		out[i] = types.IncomeRow{
			FarmerID:       fmt.Sprintf("F%04d", i+1),
			Cooperative:    demoCooperatives[rng.IntN(len(demoCooperatives))],
			CocoaVolumeKg:  v,
			HouseholdSize:  3 + rng.IntN(6),
			LaborCostPerKg: labor.Rand(),
			InputCostPerKg: input.Rand(),
		}
	}
	return out
}

// FarmerIncome is the computed income position of one farmer (CFA)
type FarmerIncome struct {
	FarmerID       string  `csv:"farmer_id"`
	Cooperative    string  `csv:"cooperative"`
	CocoaVolumeKg  float64 `csv:"cocoa_volume_kg"`
	HouseholdSize  int     `csv:"household_size"`
	CocoaRevenue   float64 `csv:"cocoa_revenue"`
	TotalIncome    float64 `csv:"total_income"`
	OtherIncome    float64 `csv:"other_income"`
	IncomeGap      float64 `csv:"income_gap"`
	BelowBenchmark bool    `csv:"below_benchmark"`
	LaborCost      float64 `csv:"labor_cost"`
	InputCost      float64 `csv:"input_cost"`
	TotalCost      float64 `csv:"total_cost"`
	NetIncome      float64 `csv:"net_income"`
	Bracket        string  `csv:"income_bracket"`
}

// Compute derives revenue, total income, gap and costs for every farmer.
// Cocoa is assumed to be cfg.RevenueShare of total household revenue.
func Compute(rows []types.IncomeRow, cfg config.IncomeConfig) []FarmerIncome {
	out := make([]FarmerIncome, len(rows))
	for i, r := range rows {
		f := FarmerIncome{
			FarmerID:      r.FarmerID,
			Cooperative:   r.Cooperative,
			CocoaVolumeKg: r.CocoaVolumeKg,
			HouseholdSize: r.HouseholdSize,
			CocoaRevenue:  r.CocoaVolumeKg * (cfg.PricePerKg + cfg.PremiumPerKg),
			LaborCost:     r.CocoaVolumeKg * r.LaborCostPerKg,
			InputCost:     r.CocoaVolumeKg * r.InputCostPerKg,
		}
		f.TotalIncome = f.CocoaRevenue / cfg.RevenueShare
		f.OtherIncome = f.TotalIncome - f.CocoaRevenue
		f.IncomeGap = cfg.Benchmark - f.TotalIncome
		f.BelowBenchmark = f.TotalIncome < cfg.Benchmark
		f.TotalCost = f.LaborCost + f.InputCost
		f.NetIncome = f.TotalIncome - f.TotalCost
		f.Bracket = categorize.IncomeBracket(f.TotalIncome)
		out[i] = f
	}
	return out
}

// KPIs are the headline dashboard numbers
type KPIs struct {
	Benchmark        float64
	Farmers          int
	MeanIncome       float64
	MeanGap          float64
	BelowPct         float64
	AchievementPct   float64 // mean income as % of benchmark
	MeanCocoaRevenue float64
	MeanOtherIncome  float64
	MeanLaborCost    float64
	MeanInputCost    float64
	MeanNetIncome    float64
}

// Summarize computes the KPIs over all farmers
func Summarize(farmers []FarmerIncome, benchmark float64) KPIs {
	k := KPIs{Benchmark: benchmark, Farmers: len(farmers)}
	if len(farmers) == 0 {
		return k
	}
	below := 0
	for _, f := range farmers {
		k.MeanIncome += f.TotalIncome
		k.MeanGap += f.IncomeGap
		k.MeanCocoaRevenue += f.CocoaRevenue
		k.MeanOtherIncome += f.OtherIncome
		k.MeanLaborCost += f.LaborCost
		k.MeanInputCost += f.InputCost
		k.MeanNetIncome += f.NetIncome
		if f.BelowBenchmark {
			below++
		}
	}
	n := float64(len(farmers))
	k.MeanIncome /= n
	k.MeanGap /= n
	k.MeanCocoaRevenue /= n
	k.MeanOtherIncome /= n
	k.MeanLaborCost /= n
	k.MeanInputCost /= n
	k.MeanNetIncome /= n
	k.BelowPct = aggregator.Round2(float64(below) / n * 100)
	if benchmark > 0 {
		k.AchievementPct = aggregator.Round2(k.MeanIncome / benchmark * 100)
	}
	return k
}

// KPI is one row of living_income_kpis.csv
type KPI struct {
	Name  string `csv:"KPI"`
	Value string `csv:"Value"`
}

// Rows renders the KPIs for export
func (k KPIs) Rows() []KPI {
	cfa := func(v float64) string { return fmt.Sprintf("%.0f CFA", v) }
	return []KPI{
		{"Living Income Benchmark", cfa(k.Benchmark)},
		{"Farmers", fmt.Sprintf("%d", k.Farmers)},
		{"Average Farmer Income", cfa(k.MeanIncome)},
		{"Average Income Gap", cfa(k.MeanGap)},
		{"% Farmers Below Benchmark", fmt.Sprintf("%.1f%%", k.BelowPct)},
		{"Living Income Achievement", fmt.Sprintf("%.1f%%", k.AchievementPct)},
		{"Average Cocoa Revenue", cfa(k.MeanCocoaRevenue)},
		{"Average Other Income", cfa(k.MeanOtherIncome)},
		{"Average Labor Cost", cfa(k.MeanLaborCost)},
		{"Average Input Cost", cfa(k.MeanInputCost)},
		{"Average Net Income", cfa(k.MeanNetIncome)},
	}
}

// Brackets is the farmer distribution over income brackets, lowest first
func Brackets(farmers []FarmerIncome) []aggregator.Share {
	labels := make([]string, len(farmers))
	for i, f := range farmers {
		labels[i] = f.Bracket
	}
	return aggregator.Distribution(labels, categorize.IncomeBrackets)
}

// CoopStats compares one cooperative with the benchmark
type CoopStats struct {
	Cooperative  string  `csv:"Cooperative"`
	Farmers      int     `csv:"Farmers"`
	AvgIncome    float64 `csv:"Avg Income"`
	AvgGap       float64 `csv:"Avg Gap"`
	GapPct       float64 `csv:"Gap %"`
	BelowPct     float64 `csv:"Below Benchmark %"`
	AvgCocoa     float64 `csv:"Avg Cocoa Revenue"`
	AvgOther     float64 `csv:"Avg Other Income"`
	AvgNetIncome float64 `csv:"Avg Net Income"`
}

// ByCooperative groups farmers per cooperative, sorted by name
func ByCooperative(farmers []FarmerIncome, benchmark float64) []CoopStats {
	keys := make([]string, len(farmers))
	income := make([]float64, len(farmers))
	for i, f := range farmers {
		keys[i], income[i] = f.Cooperative, f.TotalIncome
	}
	var out []CoopStats
	for _, g := range aggregator.GroupStats(keys, income, nil) {
		var members []FarmerIncome
		for _, f := range farmers {
			if f.Cooperative == g.Key {
				members = append(members, f)
			}
		}
		k := Summarize(members, benchmark)
		c := CoopStats{
			Cooperative:  g.Key,
			Farmers:      g.Count,
			AvgIncome:    aggregator.Round2(g.Mean),
			AvgGap:       aggregator.Round2(k.MeanGap),
			BelowPct:     k.BelowPct,
			AvgCocoa:     aggregator.Round2(k.MeanCocoaRevenue),
			AvgOther:     aggregator.Round2(k.MeanOtherIncome),
			AvgNetIncome: aggregator.Round2(k.MeanNetIncome),
		}
		if benchmark > 0 {
			c.GapPct = aggregator.Round2(k.MeanGap / benchmark * 100)
		}
		out = append(out, c)
	}
	return out
}
