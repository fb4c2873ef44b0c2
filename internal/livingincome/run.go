package livingincome

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"cocoa-insights-go/internal/aggregator"
	"cocoa-insights-go/internal/chart"
	"cocoa-insights-go/internal/config"
	"cocoa-insights-go/internal/dataset"
	"cocoa-insights-go/internal/logger"
	"cocoa-insights-go/internal/pipeline"
	"cocoa-insights-go/internal/report"
	"cocoa-insights-go/internal/types"
)

const Exercise = "living-income"

// Output files
const (
	FileWorkbook  = "living_income_data.xlsx"
	FileKPIs      = "living_income_kpis.csv"
	FileDashboard = "living_income_dashboard.png"
)

// Result is what one living-income run computed
type Result struct {
	Demo       bool
	InputPath  string
	Farmers    []FarmerIncome
	KPIs       KPIs
	Brackets   []aggregator.Share
	Coops      []CoopStats
	Generated  time.Time
	ResultsDir string
}

// Run computes the living income dashboard from a survey sheet, or from
// generated demo farmers when none is configured or found
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Result, error) {
	res := &Result{Generated: time.Now(), ResultsDir: cfg.ResultsPath(Exercise)}
	out := func(name string) string { return filepath.Join(res.ResultsDir, name) }
	var rows []types.IncomeRow

	steps := []pipeline.Step{
		{Name: "load", Run: func(ctx context.Context) error {
			path := cfg.IncomeInput
			if path == "" {
				p, err := dataset.FindInput(cfg.RawDir(Exercise))
				switch {
				case errors.Is(err, dataset.ErrNoInput), errors.Is(err, fs.ErrNotExist):
					rows, res.Demo = DemoFarmers(cfg.DemoFarmers, cfg.DemoSeed), true
					log.WithFields(map[string]interface{}{
						"farmers": len(rows),
						"seed":    cfg.DemoSeed,
					}).Warn("no income survey found, using demo data")
					return nil
				case err != nil:
					return err
				}
				path = p
			}
			t, err := dataset.ReadTable(path)
			if err != nil {
				return err
			}
			r, missing, err := dataset.LoadIncome(t)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				log.WithField("missing", missing).Warn("optional income columns not found")
			}
			rows, res.InputPath = r, path
			return nil
		}},
		{Name: "compute", Run: func(ctx context.Context) error {
			res.Farmers = Compute(rows, cfg.IncomeConfig)
			res.KPIs = Summarize(res.Farmers, cfg.Benchmark)
			res.Brackets = Brackets(res.Farmers)
			res.Coops = ByCooperative(res.Farmers, cfg.Benchmark)
			log.WithFields(map[string]interface{}{
				"farmers":     res.KPIs.Farmers,
				"mean_income": aggregator.Round2(res.KPIs.MeanIncome),
				"below_pct":   res.KPIs.BelowPct,
			}).Info("living income computed")
			report.PrintShares(os.Stdout, "Income Bracket", res.Brackets)
			return nil
		}},
		{Name: "report", Run: func(ctx context.Context) error {
			if err := report.WriteCSV(out(FileKPIs), res.KPIs.Rows()); err != nil {
				return err
			}
			wb := report.NewWorkbook()
			if err := wb.AddStructs("KPIs", res.KPIs.Rows()); err != nil {
				return err
			}
			if err := wb.AddStructs("Farmer Data", res.Farmers); err != nil {
				return err
			}
			if err := wb.AddStructs("Cooperatives", res.Coops); err != nil {
				return err
			}
			if err := wb.AddStructs("Income Brackets", res.Brackets); err != nil {
				return err
			}
			return wb.Save(out(FileWorkbook))
		}},
		{Name: "dashboard", Optional: true, Run: func(ctx context.Context) error {
			return drawDashboard(chart.New(cfg.DPI), res, out(FileDashboard))
		}},
	}
	if err := pipeline.Run(ctx, log, steps); err != nil {
		return res, err
	}
	return res, nil
}

// drawDashboard tiles the bracket histogram, income composition, cost
// structure and cooperative comparison
func drawDashboard(r *chart.Renderer, res *Result, path string) error {
	labels := make([]string, len(res.Brackets))
	counts := make([]float64, len(res.Brackets))
	for i, b := range res.Brackets {
		labels[i], counts[i] = b.Label, float64(b.Count)
	}
	hist, err := chart.Bar("Income Distribution", "Income Level (CFA)", "Number of Farmers", labels, counts, chart.Steel)
	if err != nil {
		return err
	}

	coops := make([]string, len(res.Coops))
	cocoa := make([]float64, len(res.Coops))
	other := make([]float64, len(res.Coops))
	income := make([]float64, len(res.Coops))
	for i, c := range res.Coops {
		coops[i], cocoa[i], other[i], income[i] = c.Cooperative, c.AvgCocoa, c.AvgOther, c.AvgIncome
	}
	composition, err := chart.Stacked("Income Composition by Cooperative", "Income (CFA)", coops, []chart.Series{
		{Name: "Cocoa Revenue", Values: cocoa, Color: chart.Coral},
		{Name: "Other Income", Values: other, Color: chart.Green},
	})
	if err != nil {
		return err
	}

	k := res.KPIs
	costs, err := chart.Stacked("Average Production Costs", "Cost (CFA)", []string{"Production Costs"}, []chart.Series{
		{Name: "Labor", Values: []float64{k.MeanLaborCost}, Color: chart.Blue},
		{Name: "Input", Values: []float64{k.MeanInputCost}, Color: chart.Orange},
	})
	if err != nil {
		return err
	}

	comparison, err := chart.Bar("Average Income vs Benchmark", "Cooperative", "Income (CFA)", coops, income, chart.Green)
	if err != nil {
		return err
	}
	chart.Reference(comparison, k.Benchmark, "Benchmark", chart.Red)

	return r.SaveGrid(path, [][]*plot.Plot{
		{hist, composition},
		{costs, comparison},
	}, 16*vg.Inch, 12*vg.Inch)
}
