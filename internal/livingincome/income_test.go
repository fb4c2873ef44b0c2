package livingincome

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cocoa-insights-go/internal/config"
	"cocoa-insights-go/internal/logger"
	"cocoa-insights-go/internal/types"
)

var incomeCfg = config.IncomeConfig{
	Benchmark:    2_500_000,
	PricePerKg:   1000,
	PremiumPerKg: 40,
	RevenueShare: 0.72,
}

func TestCompute(t *testing.T) {
	farmers := Compute([]types.IncomeRow{
		{FarmerID: "F1", Cooperative: "Coop A", CocoaVolumeKg: 1200, LaborCostPerKg: 500, InputCostPerKg: 300},
		{FarmerID: "F2", Cooperative: "Coop B", CocoaVolumeKg: 2000},
	}, incomeCfg)
	require.Len(t, farmers, 2)

	f := farmers[0]
	assert.Equal(t, 1_248_000.0, f.CocoaRevenue)
	assert.InDelta(t, 1_733_333.33, f.TotalIncome, 0.01)
	assert.InDelta(t, f.TotalIncome-f.CocoaRevenue, f.OtherIncome, 1e-6)
	assert.InDelta(t, 2_500_000-f.TotalIncome, f.IncomeGap, 1e-6)
	assert.True(t, f.BelowBenchmark)
	assert.Equal(t, 600_000.0, f.LaborCost)
	assert.Equal(t, 360_000.0, f.InputCost)
	assert.InDelta(t, f.TotalIncome-960_000, f.NetIncome, 1e-6)
	assert.Equal(t, "1.5-2M", f.Bracket)

	g := farmers[1]
	assert.InDelta(t, 2_888_888.89, g.TotalIncome, 0.01)
	assert.False(t, g.BelowBenchmark)
	assert.Less(t, g.IncomeGap, 0.0)
	assert.Zero(t, g.TotalCost, "costs not surveyed")
	assert.Equal(t, ">2.5M", g.Bracket)
}

func TestSummarizeAndGroups(t *testing.T) {
	farmers := Compute([]types.IncomeRow{
		{FarmerID: "F1", Cooperative: "Coop A", CocoaVolumeKg: 1200},
		{FarmerID: "F2", Cooperative: "Coop A", CocoaVolumeKg: 2000},
		{FarmerID: "F3", Cooperative: "Coop B", CocoaVolumeKg: 600},
		{FarmerID: "F4", Cooperative: "Coop B", CocoaVolumeKg: 900},
	}, incomeCfg)

	k := Summarize(farmers, incomeCfg.Benchmark)
	assert.Equal(t, 4, k.Farmers)
	assert.Equal(t, 75.0, k.BelowPct)
	mean := (farmers[0].TotalIncome + farmers[1].TotalIncome + farmers[2].TotalIncome + farmers[3].TotalIncome) / 4
	assert.InDelta(t, mean, k.MeanIncome, 1e-6)
	assert.InDelta(t, 2_500_000-mean, k.MeanGap, 1e-6)
	assert.Len(t, k.Rows(), 11)

	brackets := Brackets(farmers)
	require.Len(t, brackets, 5)
	total := 0
	for _, b := range brackets {
		total += b.Count
	}
	assert.Equal(t, 4, total)
	assert.Equal(t, 1, brackets[0].Count, "only 600 kg falls under 1M")
	assert.Equal(t, 1, brackets[1].Count)

	coops := ByCooperative(farmers, incomeCfg.Benchmark)
	require.Len(t, coops, 2)
	assert.Equal(t, "Coop A", coops[0].Cooperative)
	assert.Equal(t, 2, coops[0].Farmers)
	assert.Equal(t, 50.0, coops[0].BelowPct)
	assert.Equal(t, 100.0, coops[1].BelowPct)
	assert.Greater(t, coops[1].GapPct, coops[0].GapPct)

	assert.Zero(t, Summarize(nil, 1).Farmers)
}

func TestDemoFarmers(t *testing.T) {
	a := DemoFarmers(200, 42)
	b := DemoFarmers(200, 42)
	require.Len(t, a, 200)
	assert.Equal(t, a, b, "same seed, same data")
	assert.NotEqual(t, a, DemoFarmers(200, 7))

	coops := map[string]bool{}
	for _, f := range a {
		assert.GreaterOrEqual(t, f.CocoaVolumeKg, 200.0)
		assert.LessOrEqual(t, f.CocoaVolumeKg, 3000.0)
		assert.GreaterOrEqual(t, f.HouseholdSize, 3)
		assert.LessOrEqual(t, f.HouseholdSize, 8)
		assert.GreaterOrEqual(t, f.LaborCostPerKg, 400.0)
		assert.LessOrEqual(t, f.InputCostPerKg, 400.0)
		coops[f.Cooperative] = true
	}
	assert.Len(t, coops, 4)
	assert.Equal(t, "F0001", a[0].FarmerID)
}

func testConfig(dir string) *config.Config {
	ic := incomeCfg
	ic.DemoFarmers, ic.DemoSeed = 50, 42
	return &config.Config{
		DataDir:      filepath.Join(dir, "data"),
		ResultsDir:   filepath.Join(dir, "results"),
		IncomeConfig: ic,
		ChartConfig:  config.ChartConfig{DPI: 40},
	}
}

func TestRunDemo(t *testing.T) {
	dir := t.TempDir()
	res, err := Run(context.Background(), testConfig(dir), logger.Discard())
	require.NoError(t, err)

	assert.True(t, res.Demo)
	assert.Len(t, res.Farmers, 50)
	assert.Len(t, res.Coops, 4)
	for _, name := range []string{FileWorkbook, FileKPIs, FileDashboard} {
		assert.FileExists(t, filepath.Join(res.ResultsDir, name))
	}
}

func TestRunSurvey(t *testing.T) {
	dir := t.TempDir()
	rows := [][]interface{}{
		{"farmer_id", "cooperative", "cocoa_volume_kg", "household_size"},
		{"F1", "Coop A", 1200, 5},
		{"F2", "Coop A", "", 4},
		{"F3", "Coop B", 2500, 7},
	}
	f := excelize.NewFile()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	input := filepath.Join(dir, "income.xlsx")
	require.NoError(t, f.SaveAs(input))
	require.NoError(t, f.Close())

	cfg := testConfig(dir)
	cfg.IncomeInput = input
	res, err := Run(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)

	assert.False(t, res.Demo)
	require.Len(t, res.Farmers, 2, "row without volume is skipped")
	assert.Equal(t, 5, res.Farmers[0].HouseholdSize)
	assert.Equal(t, 50.0, res.KPIs.BelowPct)

	wb, err := excelize.OpenFile(filepath.Join(res.ResultsDir, FileWorkbook))
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"KPIs", "Farmer Data", "Cooperatives", "Income Brackets"}, wb.GetSheetList())
}
