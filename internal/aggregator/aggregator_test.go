package aggregator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistributionOrderAndSum(t *testing.T) {
	labels := []string{"Good", "Bad", "Good", "Medium", "Good", "Other", "Bad"}
	got := Distribution(labels, []string{"Good", "Medium", "Bad"})

	require.Len(t, got, 4)
	assert.Equal(t, "Good", got[0].Label)
	assert.Equal(t, 3, got[0].Count)
	assert.Equal(t, "Other", got[3].Label)

	total := 0.0
	for _, s := range got {
		total += s.Percent
	}
	assert.InDelta(t, 100, total, 1e-9)
}

func TestDistributionKeepsEmptyOrderedLabels(t *testing.T) {
	got := Distribution([]string{"Good"}, []string{"Good", "Medium", "Bad"})
	require.Len(t, got, 3)
	assert.Equal(t, 0, got[2].Count)
	assert.Equal(t, 0.0, got[2].Percent)

	empty := Distribution(nil, []string{"Good"})
	assert.Equal(t, 0.0, empty[0].Percent)
}

func TestGroupStats(t *testing.T) {
	keys := []string{"Male", "Female", "Male", "Female", "Male", "Unknown"}
	vals := []float64{100, 50, 300, math.NaN(), 200, 10}
	got := GroupStats(keys, vals, []string{"Male", "Female", "Missing"})

	require.Len(t, got, 3)
	assert.Equal(t, "Male", got[0].Key)
	assert.Equal(t, 3, got[0].Count)
	assert.InDelta(t, 200, got[0].Mean, 1e-9)
	assert.InDelta(t, 200, got[0].Median, 1e-9)
	assert.InDelta(t, 100, got[0].Std, 1e-9)
	assert.Equal(t, 600.0, got[0].Sum)
	assert.Equal(t, "Female", got[1].Key)
	assert.Equal(t, 1, got[1].Count)
	assert.Equal(t, 0.0, got[1].Std)
	assert.Equal(t, "Unknown", got[2].Key)

	SortGroups(got)
	assert.Equal(t, "Male", got[0].Key)
	assert.Equal(t, "Unknown", got[2].Key)
}

func TestCrosstab(t *testing.T) {
	rows := []string{"Good", "Good", "Bad", "Medium"}
	cols := []string{"Good", "Bad", "Bad", "Medium"}
	ct := Crosstab(rows, cols, []string{"Good", "Medium", "Bad"}, []string{"Good", "Medium", "Bad"})

	assert.Equal(t, 1, ct.Get("Good", "Good"))
	assert.Equal(t, 1, ct.Get("Good", "Bad"))
	assert.Equal(t, 1, ct.Get("Bad", "Bad"))
	assert.Equal(t, 0, ct.Get("Bad", "Good"))
	assert.Equal(t, 0, ct.Get("nope", "Good"))

	rec := ct.Records("Adoption \\ Competence")
	require.Len(t, rec, 4)
	assert.Equal(t, []string{"Adoption \\ Competence", "Good", "Medium", "Bad", "Total"}, rec[0])
	assert.Equal(t, []string{"Good", "1", "0", "1", "2"}, rec[1])
}

func TestCorrelation(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	b := []float64{2, 4, 6, 8}
	c := []float64{4, 3, 2, 1}
	m := Correlation([]string{"a", "b", "c"}, [][]float64{a, b, c})
	assert.InDelta(t, 1, m.Values[0][1], 1e-9)
	assert.InDelta(t, -1, m.Values[0][2], 1e-9)
	assert.Equal(t, 1.0, m.Values[2][2])
	assert.InDelta(t, m.Values[1][2], m.Values[2][1], 1e-12)
}

func TestOutliers(t *testing.T) {
	vals := []float64{10, 11, 12, 13, 12, 11, 10, 100}
	o, ok := Outliers("volume", vals)
	require.True(t, ok)
	assert.Equal(t, 1, o.Count)
	assert.Less(t, o.Upper, 100.0)
	assert.InDelta(t, 12.5, o.Percent, 1e-9)

	assert.InDelta(t, 8.5, o.Lower, 1e-9)
	assert.InDelta(t, 14.5, o.Upper, 1e-9)

	// fences come from interpolated quartiles, not half medians
	o, ok = Outliers("area", []float64{4, 1, 3, 2})
	require.True(t, ok)
	assert.InDelta(t, -0.5, o.Lower, 1e-9)
	assert.InDelta(t, 5.5, o.Upper, 1e-9)
	assert.Zero(t, o.Count)

	_, ok = Outliers("tiny", []float64{1, 2})
	assert.False(t, ok)
}

func TestQuantile(t *testing.T) {
	vals := []float64{4, 1, 3, 2}
	assert.InDelta(t, 1.75, Quantile(vals, 0.25), 1e-9)
	assert.InDelta(t, 2.5, Quantile(vals, 0.5), 1e-9)
	assert.InDelta(t, 3.25, Quantile(vals, 0.75), 1e-9)
	assert.Equal(t, 1.0, Quantile(vals, 0))
	assert.Equal(t, 4.0, Quantile(vals, 1))
	assert.Equal(t, []float64{4, 1, 3, 2}, vals, "input untouched")
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.24, Round2(1.235000001))
	assert.Equal(t, -2.5, Round2(-2.499))
}
