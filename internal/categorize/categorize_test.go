package categorize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want Level
		ok   bool
	}{
		{"G", Good, true},
		{"g ", Good, true},
		{"Good", Good, true},
		{"2", Good, true},
		{"M", Medium, true},
		{"medium", Medium, true},
		{"1", Medium, true},
		{"B", Bad, true},
		{"BAD", Bad, true},
		{"0", Bad, true},
		{"", Bad, false},
		{"X", Bad, false},
		{"3", Bad, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseLevel(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseLevelStableUnderReapplication(t *testing.T) {
	for _, code := range []string{"G", "M", "B"} {
		first, ok := ParseLevel(code)
		require.True(t, ok)
		second, ok := ParseLevel(first.Code())
		require.True(t, ok)
		assert.Equal(t, first, second)
		third, ok := ParseLevel(second.String())
		require.True(t, ok)
		assert.Equal(t, first, third)
	}
	g, _ := ParseLevel("G")
	m, _ := ParseLevel("M")
	b, _ := ParseLevel("B")
	assert.Equal(t, 2, g.Score())
	assert.Equal(t, 1, m.Score())
	assert.Equal(t, 0, b.Score())
}

func TestLandBucketIsPartition(t *testing.T) {
	cases := map[float64]string{
		0:     LandSmall,
		0.5:   LandSmall,
		1.999: LandSmall,
		2.0:   LandMedium,
		3.5:   LandMedium,
		3.999: LandMedium,
		4.0:   LandLarge,
		12:    LandLarge,
	}
	for ha, want := range cases {
		assert.Equal(t, want, LandBucket(ha, true), "area %v", ha)
	}
	assert.Equal(t, LandUnknown, LandBucket(0, false))
	assert.Equal(t, LandUnknown, LandBucket(-1, true))

	// every non-negative area lands in exactly one of the three sized buckets
	for ha := 0.0; ha < 10; ha += 0.25 {
		got := LandBucket(ha, true)
		hits := 0
		for _, b := range []string{LandSmall, LandMedium, LandLarge} {
			if b == got {
				hits++
			}
		}
		assert.Equal(t, 1, hits, "area %v", ha)
	}
}

func TestClassifyProgress(t *testing.T) {
	want := map[int]string{
		-2: Deteriorating,
		-1: Deteriorating,
		0:  SameLevel,
		1:  Improving,
		2:  Improving,
	}
	for delta, status := range want {
		assert.Equal(t, status, ClassifyProgress(delta), "delta %d", delta)
	}
}

func TestNormalizeGender(t *testing.T) {
	assert.Equal(t, Male, NormalizeGender("Male"))
	assert.Equal(t, Male, NormalizeGender("M"))
	assert.Equal(t, Male, NormalizeGender("2"))
	assert.Equal(t, Female, NormalizeGender(" female "))
	assert.Equal(t, Female, NormalizeGender("F"))
	assert.Equal(t, Female, NormalizeGender("1"))
	assert.Equal(t, Female, NormalizeGender("Female farmer"))
	assert.Equal(t, UnknownGender, NormalizeGender(""))
}

func TestOverallLevel(t *testing.T) {
	assert.Equal(t, Good, OverallLevel(100))
	assert.Equal(t, Good, OverallLevel(66.67))
	assert.Equal(t, Medium, OverallLevel(66.6))
	assert.Equal(t, Medium, OverallLevel(33.33))
	assert.Equal(t, Bad, OverallLevel(33.3))
	assert.Equal(t, Bad, OverallLevel(0))
}

func TestOverlapCategory(t *testing.T) {
	assert.Equal(t, "< 10%", OverlapCategory(0.1))
	assert.Equal(t, "11-25%", OverlapCategory(10))
	assert.Equal(t, "26-49%", OverlapCategory(25))
	assert.Equal(t, "≥ 50%", OverlapCategory(50))
	assert.Equal(t, "≥ 50%", OverlapCategory(100))
}

func TestIncomeBracket(t *testing.T) {
	tests := []struct {
		income float64
		want   string
	}{
		{999_999, "<1M"},
		{1_000_000, "<1M"},
		{1_000_001, "1-1.5M"},
		{1_500_000, "1-1.5M"},
		{2_000_000, "1.5-2M"},
		{2_500_000, "2-2.5M"},
		{2_500_001, ">2.5M"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IncomeBracket(tt.income), "income %.0f", tt.income)
	}
}
