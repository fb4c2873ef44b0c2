package actionable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cocoa-insights-go/internal/report"
)

func TestGenerateFallback(t *testing.T) {
	cards := Generate(Signals{})
	require.Len(t, cards, 1)
	assert.Equal(t, "Monitor and collect more data", cards[0].Action)
}

func TestGenerateRules(t *testing.T) {
	cards := Generate(Signals{
		Farmers: 40,
		BadPct:  35,
		Practices: []Practice{
			{"Pruning", 1.6}, {"Shade", 0.2}, {"Weeding", 0.5}, {"Grafting", 0.6}, {"Drainage", 0.1},
		},
		ProgressTracked:  true,
		DeterioratingPct: 25,
		Completeness:     80,
		FemaleAdoption:   30,
		MaleAdoption:     50,
	})
	require.Len(t, cards, 5)
	assert.Contains(t, cards[0].Insight, "35%")
	assert.Equal(t, "Weakest practices: Drainage (0.10), Shade (0.20), Weeding (0.50)", cards[1].Insight)
	assert.Contains(t, cards[2].Insight, "deteriorated")
	assert.Contains(t, cards[3].Insight, "20 points")
	assert.Contains(t, cards[4].Insight, "80.0%")
}

func TestGenerateStrongAdoption(t *testing.T) {
	cards := Generate(Signals{Farmers: 10, GoodPct: 70, Completeness: 100})
	require.Len(t, cards, 1)
	assert.Contains(t, cards[0].Action, "lead farmers")
}

func TestRender(t *testing.T) {
	txt := report.NewText("RECOMMENDATIONS")
	Render(txt, "ACTIONS", Generate(Signals{}))
	out := txt.String()
	assert.Contains(t, out, "ACTIONS")
	assert.Contains(t, out, "1. No strong adoption pattern detected")
	assert.Contains(t, out, "   Impact: Low immediate intervention")
}
