package actionable

import (
	"fmt"
	"sort"
	"strings"

	"cocoa-insights-go/internal/report"
)

type ActionCard struct {
	Insight string `json:"insight" csv:"Insight"`
	Action  string `json:"action" csv:"Action"`
	Impact  string `json:"impact" csv:"Impact"`
}

// Practice is a practice with its mean 0-2 score
type Practice struct {
	Name  string
	Score float64
}

// Signals are the measurements the rules look at. Zero values mean the
// measurement was not available, except where a flag says otherwise.
type Signals struct {
	Farmers int
	GoodPct float64
	BadPct  float64

	Practices []Practice

	ProgressTracked  bool
	ImprovingPct     float64
	DeterioratingPct float64

	// Percentages of rows/farmers, 0-100
	Completeness      float64
	SingleVisitPct    float64
	MissingProduction float64
	MissingGender     float64

	// Mean adoption % by gender, when both are known
	FemaleAdoption, MaleAdoption float64
}

const (
	weakPractice  = 0.67
	maxWeakListed = 3
)

// Generate applies the threshold rules in priority order. It always
// returns at least one card.
func Generate(s Signals) []ActionCard {
	var cards []ActionCard

	if s.Farmers > 0 && s.BadPct >= 30 {
		cards = append(cards, ActionCard{
			Insight: fmt.Sprintf("%.0f%% of farmers are at Bad adoption level", s.BadPct),
			Action:  "Prioritise coaching visits and demo plots for low-adoption farmers",
			Impact:  "Lift the bottom group toward Medium before the next visit cycle",
		})
	}

	weak := weakest(s.Practices)
	if len(weak) > 0 {
		names := make([]string, len(weak))
		for i, p := range weak {
			names[i] = fmt.Sprintf("%s (%.2f)", p.Name, p.Score)
		}
		cards = append(cards, ActionCard{
			Insight: "Weakest practices: " + strings.Join(names, ", "),
			Action:  "Focus the next training module on these practices with field demonstrations",
			Impact:  "Largest score gain per training hour",
		})
	}

	if s.ProgressTracked && s.DeterioratingPct >= 20 {
		cards = append(cards, ActionCard{
			Insight: fmt.Sprintf("%.0f%% of tracked practices deteriorated between visits", s.DeterioratingPct),
			Action:  "Schedule follow-up visits for deteriorating farmers and check input availability",
			Impact:  "Protect gains from the first training round",
		})
	}

	if s.FemaleAdoption > 0 && s.MaleAdoption > 0 && s.MaleAdoption-s.FemaleAdoption >= 10 {
		cards = append(cards, ActionCard{
			Insight: fmt.Sprintf("Female farmers trail male farmers by %.0f points of adoption", s.MaleAdoption-s.FemaleAdoption),
			Action:  "Run women-led farmer groups and adjust training times to household schedules",
			Impact:  "Close the gender adoption gap",
		})
	}

	if s.Completeness > 0 && s.Completeness < 90 {
		cards = append(cards, ActionCard{
			Insight: fmt.Sprintf("Only %.1f%% of rows carry a usable rating", s.Completeness),
			Action:  "Make rating fields mandatory in the collection form and validate submissions daily",
			Impact:  "Data completeness above 95% for the next survey round",
		})
	}

	if s.SingleVisitPct >= 25 {
		cards = append(cards, ActionCard{
			Insight: fmt.Sprintf("%.0f%% of farmers have only one visit recorded", s.SingleVisitPct),
			Action:  "Plan second visits for these farmers before the season closes",
			Impact:  "Progress can be measured for the whole cohort",
		})
	}

	if s.MissingProduction >= 10 || s.MissingGender >= 10 {
		cards = append(cards, ActionCard{
			Insight: fmt.Sprintf("Baseline gaps: %.0f%% missing production, %.0f%% missing gender", s.MissingProduction, s.MissingGender),
			Action:  "Complete farmer profiles during registration with enumerator checklists",
			Impact:  "Reliable segment comparisons by gender and land size",
		})
	}

	if s.Farmers > 0 && s.GoodPct >= 60 {
		cards = append(cards, ActionCard{
			Insight: fmt.Sprintf("%.0f%% of farmers already reach Good adoption", s.GoodPct),
			Action:  "Recruit high adopters as lead farmers for peer training",
			Impact:  "Scale training reach at low cost",
		})
	}

	if len(cards) == 0 {
		cards = append(cards, ActionCard{
			Insight: "No strong adoption pattern detected",
			Action:  "Monitor and collect more data",
			Impact:  "Low immediate intervention",
		})
	}
	return cards
}

// weakest returns up to three practices scoring below the Medium line,
// lowest first
func weakest(ps []Practice) []Practice {
	var weak []Practice
	for _, p := range ps {
		if p.Score < weakPractice {
			weak = append(weak, p)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool { return weak[i].Score < weak[j].Score })
	if len(weak) > maxWeakListed {
		weak = weak[:maxWeakListed]
	}
	return weak
}

// Render appends the cards as a numbered section of a text report
func Render(t *report.Text, title string, cards []ActionCard) {
	t.Section(title)
	for i, c := range cards {
		t.Line("%d. %s", i+1, c.Insight)
		t.Line("   Action: %s", c.Action)
		t.Line("   Impact: %s", c.Impact)
	}
}
