// Package categorize maps raw survey values to ordinal codes and bucket labels.
package categorize

import (
	"strings"
)

// Level is the ordinal G/M/B rating of a practice
type Level int

const (
	Bad    Level = 0
	Medium Level = 1
	Good   Level = 2
)

// Levels in reporting order
var Levels = []Level{Good, Medium, Bad}

func (l Level) String() string {
	switch l {
	case Good:
		return "Good"
	case Medium:
		return "Medium"
	case Bad:
		return "Bad"
	}
	return "Unknown"
}

// Code is the single-letter survey code
func (l Level) Code() string {
	switch l {
	case Good:
		return "G"
	case Medium:
		return "M"
	case Bad:
		return "B"
	}
	return ""
}

// Score is the ordinal value used in sums and means
func (l Level) Score() int { return int(l) }

// LevelNames returns the level labels in reporting order
func LevelNames() []string {
	out := make([]string, len(Levels))
	for i, l := range Levels {
		out[i] = l.String()
	}
	return out
}

// ParseLevel accepts G/M/B, Good/Medium/Bad and 2/1/0 in any case.
// ok is false for blank or unrecognised values.
func ParseLevel(raw string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "G", "GOOD", "2", "2.0":
		return Good, true
	case "M", "MEDIUM", "1", "1.0":
		return Medium, true
	case "B", "BAD", "0", "0.0":
		return Bad, true
	}
	return Bad, false
}

const (
	Male          = "Male"
	Female        = "Female"
	UnknownGender = "Unknown"
)

// NormalizeGender folds the gender spellings seen in the surveys
func NormalizeGender(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "":
		return UnknownGender
	case "male", "m", "2", "homme", "h", "hombre":
		return Male
	case "female", "f", "1", "femme", "mujer":
		return Female
	}
	// "female" contains "male", check it first
	if strings.Contains(v, "female") || strings.Contains(v, "femme") {
		return Female
	}
	if strings.Contains(v, "male") {
		return Male
	}
	return strings.TrimSpace(raw)
}

// Land-size bucket labels
const (
	LandSmall   = "<2ha"
	LandMedium  = "2-4ha"
	LandLarge   = "≥4ha"
	LandUnknown = "Unknown"
)

// LandBuckets in reporting order
var LandBuckets = []string{LandSmall, LandMedium, LandLarge, LandUnknown}

// LandBucket places a farm area into exactly one bucket. Each bucket's
// lower bound is inclusive, so 2.0 is 2-4ha and 4.0 is ≥4ha.
func LandBucket(ha float64, ok bool) string {
	if !ok || ha < 0 {
		return LandUnknown
	}
	switch {
	case ha < 2:
		return LandSmall
	case ha < 4:
		return LandMedium
	default:
		return LandLarge
	}
}

// Progress labels
const (
	Improving     = "Improving"
	SameLevel     = "Same Level"
	Deteriorating = "Deteriorating"
)

var ProgressStatuses = []string{Improving, SameLevel, Deteriorating}

// ClassifyProgress turns a signed visit-2 minus visit-1 delta into a status
func ClassifyProgress(delta int) string {
	switch {
	case delta > 0:
		return Improving
	case delta < 0:
		return Deteriorating
	default:
		return SameLevel
	}
}

// OverallLevel buckets an adoption percentage into thirds
func OverallLevel(pct float64) Level {
	switch {
	case pct >= 66.67:
		return Good
	case pct >= 33.33:
		return Medium
	default:
		return Bad
	}
}

// Overlap categories, smallest first
var OverlapCategories = []string{"< 10%", "11-25%", "26-49%", "≥ 50%"}

func OverlapCategory(pct float64) string {
	switch {
	case pct < 10:
		return OverlapCategories[0]
	case pct < 25:
		return OverlapCategories[1]
	case pct < 50:
		return OverlapCategories[2]
	default:
		return OverlapCategories[3]
	}
}

// Income brackets in CFA
var IncomeBrackets = []string{"<1M", "1-1.5M", "1.5-2M", "2-2.5M", ">2.5M"}

// IncomeBracket bins include their upper edge, so 1,000,000 is "<1M"
func IncomeBracket(income float64) string {
	switch {
	case income <= 1_000_000:
		return IncomeBrackets[0]
	case income <= 1_500_000:
		return IncomeBrackets[1]
	case income <= 2_000_000:
		return IncomeBrackets[2]
	case income <= 2_500_000:
		return IncomeBrackets[3]
	default:
		return IncomeBrackets[4]
	}
}
