package judge

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Winner labels in a preference verdict, after normalization.
const (
	winnerA   = "A"
	winnerB   = "B"
	winnerTie = "tie"
)

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// repairVerdict applies minimal transport-level fixes before parsing:
// markdown code fences and trailing commas are the two damages judge models
// routinely inflict on otherwise valid JSON.
func repairVerdict(content string) string {
	repaired := strings.TrimSpace(content)
	repaired = strings.TrimPrefix(repaired, "```json")
	repaired = strings.TrimPrefix(repaired, "```")
	repaired = strings.TrimSuffix(repaired, "```")
	repaired = trailingCommaRe.ReplaceAllString(repaired, `$1`)
	return strings.TrimSpace(repaired)
}

// preferenceVerdict is the parsed judgment of a pairwise comparison.
type preferenceVerdict struct {
	Winner    string `json:"winner"`
	Reasoning string `json:"reasoning"`
}

// parsePreferenceVerdict parses and normalizes a pairwise verdict. The
// winner label is folded to "A", "B", or "tie"; anything else is malformed.
func parsePreferenceVerdict(content string) (*preferenceVerdict, error) {
	var v preferenceVerdict
	if err := json.Unmarshal([]byte(repairVerdict(content)), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	switch strings.ToLower(strings.TrimSpace(v.Winner)) {
	case "a":
		v.Winner = winnerA
	case "b":
		v.Winner = winnerB
	case "tie", "draw", "equal":
		v.Winner = winnerTie
	default:
		return nil, fmt.Errorf("%w: winner %q", ErrMalformedVerdict, v.Winner)
	}
	return &v, nil
}

// gradeVerdict is the parsed judgment of a single-answer grading.
type gradeVerdict struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// parseGradeVerdict parses a grading verdict, clamping the score into
// [0, 1]. Non-finite scores are malformed.
func parseGradeVerdict(content string) (*gradeVerdict, error) {
	var v gradeVerdict
	if err := json.Unmarshal([]byte(repairVerdict(content)), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	if math.IsNaN(v.Score) || math.IsInf(v.Score, 0) {
		return nil, fmt.Errorf("%w: non-finite score", ErrMalformedVerdict)
	}
	v.Score = math.Min(1, math.Max(0, v.Score))
	return &v, nil
}
