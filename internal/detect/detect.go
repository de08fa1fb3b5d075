// Package detect scores a statement's text sample against the format catalog
// and picks the layout it most likely follows.
package detect

import (
	"strings"

	"github.com/insightdelivered/statementlens/internal/formats"
)

// Points awarded by Score.
const (
	MustContainPoints = 20
	HintPoints        = 5
)

// DetectionError is returned when no definition in the catalog recognises the
// sample.
type DetectionError struct {
	Reason string
}

func (e *DetectionError) Error() string {
	return "could not detect statement format: " + e.Reason
}

// Result pairs a definition with the score it obtained.
type Result struct {
	Format formats.Definition
	Score  int
}

// Score rates how well sample matches def.
//
// Keywords are matched as case-insensitive substrings. When the definition
// lists required keywords and none is present the score is 0 and nothing
// else is evaluated; otherwise satisfying them is worth MustContainPoints.
// Each hint keyword and each regex hint that matches adds HintPoints. Regex
// hints run against the original sample in multiline mode; a pattern that
// failed to compile contributes nothing.
func Score(def formats.Definition, sample string) int {
	up := strings.ToUpper(sample)
	score := 0

	if len(def.TextMustContainAny) > 0 {
		if !containsAny(up, def.TextMustContainAny) {
			return 0
		}
		score += MustContainPoints
	}

	for _, k := range def.TextShouldContain {
		if k != "" && strings.Contains(up, strings.ToUpper(k)) {
			score += HintPoints
		}
	}

	for _, re := range def.Patterns() {
		if re != nil && re.MatchString(sample) {
			score += HintPoints
		}
	}

	return score
}

func containsAny(up string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(up, strings.ToUpper(k)) {
			return true
		}
	}
	return false
}

// Scores returns the score of every definition, in catalog order.
func Scores(sample string, catalog *formats.Catalog) []Result {
	defs := catalog.All()
	out := make([]Result, 0, len(defs))
	for _, d := range defs {
		out = append(out, Result{Format: d, Score: Score(d, sample)})
	}
	return out
}

// Detect returns the definition with the highest score.
//
// Ties are resolved in favour of the definition that comes first in catalog
// order; only a strictly greater score replaces the current best. It fails
// with *DetectionError when the catalog is empty or every score is 0.
func Detect(sample string, catalog *formats.Catalog) (Result, error) {
	if catalog.Len() == 0 {
		return Result{}, &DetectionError{Reason: "no format definitions loaded"}
	}

	best := Result{Score: -1}
	for _, r := range Scores(sample, catalog) {
		if r.Score > best.Score {
			best = r
		}
	}

	if best.Score <= 0 {
		return Result{}, &DetectionError{Reason: "no format scored above zero"}
	}
	return best, nil
}
