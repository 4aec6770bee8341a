// Package grading classifies responses against the stored solution and
// converts the outcome into points. Grading happens at score-attribution
// time so the raw aggregates stay solution-agnostic.
package grading

import (
	"math"
	"strings"

	"live-session-service/internal/domain"
)

// Tier is the correctness classification of a graded response.
type Tier string

const (
	TierIncorrect Tier = "INCORRECT"
	TierPartial   Tier = "PARTIAL"
	TierCorrect   Tier = "CORRECT"
)

// Outcome pairs the tier with the credit fraction in [0, 1].
type Outcome struct {
	Tier     Tier
	Fraction float64
}

// BasePoints is the externally supplied base value for a fully correct
// response. Points earned = round(fraction * base * multiplier).
type BasePoints struct {
	Correct int
}

// DefaultBasePoints mirrors a plain 10-points-per-question setup.
var DefaultBasePoints = BasePoints{Correct: 10}

// Grade classifies a payload against the instance's stored solution.
//
// SC and KPRIM require an exact set match. MC earns partial credit of
// (correctChosen - wrongChosen) / totalCorrect, clamped to [0, 1]; the
// full set is required for full credit. NUMERICAL is correct when the
// value falls within any configured solution range. FREE_TEXT matches
// any accepted solution string case-insensitively. FLASHCARD takes the
// self-reported bucket verbatim, and CONTENT views always count as
// correct engagement.
func Grade(in *domain.QuestionInstance, p domain.ResponsePayload) Outcome {
	switch in.Type {
	case domain.TypeSC, domain.TypeKPrim:
		if sameSet(p.Choices, in.Question.SolutionIxs) {
			return Outcome{Tier: TierCorrect, Fraction: 1}
		}
		return Outcome{Tier: TierIncorrect}
	case domain.TypeMC:
		return gradeMultipleChoice(in.Question.SolutionIxs, p.Choices)
	case domain.TypeNumerical:
		for _, r := range in.Question.SolutionRanges {
			if (r.Min == nil || p.Value >= *r.Min) && (r.Max == nil || p.Value <= *r.Max) {
				return Outcome{Tier: TierCorrect, Fraction: 1}
			}
		}
		return Outcome{Tier: TierIncorrect}
	case domain.TypeFreeText:
		answer := strings.TrimSpace(strings.ToLower(p.Text))
		for _, s := range in.Question.Solutions {
			if answer == strings.TrimSpace(strings.ToLower(s)) {
				return Outcome{Tier: TierCorrect, Fraction: 1}
			}
		}
		return Outcome{Tier: TierIncorrect}
	case domain.TypeFlashcard:
		switch p.Rating {
		case domain.FlashcardCorrect:
			return Outcome{Tier: TierCorrect, Fraction: 1}
		case domain.FlashcardPartial:
			return Outcome{Tier: TierPartial, Fraction: 0.5}
		default:
			return Outcome{Tier: TierIncorrect}
		}
	default: // CONTENT
		return Outcome{Tier: TierCorrect, Fraction: 1}
	}
}

// Points converts an outcome into awarded points for an instance.
// A zero multiplier counts as 1 so unconfigured instances still score.
func Points(o Outcome, multiplier int, base BasePoints) int {
	if multiplier == 0 {
		multiplier = 1
	}
	return int(math.Round(o.Fraction * float64(base.Correct) * float64(multiplier)))
}

func gradeMultipleChoice(solution, chosen []int) Outcome {
	if len(solution) == 0 {
		return Outcome{Tier: TierIncorrect}
	}
	correctSet := make(map[int]bool, len(solution))
	for _, ix := range solution {
		correctSet[ix] = true
	}
	var hits, misses int
	for _, ix := range chosen {
		if correctSet[ix] {
			hits++
		} else {
			misses++
		}
	}
	fraction := float64(hits-misses) / float64(len(solution))
	if fraction <= 0 {
		return Outcome{Tier: TierIncorrect}
	}
	if fraction >= 1 {
		return Outcome{Tier: TierCorrect, Fraction: 1}
	}
	return Outcome{Tier: TierPartial, Fraction: fraction}
}

func sameSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]bool, len(a))
	for _, ix := range a {
		seen[ix] = true
	}
	for _, ix := range b {
		if !seen[ix] {
			return false
		}
	}
	return true
}
