// Package aggregate holds the pure per-instance results arithmetic.
// Applying a payload with sign -1 removes a prior contribution, which is
// what makes resubmission idempotent with respect to the aggregate.
package aggregate

import (
	"fmt"
	"strconv"

	"live-session-service/internal/domain"
)

// Initial returns the zero/empty aggregate for an instance type.
// numChoices is only consulted for choice-based types.
func Initial(t domain.ElementType, numChoices int) domain.ElementResults {
	switch t {
	case domain.TypeSC, domain.TypeMC, domain.TypeKPrim:
		choices := make(map[int]int, numChoices)
		for ix := 0; ix < numChoices; ix++ {
			choices[ix] = 0
		}
		return domain.ElementResults{Choices: choices}
	case domain.TypeNumerical, domain.TypeFreeText:
		return domain.ElementResults{Responses: map[string]string{}}
	case domain.TypeFlashcard:
		return domain.ElementResults{}
	default: // CONTENT
		return domain.ElementResults{}
	}
}

// Apply folds one payload into the aggregate and returns the new value.
// The input is not mutated. sign must be +1 (add) or -1 (remove).
func Apply(t domain.ElementType, prior domain.ElementResults, participantID string, p domain.ResponsePayload, sign int) (domain.ElementResults, error) {
	if sign != 1 && sign != -1 {
		return domain.ElementResults{}, fmt.Errorf("aggregate: sign must be +1 or -1, got %d", sign)
	}
	if want := domain.KindForType(t); p.Kind != want {
		return domain.ElementResults{}, fmt.Errorf("aggregate: payload kind %q does not match instance type %s", p.Kind, t)
	}

	next := prior.Clone()
	switch p.Kind {
	case domain.PayloadChoices:
		for _, ix := range p.Choices {
			next.Choices[ix] += sign
		}
		next.Total += sign
	case domain.PayloadNumerical:
		applyOpenResponse(&next, participantID, strconv.FormatFloat(p.Value, 'f', -1, 64), sign)
	case domain.PayloadText:
		applyOpenResponse(&next, participantID, p.Text, sign)
	case domain.PayloadRating:
		switch p.Rating {
		case domain.FlashcardIncorrect:
			next.Incorrect += sign
		case domain.FlashcardPartial:
			next.Partial += sign
		case domain.FlashcardCorrect:
			next.Correct += sign
		default:
			return domain.ElementResults{}, fmt.Errorf("aggregate: unknown flashcard rating %q", p.Rating)
		}
		next.Total += sign
	case domain.PayloadView:
		next.Viewed += sign
	default:
		return domain.ElementResults{}, fmt.Errorf("aggregate: unknown payload kind %q", p.Kind)
	}
	return next, nil
}

// applyOpenResponse keeps the latest value per participant; the response
// count for open types equals the map size.
func applyOpenResponse(r *domain.ElementResults, participantID, value string, sign int) {
	if sign > 0 {
		r.Responses[participantID] = value
	} else {
		delete(r.Responses, participantID)
	}
	r.Total = len(r.Responses)
}
