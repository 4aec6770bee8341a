package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"live-session-service/internal/aggregate"
	"live-session-service/internal/domain"
)

// casRetries bounds the optimistic-concurrency retry loop on the
// per-instance aggregate before the failure surfaces as retryable.
const casRetries = 5

// ResponseService is the high-volume ingestion path. It admits one live
// response per (participant, instance): a resubmission first subtracts
// the prior contribution from the aggregate, then adds the new one, so
// the aggregate never double counts.
type ResponseService struct {
	store     SessionStore
	responses ResponseStore
	purger    CachePurger
	notifier  Notifier
	clock     func() time.Time
	newID     func() string
}

func NewResponseService(store SessionStore, responses ResponseStore, purger CachePurger, notifier Notifier) *ResponseService {
	if purger == nil {
		purger = NopPurger{}
	}
	return &ResponseService{
		store:     store,
		responses: responses,
		purger:    purger,
		notifier:  notifier,
		clock:     time.Now,
		newID:     uuid.NewString,
	}
}

// Submit validates and applies one response. Precondition checks run in
// a fixed order and the first failure wins: session running, block
// active, payload valid. On success the updated instance id and its
// invalidation entry are returned; the whole session is deliberately not
// invalidated to bound fan-out under load.
func (s *ResponseService) Submit(ctx context.Context, caller domain.Principal, sessionID, instanceID string, payload domain.ResponsePayload) (string, []domain.InvalidatedEntity, error) {
	if caller.Role != domain.RoleParticipant || caller.ID == "" {
		return "", nil, domain.AuthErrorf("responses require a participant token")
	}

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", nil, translateStoreError(err, "load session")
	}
	if sess.Status != domain.SessionRunning {
		return "", nil, domain.StateErrorf("session %s is %s, responses are only accepted while RUNNING", sessionID, sess.Status)
	}
	instance, block := sess.Instance(instanceID)
	if instance == nil {
		return "", nil, domain.NotFoundf("instance %s not found in session %s", instanceID, sessionID)
	}
	if block.Status != domain.BlockActive {
		return "", nil, domain.StateErrorf("block %s is %s, the submission window is closed", block.ID, block.Status)
	}
	if err := validatePayload(instance, payload); err != nil {
		return "", nil, err
	}

	if err := s.apply(ctx, sess, instance, caller.ID, payload); err != nil {
		return "", nil, err
	}

	invalidated := []domain.InvalidatedEntity{{ID: instanceID, Typename: domain.TypenameQuestionInstance}}
	s.purger.Purge(ctx, invalidated)
	if s.notifier != nil {
		s.notifier.LeaderboardChanged(sessionID)
	}
	return instanceID, invalidated, nil
}

// apply runs the read-modify-CAS loop on the instance aggregate. Each
// attempt re-reads both the aggregate and the prior response, so a
// retry after a concurrent writer folds in a consistent view.
func (s *ResponseService) apply(ctx context.Context, sess *domain.Session, instance *domain.QuestionInstance, participantID string, payload domain.ResponsePayload) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		if attempt > 0 {
			fresh, err := s.store.GetSession(ctx, sess.ID)
			if err != nil {
				return translateStoreError(err, "reload session")
			}
			refreshed, _ := fresh.Instance(instance.ID)
			if refreshed == nil {
				return domain.NotFoundf("instance %s disappeared", instance.ID)
			}
			instance = refreshed
		}

		prior, hasPrior, err := s.responses.GetResponse(ctx, instance.ID, participantID)
		if err != nil {
			return translateStoreError(err, "load prior response")
		}

		results := instance.Results
		if hasPrior {
			results, err = aggregate.Apply(instance.Type, results, participantID, prior.Payload, -1)
			if err != nil {
				return domain.TransientErrorf("remove prior contribution: %v", err)
			}
		}
		results, err = aggregate.Apply(instance.Type, results, participantID, payload, +1)
		if err != nil {
			return domain.TransientErrorf("add contribution: %v", err)
		}
		results.Version = instance.Results.Version + 1

		err = s.store.CompareAndSwapResults(ctx, sess.ID, instance.ID, instance.Results.Version, results)
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return translateStoreError(err, "store results")
		}

		record := domain.Response{
			ID:            s.newID(),
			ParticipantID: participantID,
			SessionID:     sess.ID,
			InstanceID:    instance.ID,
			Payload:       payload,
			SubmittedAt:   s.clock(),
		}
		if hasPrior {
			record.ID = prior.ID
		}
		if err := s.responses.PutResponse(ctx, record); err != nil {
			return translateStoreError(err, "store response")
		}
		return nil
	}
	return domain.TransientErrorf("instance %s is contended, retry the submission", instance.ID)
}

// validatePayload enforces the type-specific schema from the instance
// snapshot. Failures are terminal for the request.
func validatePayload(in *domain.QuestionInstance, p domain.ResponsePayload) error {
	if want := domain.KindForType(in.Type); p.Kind != want {
		return domain.ValidationErrorf("instance %s expects a %s payload, got %s", in.ID, want, p.Kind)
	}
	switch in.Type {
	case domain.TypeSC:
		if len(p.Choices) != 1 {
			return domain.ValidationErrorf("single choice requires exactly one selected option")
		}
		return validateChoiceIxs(p.Choices, len(in.Question.Choices))
	case domain.TypeMC:
		if len(p.Choices) == 0 {
			return domain.ValidationErrorf("multiple choice requires at least one selected option")
		}
		return validateChoiceIxs(p.Choices, len(in.Question.Choices))
	case domain.TypeKPrim:
		if len(in.Question.Choices) != domain.KPrimChoices {
			return domain.ValidationErrorf("KPRIM instance %s is misconfigured", in.ID)
		}
		return validateChoiceIxs(p.Choices, domain.KPrimChoices)
	case domain.TypeNumerical:
		if r := in.Question.Restrictions; r != nil {
			if r.Min != nil && p.Value < *r.Min {
				return domain.ValidationErrorf("value %v is below the allowed minimum %v", p.Value, *r.Min)
			}
			if r.Max != nil && p.Value > *r.Max {
				return domain.ValidationErrorf("value %v is above the allowed maximum %v", p.Value, *r.Max)
			}
		}
		return nil
	case domain.TypeFreeText:
		if p.Text == "" {
			return domain.ValidationErrorf("free text response must not be empty")
		}
		if r := in.Question.Restrictions; r != nil && r.MaxLength > 0 && len(p.Text) > r.MaxLength {
			return domain.ValidationErrorf("free text response exceeds the maximum length of %d", r.MaxLength)
		}
		return nil
	case domain.TypeFlashcard:
		switch p.Rating {
		case domain.FlashcardIncorrect, domain.FlashcardPartial, domain.FlashcardCorrect:
			return nil
		default:
			return domain.ValidationErrorf("unknown flashcard rating %q", p.Rating)
		}
	case domain.TypeContent:
		return nil
	default:
		return domain.ValidationErrorf("unsupported instance type %s", in.Type)
	}
}

func validateChoiceIxs(choices []int, numOptions int) error {
	seen := make(map[int]bool, len(choices))
	for _, ix := range choices {
		if ix < 0 || ix >= numOptions {
			return domain.ValidationErrorf("choice index %d is out of range [0,%d)", ix, numOptions)
		}
		if seen[ix] {
			return domain.ValidationErrorf("choice index %d selected twice", ix)
		}
		seen[ix] = true
	}
	return nil
}
