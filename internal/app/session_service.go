package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"live-session-service/internal/domain"
)

// SessionService owns the session lifecycle and block activation. All
// transitions are status compare-and-swaps so that concurrent calls for
// the same session cannot both succeed.
type SessionService struct {
	store          SessionStore
	leaderboards   LeaderboardProvider
	participations ParticipationStore
	awards         AwardStore
	purger         CachePurger
	clock          func() time.Time
	newID          func() string
}

func NewSessionService(store SessionStore, leaderboards LeaderboardProvider, participations ParticipationStore, awards AwardStore, purger CachePurger) *SessionService {
	if purger == nil {
		purger = NopPurger{}
	}
	return &SessionService{
		store:          store,
		leaderboards:   leaderboards,
		participations: participations,
		awards:         awards,
		purger:         purger,
		clock:          time.Now,
		newID:          uuid.NewString,
	}
}

// StartSession moves a PREPARED session to RUNNING. No block is
// activated; the presenter activates one explicitly.
func (s *SessionService) StartSession(ctx context.Context, caller domain.Principal, sessionID string) (*domain.Session, []domain.InvalidatedEntity, error) {
	sess, err := s.ownedSession(ctx, caller, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.Status != domain.SessionPrepared {
		return nil, nil, domain.StateErrorf("session %s is %s, only PREPARED sessions can be started", sessionID, sess.Status)
	}
	if err := s.store.CompareAndSwapSessionStatus(ctx, sessionID, domain.SessionPrepared, domain.SessionRunning); err != nil {
		return nil, nil, translateStoreError(err, "start session")
	}

	invalidated := []domain.InvalidatedEntity{{ID: sessionID, Typename: domain.TypenameSession}}
	s.purger.Purge(ctx, invalidated)
	sess, err = s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, translateStoreError(err, "reload session")
	}
	return sess, invalidated, nil
}

// EndSession moves a RUNNING session to COMPLETED, forces any ACTIVE
// block to EXECUTED and finalizes scores and awards.
func (s *SessionService) EndSession(ctx context.Context, caller domain.Principal, sessionID string) (*domain.Session, []domain.InvalidatedEntity, error) {
	sess, err := s.ownedSession(ctx, caller, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.Status == domain.SessionCompleted {
		return nil, nil, domain.StateErrorf("session %s is already completed", sessionID)
	}
	if sess.Status != domain.SessionRunning {
		return nil, nil, domain.StateErrorf("session %s is %s, only RUNNING sessions can be ended", sessionID, sess.Status)
	}
	if err := s.store.CompareAndSwapSessionStatus(ctx, sessionID, domain.SessionRunning, domain.SessionCompleted); err != nil {
		return nil, nil, translateStoreError(err, "end session")
	}

	invalidated := []domain.InvalidatedEntity{{ID: sessionID, Typename: domain.TypenameSession}}
	if active := sess.ActiveBlockID; active != "" {
		// Forced executions are best effort: a concurrent deactivation
		// arriving first leaves the block already EXECUTED.
		if err := s.store.CompareAndSwapBlockStatus(ctx, sessionID, active, domain.BlockActive, domain.BlockExecuted); err == nil {
			invalidated = append(invalidated, domain.InvalidatedEntity{ID: active, Typename: domain.TypenameSessionBlock})
		}
		_ = s.store.CompareAndSwapActiveBlock(ctx, sessionID, active, "")
	}

	touched, err := s.finalize(ctx, sess)
	if err != nil {
		return nil, nil, err
	}
	invalidated = append(invalidated, touched...)

	s.purger.Purge(ctx, invalidated)
	sess, err = s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, translateStoreError(err, "reload session")
	}
	return sess, invalidated, nil
}

// ActivateSessionBlock makes a SCHEDULED block the session's active
// block. If another block is active this is a precondition failure, not
// an implicit deactivation.
func (s *SessionService) ActivateSessionBlock(ctx context.Context, caller domain.Principal, sessionID, blockID string) (*domain.Session, []domain.InvalidatedEntity, error) {
	sess, err := s.ownedSession(ctx, caller, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.Status != domain.SessionRunning {
		return nil, nil, domain.StateErrorf("session %s is %s, blocks can only be activated while RUNNING", sessionID, sess.Status)
	}
	block := sess.Block(blockID)
	if block == nil {
		return nil, nil, domain.NotFoundf("block %s not found in session %s", blockID, sessionID)
	}
	if block.Status != domain.BlockScheduled {
		return nil, nil, domain.StateErrorf("block %s is %s, only SCHEDULED blocks can be activated", blockID, block.Status)
	}

	// Claiming the active-block slot first serializes concurrent
	// activations: exactly one caller wins the swap from "".
	if err := s.store.CompareAndSwapActiveBlock(ctx, sessionID, "", blockID); err != nil {
		if errors.Is(err, domain.ErrStatusConflict) {
			return nil, nil, domain.StateErrorf("another block is already active in session %s", sessionID)
		}
		return nil, nil, translateStoreError(err, "claim active block")
	}
	if err := s.store.CompareAndSwapBlockStatus(ctx, sessionID, blockID, domain.BlockScheduled, domain.BlockActive); err != nil {
		_ = s.store.CompareAndSwapActiveBlock(ctx, sessionID, blockID, "")
		if errors.Is(err, domain.ErrStatusConflict) {
			return nil, nil, domain.StateErrorf("block %s is no longer SCHEDULED", blockID)
		}
		return nil, nil, translateStoreError(err, "activate block")
	}

	invalidated := []domain.InvalidatedEntity{
		{ID: sessionID, Typename: domain.TypenameSession},
		{ID: blockID, Typename: domain.TypenameSessionBlock},
	}
	for _, in := range block.Instances {
		invalidated = append(invalidated, domain.InvalidatedEntity{ID: in.ID, Typename: domain.TypenameQuestionInstance})
	}
	s.purger.Purge(ctx, invalidated)

	sess, err = s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, translateStoreError(err, "reload session")
	}
	return sess, invalidated, nil
}

// DeactivateSessionBlock closes the submission window of the active
// block: status goes to EXECUTED and never back.
func (s *SessionService) DeactivateSessionBlock(ctx context.Context, caller domain.Principal, sessionID, blockID string) (*domain.Session, []domain.InvalidatedEntity, error) {
	sess, err := s.ownedSession(ctx, caller, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.Status != domain.SessionRunning {
		return nil, nil, domain.StateErrorf("session %s is %s, blocks can only be deactivated while RUNNING", sessionID, sess.Status)
	}
	block := sess.Block(blockID)
	if block == nil {
		return nil, nil, domain.NotFoundf("block %s not found in session %s", blockID, sessionID)
	}
	if err := s.store.CompareAndSwapBlockStatus(ctx, sessionID, blockID, domain.BlockActive, domain.BlockExecuted); err != nil {
		if errors.Is(err, domain.ErrStatusConflict) {
			return nil, nil, domain.StateErrorf("block %s is not ACTIVE", blockID)
		}
		return nil, nil, translateStoreError(err, "deactivate block")
	}
	_ = s.store.CompareAndSwapActiveBlock(ctx, sessionID, blockID, "")

	invalidated := []domain.InvalidatedEntity{
		{ID: sessionID, Typename: domain.TypenameSession},
		{ID: blockID, Typename: domain.TypenameSessionBlock},
	}
	s.purger.Purge(ctx, invalidated)

	sess, err = s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, translateStoreError(err, "reload session")
	}
	return sess, invalidated, nil
}

// finalize snapshots the leaderboard, folds session scores into course
// participations and writes the podium awards.
func (s *SessionService) finalize(ctx context.Context, sess *domain.Session) ([]domain.InvalidatedEntity, error) {
	lb, err := s.leaderboards.SessionLeaderboard(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	var invalidated []domain.InvalidatedEntity
	now := s.clock()
	awardNames := []string{"Gold Medal", "Silver Medal", "Bronze Medal"}
	awards := make([]domain.AwardEntry, 0, len(awardNames))
	for _, entry := range lb.Entries {
		p, ok, err := s.participations.GetParticipation(ctx, sess.CourseID, entry.ParticipantID)
		if err != nil {
			return nil, translateStoreError(err, "load participation")
		}
		if !ok {
			p = domain.Participation{
				ID:            s.newID(),
				ParticipantID: entry.ParticipantID,
				CourseID:      sess.CourseID,
				DisplayName:   entry.DisplayName,
				JoinedAt:      now,
			}
		}
		p.Score += entry.Score
		if err := s.participations.PutParticipation(ctx, p); err != nil {
			return nil, translateStoreError(err, "store participation")
		}
		invalidated = append(invalidated, domain.InvalidatedEntity{ID: p.ID, Typename: domain.TypenameParticipation})

		if entry.Rank <= len(awardNames) && len(awards) < len(awardNames) {
			awards = append(awards, domain.AwardEntry{
				ID:            s.newID(),
				SessionID:     sess.ID,
				ParticipantID: entry.ParticipantID,
				Name:          awardNames[len(awards)],
				Description:   "Session podium finish",
				Order:         len(awards) + 1,
				CreatedAt:     now,
			})
		}
	}
	if len(awards) > 0 {
		if err := s.awards.PutAwards(ctx, awards); err != nil {
			return nil, translateStoreError(err, "store awards")
		}
	}
	return invalidated, nil
}

func (s *SessionService) ownedSession(ctx context.Context, caller domain.Principal, sessionID string) (*domain.Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, translateStoreError(err, "load session")
	}
	if caller.Role != domain.RoleOwner || caller.ID != sess.OwnerID {
		return nil, domain.AuthErrorf("caller does not own session %s", sessionID)
	}
	return sess, nil
}

// translateStoreError folds store sentinels into the caller-facing
// taxonomy; anything else is treated as retryable storage trouble.
func translateStoreError(err error, op string) error {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrBlockNotFound),
		errors.Is(err, domain.ErrInstanceNotFound):
		return domain.NotFoundf("%s: %v", op, err)
	case errors.Is(err, domain.ErrStatusConflict):
		return domain.StateErrorf("%s: %v", op, err)
	case errors.Is(err, domain.ErrVersionConflict):
		return domain.ConflictErrorf("%s: %v", op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return domain.TransientErrorf("%s: storage timeout", op)
	default:
		return domain.TransientErrorf("%s: %v", op, err)
	}
}
