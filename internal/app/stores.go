package app

import (
	"context"

	"live-session-service/internal/domain"
)

// SessionStore is the persistence boundary for session live state.
// All compare-and-swap methods take the expected previous value and fail
// with domain.ErrStatusConflict / domain.ErrVersionConflict when the
// stored value moved underneath the caller; that contract is what keeps
// concurrent transitions and aggregate updates safe.
type SessionStore interface {
	// GetSession returns a deep snapshot or domain.ErrSessionNotFound.
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	CompareAndSwapSessionStatus(ctx context.Context, sessionID string, from, to domain.SessionStatus) error
	CompareAndSwapBlockStatus(ctx context.Context, sessionID, blockID string, from, to domain.BlockStatus) error
	// CompareAndSwapActiveBlock swaps the session's active block
	// reference; the empty string means "no active block".
	CompareAndSwapActiveBlock(ctx context.Context, sessionID, expected, next string) error
	// CompareAndSwapResults replaces an instance aggregate only if its
	// version still equals expectedVersion.
	CompareAndSwapResults(ctx context.Context, sessionID, instanceID string, expectedVersion int64, next domain.ElementResults) error
}

// ResponseStore persists the single live response per (participant, instance).
type ResponseStore interface {
	GetResponse(ctx context.Context, instanceID, participantID string) (domain.Response, bool, error)
	PutResponse(ctx context.Context, r domain.Response) error
	ListSessionResponses(ctx context.Context, sessionID string) ([]domain.Response, error)
}

// ParticipationStore persists participant-course memberships and XP.
type ParticipationStore interface {
	GetParticipation(ctx context.Context, courseID, participantID string) (domain.Participation, bool, error)
	PutParticipation(ctx context.Context, p domain.Participation) error
	ListParticipations(ctx context.Context, courseID string) ([]domain.Participation, error)
}

// AwardStore persists immutable achievement records.
type AwardStore interface {
	PutAwards(ctx context.Context, awards []domain.AwardEntry) error
	ListSessionAwards(ctx context.Context, sessionID string) ([]domain.AwardEntry, error)
}

// CachePurger evicts stale projections from a downstream read cache.
// Purging is best effort; the authoritative signal is the invalidation
// set returned on every mutation envelope.
type CachePurger interface {
	Purge(ctx context.Context, entities []domain.InvalidatedEntity)
}

// LeaderboardProvider computes (or serves a cached) session leaderboard.
type LeaderboardProvider interface {
	SessionLeaderboard(ctx context.Context, sessionID string) (domain.Leaderboard, error)
}

// Notifier receives a signal after every accepted response so live
// consumers (e.g. the websocket feed) can refresh.
type Notifier interface {
	LeaderboardChanged(sessionID string)
}

// NopPurger satisfies CachePurger when no read cache is configured.
type NopPurger struct{}

func (NopPurger) Purge(context.Context, []domain.InvalidatedEntity) {}
