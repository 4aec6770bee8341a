package memory

import (
	"context"
	"sort"
	"sync"

	"live-session-service/internal/domain"
)

// ResponseStore keeps the single live response per (participant,
// instance) pair. PutResponse upserts: last write wins by arrival.
type ResponseStore struct {
	mu sync.RWMutex
	// instance id -> participant id -> response
	byInstance map[string]map[string]domain.Response
	// session id -> instance ids, for leaderboard scans
	bySession map[string]map[string]struct{}
}

func NewResponseStore() *ResponseStore {
	return &ResponseStore{
		byInstance: make(map[string]map[string]domain.Response),
		bySession:  make(map[string]map[string]struct{}),
	}
}

func (s *ResponseStore) GetResponse(_ context.Context, instanceID, participantID string) (domain.Response, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byInstance[instanceID][participantID]
	return r, ok, nil
}

func (s *ResponseStore) PutResponse(_ context.Context, r domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byInstance[r.InstanceID] == nil {
		s.byInstance[r.InstanceID] = make(map[string]domain.Response)
	}
	s.byInstance[r.InstanceID][r.ParticipantID] = r
	if s.bySession[r.SessionID] == nil {
		s.bySession[r.SessionID] = make(map[string]struct{})
	}
	s.bySession[r.SessionID][r.InstanceID] = struct{}{}
	return nil
}

func (s *ResponseStore) ListSessionResponses(_ context.Context, sessionID string) ([]domain.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Response
	for instanceID := range s.bySession[sessionID] {
		for _, r := range s.byInstance[instanceID] {
			out = append(out, r)
		}
	}
	// Deterministic order keeps leaderboard computation reproducible.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ParticipationStore keeps participant-course memberships.
type ParticipationStore struct {
	mu sync.RWMutex
	// course id -> participant id -> participation
	byCourse map[string]map[string]domain.Participation
}

func NewParticipationStore() *ParticipationStore {
	return &ParticipationStore{byCourse: make(map[string]map[string]domain.Participation)}
}

func (s *ParticipationStore) GetParticipation(_ context.Context, courseID, participantID string) (domain.Participation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byCourse[courseID][participantID]
	return p, ok, nil
}

func (s *ParticipationStore) PutParticipation(_ context.Context, p domain.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byCourse[p.CourseID] == nil {
		s.byCourse[p.CourseID] = make(map[string]domain.Participation)
	}
	s.byCourse[p.CourseID][p.ParticipantID] = p
	return nil
}

func (s *ParticipationStore) ListParticipations(_ context.Context, courseID string) ([]domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participation, 0, len(s.byCourse[courseID]))
	for _, p := range s.byCourse[courseID] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out, nil
}

// AwardStore keeps immutable achievement records per session.
type AwardStore struct {
	mu        sync.RWMutex
	bySession map[string][]domain.AwardEntry
}

func NewAwardStore() *AwardStore {
	return &AwardStore{bySession: make(map[string][]domain.AwardEntry)}
}

func (s *AwardStore) PutAwards(_ context.Context, awards []domain.AwardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range awards {
		s.bySession[a.SessionID] = append(s.bySession[a.SessionID], a)
	}
	return nil
}

func (s *AwardStore) ListSessionAwards(_ context.Context, sessionID string) ([]domain.AwardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AwardEntry, len(s.bySession[sessionID]))
	copy(out, s.bySession[sessionID])
	return out, nil
}
