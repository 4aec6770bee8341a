package app

import (
	"context"
	"sort"
	"time"

	"live-session-service/internal/domain"
	"live-session-service/internal/gamification"
	"live-session-service/internal/grading"
)

// LeaderboardService recomputes the session scoreboard on demand from
// persisted responses. It is a read-only projection: running it
// concurrently with ingestion only risks serving a snapshot a few
// milliseconds old.
type LeaderboardService struct {
	store          SessionStore
	responses      ResponseStore
	participations ParticipationStore
	base           grading.BasePoints
	levels         gamification.Calculator
	clock          func() time.Time
}

func NewLeaderboardService(store SessionStore, responses ResponseStore, participations ParticipationStore, base grading.BasePoints, levels gamification.Calculator) *LeaderboardService {
	return &LeaderboardService{
		store:          store,
		responses:      responses,
		participations: participations,
		base:           base,
		levels:         levels,
		clock:          time.Now,
	}
}

type scoreline struct {
	participantID  string
	score          int
	lastScoredAt   time.Time
	lastBlockOrder int
}

// SessionLeaderboard grades every persisted response of the session and
// ranks the participants. Ordering: score descending, then whoever
// reached their score earliest, then participant id. Ranks are 1-based;
// tied scores share a rank and the next rank skips by the tie size.
func (s *LeaderboardService) SessionLeaderboard(ctx context.Context, sessionID string) (domain.Leaderboard, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Leaderboard{}, translateStoreError(err, "load session")
	}
	responses, err := s.responses.ListSessionResponses(ctx, sessionID)
	if err != nil {
		return domain.Leaderboard{}, translateStoreError(err, "list responses")
	}

	type located struct {
		instance *domain.QuestionInstance
		order    int
	}
	instances := make(map[string]located)
	for _, b := range sess.Blocks {
		for _, in := range b.Instances {
			instances[in.ID] = located{instance: in, order: b.Order}
		}
	}

	lines := make(map[string]*scoreline)
	for _, r := range responses {
		loc, ok := instances[r.InstanceID]
		if !ok {
			continue
		}
		outcome := grading.Grade(loc.instance, r.Payload)
		points := grading.Points(outcome, loc.instance.PointsMultiplier, s.base)

		line := lines[r.ParticipantID]
		if line == nil {
			line = &scoreline{participantID: r.ParticipantID, lastBlockOrder: -1}
			lines[r.ParticipantID] = line
		}
		line.score += points
		if r.SubmittedAt.After(line.lastScoredAt) {
			line.lastScoredAt = r.SubmittedAt
		}
		if loc.order > line.lastBlockOrder {
			line.lastBlockOrder = loc.order
		}
	}

	profiles := make(map[string]domain.Participation)
	if ps, err := s.participations.ListParticipations(ctx, sess.CourseID); err == nil {
		for _, p := range ps {
			profiles[p.ParticipantID] = p
		}
	}

	ordered := make([]*scoreline, 0, len(lines))
	for _, line := range lines {
		ordered = append(ordered, line)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score > ordered[j].score
		}
		if !ordered[i].lastScoredAt.Equal(ordered[j].lastScoredAt) {
			return ordered[i].lastScoredAt.Before(ordered[j].lastScoredAt)
		}
		return ordered[i].participantID < ordered[j].participantID
	})

	entries := make([]domain.LeaderboardEntry, 0, len(ordered))
	rank := 0
	for i, line := range ordered {
		if i == 0 || line.score != ordered[i-1].score {
			rank = i + 1
		}
		entry := domain.LeaderboardEntry{
			ParticipantID:  line.participantID,
			DisplayName:    line.participantID,
			Score:          line.score,
			Rank:           rank,
			LastBlockOrder: line.lastBlockOrder,
		}
		courseXP := 0
		if p, ok := profiles[line.participantID]; ok {
			entry.DisplayName = p.DisplayName
			entry.Avatar = p.Avatar
			courseXP = p.Score
		}
		entry.Level = s.levels.LevelFromXp(courseXP + line.score)
		entries = append(entries, entry)
	}

	return domain.Leaderboard{
		SessionID: sessionID,
		Entries:   entries,
		UpdatedAt: s.clock(),
	}, nil
}
