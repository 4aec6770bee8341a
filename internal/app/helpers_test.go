package app_test

import (
	. "live-session-service/internal/app"

	"fmt"

	"live-session-service/internal/domain"
	"live-session-service/internal/gamification"
	"live-session-service/internal/grading"
	"live-session-service/internal/infra/memory"
)

type testEnv struct {
	store          *memory.SessionStore
	responses      *memory.ResponseStore
	participations *memory.ParticipationStore
	awards         *memory.AwardStore
	leaderboards   *LeaderboardService
	sessions       *SessionService
	submit         *ResponseService
}

func newTestEnv() *testEnv {
	store := memory.NewSessionStore(nil)
	responses := memory.NewResponseStore()
	participations := memory.NewParticipationStore()
	awards := memory.NewAwardStore()
	leaderboards := NewLeaderboardService(store, responses, participations, grading.DefaultBasePoints, gamification.New(gamification.DefaultPointsFirstLevel, gamification.DefaultTuningFactor))
	return &testEnv{
		store:          store,
		responses:      responses,
		participations: participations,
		awards:         awards,
		leaderboards:   leaderboards,
		sessions:       NewSessionService(store, leaderboards, participations, awards, nil),
		submit:         NewResponseService(store, responses, nil, nil),
	}
}

// seedSession installs a two-block session: one SC question with options
// A-D (solution B) and one KPRIM question.
func (e *testEnv) seedSession(status domain.SessionStatus) *domain.Session {
	sess := &domain.Session{
		ID:       "session-1",
		Name:     "Weekly quiz",
		CourseID: "course-1",
		OwnerID:  "owner-1",
		Status:   status,
		Blocks: []*domain.SessionBlock{
			{
				ID:    "block-1",
				Order: 0,
				Instances: []*domain.QuestionInstance{
					{
						ID:   "instance-1",
						Type: domain.TypeSC,
						Question: domain.QuestionData{
							Name:        "Capitals",
							Content:     "Which city is the capital of Switzerland?",
							Choices:     []string{"A", "B", "C", "D"},
							SolutionIxs: []int{1},
						},
						PointsMultiplier: 1,
					},
				},
			},
			{
				ID:    "block-2",
				Order: 1,
				Instances: []*domain.QuestionInstance{
					{
						ID:   "instance-2",
						Type: domain.TypeKPrim,
						Question: domain.QuestionData{
							Name:        "Statements",
							Content:     "Judge each statement.",
							Choices:     []string{"s1", "s2", "s3", "s4"},
							SolutionIxs: []int{0, 3},
						},
						PointsMultiplier: 2,
					},
				},
			},
		},
	}
	e.store.Put(sess)
	return sess
}

var (
	owner       = domain.Principal{ID: "owner-1", Role: domain.RoleOwner}
	participant = func(n int) domain.Principal {
		return domain.Principal{ID: fmt.Sprintf("participant-%d", n), Role: domain.RoleParticipant}
	}
)

func choices(ixs ...int) domain.ResponsePayload {
	return domain.ResponsePayload{Kind: domain.PayloadChoices, Choices: ixs}
}
