package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"live-session-service/internal/domain"
)

// ParticipationService registers participants in a course so the
// leaderboard can resolve display names and accumulate course XP.
type ParticipationService struct {
	participations ParticipationStore
	purger         CachePurger
	clock          func() time.Time
	newID          func() string
}

func NewParticipationService(participations ParticipationStore, purger CachePurger) *ParticipationService {
	if purger == nil {
		purger = NopPurger{}
	}
	return &ParticipationService{
		participations: participations,
		purger:         purger,
		clock:          time.Now,
		newID:          uuid.NewString,
	}
}

// Join creates or refreshes the caller's participation in a course.
func (s *ParticipationService) Join(ctx context.Context, caller domain.Principal, courseID, displayName, avatar string) (domain.Participation, []domain.InvalidatedEntity, error) {
	if caller.Role != domain.RoleParticipant || caller.ID == "" {
		return domain.Participation{}, nil, domain.AuthErrorf("joining a course requires a participant token")
	}
	if courseID == "" {
		return domain.Participation{}, nil, domain.ValidationErrorf("courseId must not be empty")
	}

	p, ok, err := s.participations.GetParticipation(ctx, courseID, caller.ID)
	if err != nil {
		return domain.Participation{}, nil, translateStoreError(err, "load participation")
	}
	if !ok {
		p = domain.Participation{
			ID:            s.newID(),
			ParticipantID: caller.ID,
			CourseID:      courseID,
			JoinedAt:      s.clock(),
		}
	}
	if displayName != "" {
		p.DisplayName = displayName
	}
	if p.DisplayName == "" {
		p.DisplayName = caller.ID
	}
	if avatar != "" {
		p.Avatar = avatar
	}
	if err := s.participations.PutParticipation(ctx, p); err != nil {
		return domain.Participation{}, nil, translateStoreError(err, "store participation")
	}

	invalidated := []domain.InvalidatedEntity{{ID: p.ID, Typename: domain.TypenameParticipation}}
	s.purger.Purge(ctx, invalidated)
	return p, invalidated, nil
}
