package app_test

import (
	. "live-session-service/internal/app"

	"context"
	"testing"

	"live-session-service/internal/domain"
	"live-session-service/internal/infra/memory"
)

func TestJoinCreatesParticipation(t *testing.T) {
	participations := memory.NewParticipationStore()
	svc := NewParticipationService(participations, nil)
	ctx := context.Background()

	p, invalidated, err := svc.Join(ctx, participant(1), "course-1", "Alex", "fox")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if p.ID == "" || p.ParticipantID != "participant-1" || p.CourseID != "course-1" {
		t.Fatalf("unexpected participation: %+v", p)
	}
	if p.DisplayName != "Alex" || p.Avatar != "fox" || p.JoinedAt.IsZero() {
		t.Fatalf("profile not applied: %+v", p)
	}
	if len(invalidated) != 1 || invalidated[0].Typename != domain.TypenameParticipation {
		t.Fatalf("unexpected invalidation set: %+v", invalidated)
	}
}

func TestJoinIsIdempotentPerCourse(t *testing.T) {
	participations := memory.NewParticipationStore()
	svc := NewParticipationService(participations, nil)
	ctx := context.Background()

	first, _, err := svc.Join(ctx, participant(1), "course-1", "Alex", "")
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	// Rejoining keeps the record and its accumulated score, only
	// refreshing the profile fields that were sent.
	stored, _, _ := participations.GetParticipation(ctx, "course-1", "participant-1")
	stored.Score = 42
	if err := participations.PutParticipation(ctx, stored); err != nil {
		t.Fatalf("seed score: %v", err)
	}

	second, _, err := svc.Join(ctx, participant(1), "course-1", "Alexandra", "owl")
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("rejoin created a new record: %s vs %s", second.ID, first.ID)
	}
	if second.Score != 42 || second.DisplayName != "Alexandra" || second.Avatar != "owl" {
		t.Fatalf("unexpected rejoin state: %+v", second)
	}
}

func TestJoinDefaultsDisplayName(t *testing.T) {
	svc := NewParticipationService(memory.NewParticipationStore(), nil)

	p, _, err := svc.Join(context.Background(), participant(7), "course-1", "", "")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if p.DisplayName != "participant-7" {
		t.Fatalf("displayName = %q, want the participant id", p.DisplayName)
	}
}

func TestJoinRejections(t *testing.T) {
	svc := NewParticipationService(memory.NewParticipationStore(), nil)
	ctx := context.Background()

	if _, _, err := svc.Join(ctx, owner, "course-1", "", ""); domain.CodeOf(err) != domain.CodeAuth {
		t.Fatalf("owner join: got %v, want AUTH_ERROR", err)
	}
	if _, _, err := svc.Join(ctx, participant(1), "", "", ""); domain.CodeOf(err) != domain.CodeValidation {
		t.Fatalf("empty course: got %v, want VALIDATION_ERROR", err)
	}
}
