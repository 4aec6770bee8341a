package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"live-session-service/internal/domain"
)

func TestPurgeDeletesCachedProjections(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	if err := mr.Set("cache:Session:session-1", "{}"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := mr.Set("cache:QuestionInstance:instance-1", "{}"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := mr.Set("cache:Session:session-2", "{}"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	purger := NewCachePurger(newClient(mr))
	purger.Purge(context.Background(), []domain.InvalidatedEntity{
		{ID: "session-1", Typename: domain.TypenameSession},
		{ID: "instance-1", Typename: domain.TypenameQuestionInstance},
	})

	if mr.Exists("cache:Session:session-1") || mr.Exists("cache:QuestionInstance:instance-1") {
		t.Fatalf("invalidated keys still present")
	}
	if !mr.Exists("cache:Session:session-2") {
		t.Fatalf("unrelated key was deleted")
	}
}

func TestPurgePublishesInvalidationSet(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	ctx := context.Background()

	sub := client.Subscribe(ctx, InvalidationChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil { // subscription confirmation
		t.Fatalf("subscribe: %v", err)
	}

	entities := []domain.InvalidatedEntity{
		{ID: "session-1", Typename: domain.TypenameSession},
		{ID: "block-1", Typename: domain.TypenameSessionBlock},
	}
	NewCachePurger(client).Purge(ctx, entities)

	recvCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(recvCtx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}

	var got []domain.InvalidatedEntity
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if len(got) != 2 || got[0] != entities[0] || got[1] != entities[1] {
		t.Fatalf("published set = %+v, want %+v", got, entities)
	}
}

func TestPurgeEmptySetIsNoop(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	// Must not error or publish anything.
	NewCachePurger(newClient(mr)).Purge(context.Background(), nil)
}
