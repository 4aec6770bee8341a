package redis

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"live-session-service/internal/domain"
)

type countingProvider struct {
	mu    sync.Mutex
	calls int
	lb    domain.Leaderboard
}

func (p *countingProvider) SessionLeaderboard(context.Context, string) (domain.Leaderboard, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.lb, nil
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

func sampleLeaderboard() domain.Leaderboard {
	return domain.Leaderboard{
		SessionID: "session-1",
		Entries: []domain.LeaderboardEntry{
			{ParticipantID: "p1", DisplayName: "Alex", Score: 30, Rank: 1, Level: 1},
			{ParticipantID: "p2", DisplayName: "Sam", Score: 10, Rank: 2, Level: 1},
		},
		UpdatedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestLeaderboardCacheFillsRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	provider := &countingProvider{lb: sampleLeaderboard()}
	cache := NewLeaderboardCache(newClient(mr), provider, time.Minute)
	ctx := context.Background()

	lb, err := cache.SessionLeaderboard(ctx, "session-1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].ParticipantID != "p1" {
		t.Fatalf("unexpected leaderboard: %+v", lb)
	}

	raw, err := mr.Get("session:session-1:leaderboard")
	if err != nil {
		t.Fatalf("cache key missing: %v", err)
	}
	var cached domain.Leaderboard
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		t.Fatalf("cached payload not json: %v", err)
	}
	if cached.Entries[1].Score != 10 {
		t.Fatalf("unexpected cached payload: %+v", cached)
	}

	// Second read must come from Redis, not the provider.
	if _, err := cache.SessionLeaderboard(ctx, "session-1"); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", provider.calls)
	}
}

func TestLeaderboardCacheRecomputesAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	provider := &countingProvider{lb: sampleLeaderboard()}
	cache := NewLeaderboardCache(newClient(mr), provider, time.Second)
	ctx := context.Background()

	if _, err := cache.SessionLeaderboard(ctx, "session-1"); err != nil {
		t.Fatalf("fill: %v", err)
	}
	// Past the TTL even with maximum jitter.
	mr.FastForward(2 * time.Second)

	if _, err := cache.SessionLeaderboard(ctx, "session-1"); err != nil {
		t.Fatalf("refill: %v", err)
	}
	if provider.calls != 2 {
		t.Fatalf("provider calls = %d, want 2", provider.calls)
	}
}

func TestLeaderboardCacheIgnoresCorruptEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	if err := mr.Set("session:session-1:leaderboard", "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	provider := &countingProvider{lb: sampleLeaderboard()}
	cache := NewLeaderboardCache(newClient(mr), provider, time.Minute)

	lb, err := cache.SessionLeaderboard(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(lb.Entries) != 2 || provider.calls != 1 {
		t.Fatalf("corrupt entry not recomputed: %+v calls=%d", lb, provider.calls)
	}
}
