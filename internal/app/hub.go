package app

import (
	"context"
	"log"
	"sync"
	"time"

	"live-session-service/internal/domain"
)

// LeaderboardHub fans freshly computed leaderboards out to live
// subscribers (the websocket feed). It is a convenience layer on top of
// the read-time projection, not part of the ingestion path: a dropped
// update only means the next one carries the newer snapshot.
type LeaderboardHub struct {
	provider LeaderboardProvider

	mu   sync.Mutex
	subs map[string]map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardHub(provider LeaderboardProvider) *LeaderboardHub {
	return &LeaderboardHub{
		provider: provider,
		subs:     make(map[string]map[chan domain.Leaderboard]struct{}),
	}
}

// Subscribe returns a channel receiving leaderboard snapshots for a
// session. The caller must invoke the returned cancel function to avoid
// leaks.
func (h *LeaderboardHub) Subscribe(ctx context.Context, sessionID string) (<-chan domain.Leaderboard, func(), error) {
	initial, err := h.provider.SessionLeaderboard(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.Leaderboard, 8)
	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan domain.Leaderboard]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	ch <- initial

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[sessionID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, sessionID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel, nil
}

// LeaderboardChanged recomputes the snapshot and broadcasts it. Slow
// subscribers get their stale buffered update replaced instead of
// blocking the broadcast.
func (h *LeaderboardHub) LeaderboardChanged(sessionID string) {
	h.mu.Lock()
	hasSubs := len(h.subs[sessionID]) > 0
	h.mu.Unlock()
	if !hasSubs {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	lb, err := h.provider.SessionLeaderboard(ctx, sessionID)
	if err != nil {
		log.Printf("leaderboard refresh for session %s failed: %v", sessionID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[sessionID] {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
