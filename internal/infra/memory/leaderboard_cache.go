package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"live-session-service/internal/app"
	"live-session-service/internal/domain"
)

// LeaderboardCache serves leaderboards from a short-lived cache so a
// hall of spectators does not trigger one full recomputation each. A
// snapshot a few milliseconds stale is acceptable by contract.
type LeaderboardCache struct {
	provider app.LeaderboardProvider
	ttl      time.Duration
	clock    func() time.Time
	sf       singleflight.Group
	rnd      *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedLeaderboard
}

type cachedLeaderboard struct {
	lb        domain.Leaderboard
	expiresAt time.Time
}

func NewLeaderboardCache(provider app.LeaderboardProvider, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		provider: provider,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:    make(map[string]cachedLeaderboard),
	}
}

func (c *LeaderboardCache) SessionLeaderboard(ctx context.Context, sessionID string) (domain.Leaderboard, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[sessionID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.lb, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(sessionID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[sessionID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.lb, nil
		}
		c.mu.RUnlock()

		lb, err := c.provider.SessionLeaderboard(ctx, sessionID)
		if err != nil {
			return domain.Leaderboard{}, err
		}

		c.mu.Lock()
		c.cache[sessionID] = cachedLeaderboard{lb: lb, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return lb, nil
	})
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return result.(domain.Leaderboard), nil
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
