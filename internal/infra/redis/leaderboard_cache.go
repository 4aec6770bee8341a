package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"live-session-service/internal/app"
	"live-session-service/internal/domain"
)

// LeaderboardCache caches computed leaderboards in Redis so multiple
// service instances share one snapshot per session:
// SET session:{sessionID}:leaderboard {json} EX ttl
type LeaderboardCache struct {
	client   *redis.Client
	provider app.LeaderboardProvider
	ttl      time.Duration
	sf       singleflight.Group
	rnd      *rand.Rand
}

func NewLeaderboardCache(client *redis.Client, provider app.LeaderboardProvider, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		client:   client,
		provider: provider,
		ttl:      ttl,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *LeaderboardCache) SessionLeaderboard(ctx context.Context, sessionID string) (domain.Leaderboard, error) {
	key := c.key(sessionID)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var lb domain.Leaderboard
		if err := json.Unmarshal(raw, &lb); err == nil {
			return lb, nil
		}
	}

	result, err, _ := c.sf.Do(sessionID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var lb domain.Leaderboard
			if err := json.Unmarshal(raw, &lb); err == nil {
				return lb, nil
			}
		}

		lb, err := c.provider.SessionLeaderboard(ctx, sessionID)
		if err != nil {
			return domain.Leaderboard{}, err
		}

		if raw, err := json.Marshal(lb); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return lb, nil
	})
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return result.(domain.Leaderboard), nil
}

func (c *LeaderboardCache) key(sessionID string) string {
	return "session:" + sessionID + ":leaderboard"
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
