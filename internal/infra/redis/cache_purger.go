package redis

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"live-session-service/internal/domain"
)

// InvalidationChannel carries invalidation sets to cross-instance
// subscribers (other service replicas, edge caches).
const InvalidationChannel = "cache:invalidations"

// CachePurger drops cached projections (cache:{typename}:{id}) and
// publishes the invalidation set on a pub/sub channel. Both effects are
// best effort: the authoritative signal stays on the response envelope.
type CachePurger struct {
	client *redis.Client
}

func NewCachePurger(client *redis.Client) *CachePurger {
	return &CachePurger{client: client}
}

func (p *CachePurger) Purge(ctx context.Context, entities []domain.InvalidatedEntity) {
	if len(entities) == 0 {
		return
	}
	keys := make([]string, len(entities))
	for i, e := range entities {
		keys[i] = "cache:" + e.Typename + ":" + e.ID
	}
	if err := p.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache purge failed: %v", err)
	}
	if raw, err := json.Marshal(entities); err == nil {
		if err := p.client.Publish(ctx, InvalidationChannel, raw).Err(); err != nil {
			log.Printf("invalidation publish failed: %v", err)
		}
	}
}
