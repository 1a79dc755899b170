package alerting

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/rydeshare/perfmon/internal/monitoring/metric"
)

// RedisTracker layers a best-effort shared cooldown on top of the in-memory
// tracker. The local check always runs first and remains authoritative; the
// Redis SET NX only widens suppression across replicas that happen to share
// the instance. Redis being down or slow never blocks firing, so this is not
// distributed coordination, just opportunistic dedup sharing.
type RedisTracker struct {
	local *MemoryTracker
	rdb   *redis.Client
}

func NewRedisTracker(rdb *redis.Client) *RedisTracker {
	return &RedisTracker{local: NewMemoryTracker(), rdb: rdb}
}

func (t *RedisTracker) ShouldFire(ruleID string, cooldown time.Duration, ev metric.Event) bool {
	if !t.local.ShouldFire(ruleID, cooldown, ev) {
		return false
	}
	if t.rdb == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	key := "perfmon:cooldown:" + Signature(ruleID, ev)
	ok, err := t.rdb.SetNX(ctx, key, time.Now().UnixMilli(), cooldown).Result()
	if err != nil {
		log.Warn().Err(err).Str("rule_id", ruleID).Msg("redis cooldown check failed; firing anyway")
		return true
	}
	if !ok {
		log.Debug().Str("rule_id", ruleID).Msg("alert suppressed by shared cooldown")
	}
	return ok
}
