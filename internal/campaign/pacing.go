package campaign

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"dialer-platform/pkg/utils"
)

// Semaphore bounds concurrent outstanding originations per campaign. It is
// the system's only backpressure mechanism: a slot is taken before a dial is
// issued and given back when the call settles (or the origination fails).
type Semaphore interface {
	Acquire(ctx context.Context, campaignID string, limit int) (bool, error)
	Release(ctx context.Context, campaignID string) error
}

// LocalSemaphore counts slots in process memory. Single-node deployments use
// this; multi-node dialers share slots through the Redis variant.
type LocalSemaphore struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewLocalSemaphore() *LocalSemaphore {
	return &LocalSemaphore{counts: map[string]int{}}
}

func (s *LocalSemaphore) Acquire(ctx context.Context, campaignID string, limit int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts[campaignID] >= limit {
		return false, nil
	}
	s.counts[campaignID]++
	return true, nil
}

func (s *LocalSemaphore) Release(ctx context.Context, campaignID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts[campaignID] > 0 {
		s.counts[campaignID]--
	}
	if s.counts[campaignID] == 0 {
		delete(s.counts, campaignID)
	}
	return nil
}

// RedisSemaphore enforces the cap across dialer nodes using the atomic
// counter scripts in pkg/utils. The TTL covers slots leaked by a crashed
// node; a live call never outlasts it because terminal webhooks release
// slots long before then.
type RedisSemaphore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSemaphore(rdb *redis.Client, ttl time.Duration) *RedisSemaphore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisSemaphore{rdb: rdb, ttl: ttl}
}

func semaphoreKey(campaignID string) string {
	return "dialer:outstanding:" + campaignID
}

func (s *RedisSemaphore) Acquire(ctx context.Context, campaignID string, limit int) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, s.rdb, semaphoreKey(campaignID), limit, s.ttl)
}

func (s *RedisSemaphore) Release(ctx context.Context, campaignID string) error {
	return utils.ReleaseConcurrencyCap(ctx, s.rdb, semaphoreKey(campaignID))
}

// outstandingLimit is the pacing policy: how many originations may be in
// flight for the campaign right now.
//
// Preview and progressive dial one call at a time. Predictive overdials by
// OverdialRatio per available agent to mask the no-answer rate, clamped by
// the configured per-campaign maximum.
func outstandingLimit(c DialCampaign, maxOutstanding int) int {
	if maxOutstanding <= 0 {
		maxOutstanding = 1
	}
	switch c.Mode {
	case ModePredictive:
		agents := 0
		if c.AgentAvailable {
			agents = 1
		}
		ratio := c.OverdialRatio
		if ratio < 1 {
			ratio = 1
		}
		limit := int(math.Ceil(ratio * float64(agents)))
		if limit > maxOutstanding {
			limit = maxOutstanding
		}
		return limit
	default:
		return 1
	}
}

// autoAdvance reports whether the mode originates the next call without an
// explicit operator confirmation.
func autoAdvance(c DialCampaign) bool {
	switch c.Mode {
	case ModeProgressive:
		return c.AgentAvailable
	case ModePredictive:
		return c.AgentAvailable
	default:
		return false
	}
}
