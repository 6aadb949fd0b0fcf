package campaign

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound      = errors.New("campaign: not found")
	ErrAlreadyExists = errors.New("campaign: already exists")
)

// Repository is the persistence contract for campaigns.
//
// Mutate runs fn inside a per-campaign critical section so cursor advances
// cannot race. MutateOutcome additionally records (campaignID, callID) in an
// append-only outcome ledger and skips fn when the pair was already settled,
// which is what keeps duplicate terminal webhooks from double-counting.
type Repository interface {
	Create(ctx context.Context, c DialCampaign) error
	Get(ctx context.Context, campaignID string) (DialCampaign, error)
	List(ctx context.Context) ([]DialCampaign, error)
	Mutate(ctx context.Context, campaignID string, fn func(c *DialCampaign) error) (DialCampaign, error)
	MutateOutcome(ctx context.Context, campaignID, callID string, fn func(c *DialCampaign) error) (DialCampaign, bool, error)
}

type campaignEntry struct {
	mu       sync.Mutex
	c        DialCampaign
	outcomes map[string]struct{}
}

// MemoryRepo keeps campaigns in process memory. Durable deployments use the
// Postgres repository; this one backs tests and local runs.
type MemoryRepo struct {
	mu      sync.Mutex
	entries map[string]*campaignEntry
	order   []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{entries: map[string]*campaignEntry{}}
}

func (r *MemoryRepo) Create(ctx context.Context, c DialCampaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[c.CampaignID]; ok {
		return ErrAlreadyExists
	}
	r.entries[c.CampaignID] = &campaignEntry{c: c.clone(), outcomes: map[string]struct{}{}}
	r.order = append(r.order, c.CampaignID)
	return nil
}

func (r *MemoryRepo) entry(campaignID string) (*campaignEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[campaignID]
	return e, ok
}

func (r *MemoryRepo) Get(ctx context.Context, campaignID string) (DialCampaign, error) {
	e, ok := r.entry(campaignID)
	if !ok {
		return DialCampaign{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.c.clone(), nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]DialCampaign, error) {
	r.mu.Lock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	r.mu.Unlock()

	out := make([]DialCampaign, 0, len(ids))
	for _, id := range ids {
		c, err := r.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepo) Mutate(ctx context.Context, campaignID string, fn func(c *DialCampaign) error) (DialCampaign, error) {
	e, ok := r.entry(campaignID)
	if !ok {
		return DialCampaign{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	work := e.c.clone()
	if err := fn(&work); err != nil {
		return DialCampaign{}, err
	}
	e.c = work
	return work.clone(), nil
}

func (r *MemoryRepo) MutateOutcome(ctx context.Context, campaignID, callID string, fn func(c *DialCampaign) error) (DialCampaign, bool, error) {
	e, ok := r.entry(campaignID)
	if !ok {
		return DialCampaign{}, false, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, done := e.outcomes[callID]; done {
		return e.c.clone(), false, nil
	}

	work := e.c.clone()
	if err := fn(&work); err != nil {
		return DialCampaign{}, false, err
	}
	e.c = work
	e.outcomes[callID] = struct{}{}
	return work.clone(), true, nil
}
