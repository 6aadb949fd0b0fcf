package conference

import (
	"context"
	"sync"
)

// MemoryRepo keeps bridges in process memory, for tests and single-node
// development.
type MemoryRepo struct {
	mu      sync.Mutex
	bridges map[string]Bridge
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{bridges: map[string]Bridge{}}
}

func (r *MemoryRepo) Get(ctx context.Context, bridgeID string) (Bridge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bridges[bridgeID]
	if !ok {
		return Bridge{}, ErrNotFound
	}
	return b.clone(), nil
}

func (r *MemoryRepo) Save(ctx context.Context, b Bridge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bridges[b.BridgeID] = b.clone()
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, bridgeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bridges, bridgeID)
	return nil
}
