package conference

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("conference: bridge not found")
	ErrInvalidArgument = errors.New("conference: invalid argument")
)

// Repository is the persistence contract for bridges. Implementations must
// be safe for concurrent use.
type Repository interface {
	Get(ctx context.Context, bridgeID string) (Bridge, error)
	Save(ctx context.Context, b Bridge) error
	Delete(ctx context.Context, bridgeID string) error
}

// Manager owns bridge lifecycle. Join and Leave are serialized through the
// manager so the last-exit teardown cannot race a concurrent join.
type Manager struct {
	mu    sync.Mutex
	repo  Repository
	clock func() time.Time
	newID func() string
}

func NewManager(repo Repository) *Manager {
	return &Manager{repo: repo, clock: time.Now, newID: uuid.NewString}
}

// JoinRequest adds a call leg to a bridge. An empty BridgeID allocates a new
// bridge; RecordingEnabled only applies at allocation time.
type JoinRequest struct {
	BridgeID         string
	CallID           string
	RecordingEnabled bool
}

func (m *Manager) Join(ctx context.Context, req JoinRequest) (Bridge, error) {
	if req.CallID == "" {
		return Bridge{}, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var b Bridge
	if req.BridgeID == "" {
		b = Bridge{
			BridgeID:           m.newID(),
			ParticipantCallIDs: map[string]struct{}{},
			RecordingEnabled:   req.RecordingEnabled,
			CreatedAt:          m.clock().UTC(),
		}
	} else {
		existing, err := m.repo.Get(ctx, req.BridgeID)
		if err != nil {
			return Bridge{}, err
		}
		b = existing
	}

	b.ParticipantCallIDs[req.CallID] = struct{}{}
	if err := m.repo.Save(ctx, b); err != nil {
		return Bridge{}, err
	}
	return b.clone(), nil
}

// Leave removes a call leg. destroyed reports whether this was the last
// participant and the bridge was torn down.
func (m *Manager) Leave(ctx context.Context, bridgeID, callID string) (destroyed bool, err error) {
	if bridgeID == "" || callID == "" {
		return false, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.repo.Get(ctx, bridgeID)
	if err != nil {
		return false, err
	}
	delete(b.ParticipantCallIDs, callID)

	if len(b.ParticipantCallIDs) == 0 {
		if err := m.repo.Delete(ctx, bridgeID); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, m.repo.Save(ctx, b)
}

func (m *Manager) Get(ctx context.Context, bridgeID string) (Bridge, error) {
	if bridgeID == "" {
		return Bridge{}, ErrInvalidArgument
	}
	b, err := m.repo.Get(ctx, bridgeID)
	if err != nil {
		return Bridge{}, err
	}
	return b.clone(), nil
}
