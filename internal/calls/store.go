package calls

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("calls: session not found")

// Store is the single point of truth for call sessions.
//
// Concurrency contract: Mutate serializes all writes for one CallID (the
// provider retries webhooks, so concurrent deliveries for the same call are
// expected) while different CallIDs proceed in parallel. Reads may observe a
// relaxed snapshot.
type Store interface {
	Get(ctx context.Context, callID string) (CallSession, error)

	// Mutate runs fn inside the per-call critical section. When no session
	// exists for callID the store hands fn a blank session with the CallID
	// set and created=true; the session is persisted only if fn returns nil.
	Mutate(ctx context.Context, callID string, fn func(s *CallSession, created bool) error) (CallSession, error)

	// ListByCampaign returns sessions back-referencing campaignID, for
	// replay-based statistics derivation.
	ListByCampaign(ctx context.Context, campaignID string) ([]CallSession, error)
}

// MemoryStore keeps sessions in process memory with one lock per CallID.
// Production deployments use the Postgres store; this one backs tests and
// single-node development.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu sync.Mutex
	s  CallSession
	// set once the first successful Mutate persists the session
	exists bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*sessionEntry{}}
}

func (st *MemoryStore) entry(callID string) *sessionEntry {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.sessions[callID]
	if !ok {
		e = &sessionEntry{s: CallSession{CallID: callID}}
		st.sessions[callID] = e
	}
	return e
}

func (st *MemoryStore) Get(ctx context.Context, callID string) (CallSession, error) {
	if callID == "" {
		return CallSession{}, ErrNotFound
	}
	st.mu.Lock()
	e, ok := st.sessions[callID]
	st.mu.Unlock()
	if !ok {
		return CallSession{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.exists {
		return CallSession{}, ErrNotFound
	}
	return cloneSession(e.s), nil
}

func (st *MemoryStore) Mutate(ctx context.Context, callID string, fn func(s *CallSession, created bool) error) (CallSession, error) {
	if callID == "" {
		return CallSession{}, errors.New("calls: call_id required")
	}
	e := st.entry(callID)

	e.mu.Lock()
	defer e.mu.Unlock()

	work := cloneSession(e.s)
	created := !e.exists
	if err := fn(&work, created); err != nil {
		return CallSession{}, err
	}
	work.CallID = callID
	e.s = work
	e.exists = true
	return cloneSession(work), nil
}

func (st *MemoryStore) ListByCampaign(ctx context.Context, campaignID string) ([]CallSession, error) {
	if campaignID == "" {
		return nil, errors.New("calls: campaign_id required")
	}
	st.mu.Lock()
	entries := make([]*sessionEntry, 0, len(st.sessions))
	for _, e := range st.sessions {
		entries = append(entries, e)
	}
	st.mu.Unlock()

	out := make([]CallSession, 0)
	for _, e := range entries {
		e.mu.Lock()
		if e.exists && e.s.CampaignID == campaignID {
			out = append(out, cloneSession(e.s))
		}
		e.mu.Unlock()
	}
	return out, nil
}

func cloneSession(s CallSession) CallSession {
	out := s
	if s.Recording != nil {
		rec := *s.Recording
		out.Recording = &rec
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	if s.DurationSeconds != nil {
		d := *s.DurationSeconds
		out.DurationSeconds = &d
	}
	return out
}
