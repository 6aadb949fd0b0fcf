package conference

import (
	"context"
	"errors"

	"dialer-platform/internal/calls"
	"dialer-platform/pkg/logger"
)

// CallEndListener evicts a terminated call leg from its bridge. Registered
// as an outcome listener on the call state machine, so bridge membership
// follows the provider event flow: when the last leg of a bridge reaches a
// terminal state the bridge is torn down.
type CallEndListener struct {
	Bridges *Manager
	Calls   *calls.StateMachine
}

func (l *CallEndListener) OnCallOutcome(ctx context.Context, s calls.CallSession) {
	if s.ConferenceID == "" {
		return
	}
	log := logger.From(ctx)

	destroyed, err := l.Bridges.Leave(ctx, s.ConferenceID, s.CallID)
	switch {
	case errors.Is(err, ErrNotFound):
		// Another leg's exit already tore the bridge down.
	case err != nil:
		log.Error("bridge leave failed",
			"call_id", s.CallID, "bridge_id", s.ConferenceID, "err", err)
		return
	case destroyed:
		log.Info("bridge destroyed", "bridge_id", s.ConferenceID)
	}

	if _, err := l.Calls.SetConference(ctx, s.CallID, ""); err != nil {
		log.Warn("bridge back-reference clear failed", "call_id", s.CallID, "err", err)
	}
}
