package conference

import (
	"context"
	"errors"
	"testing"

	"dialer-platform/internal/calls"
)

func joinLeg(t *testing.T, m *Manager, machine *calls.StateMachine, bridgeID, callID string) Bridge {
	t.Helper()
	ctx := context.Background()

	b, err := m.Join(ctx, JoinRequest{BridgeID: bridgeID, CallID: callID})
	if err != nil {
		t.Fatalf("join %s: %v", callID, err)
	}
	if _, err := machine.ApplyStatus(ctx, calls.StatusEvent{CallID: callID, Kind: calls.EventAnswered}); err != nil {
		t.Fatalf("answer %s: %v", callID, err)
	}
	if _, err := machine.SetConference(ctx, callID, b.BridgeID); err != nil {
		t.Fatalf("back-reference %s: %v", callID, err)
	}
	return b
}

func TestCallEnd_LastTerminalLegDestroysBridge(t *testing.T) {
	m := newTestManager()
	machine := calls.NewStateMachine(calls.NewMemoryStore())
	machine.OnOutcome(&CallEndListener{Bridges: m, Calls: machine})
	ctx := context.Background()

	b := joinLeg(t, m, machine, "", "CA1")
	joinLeg(t, m, machine, b.BridgeID, "CA2")

	if _, err := machine.ApplyStatus(ctx, calls.StatusEvent{CallID: "CA1", Kind: calls.EventCompleted, DurationSeconds: 30}); err != nil {
		t.Fatalf("complete CA1: %v", err)
	}

	got, err := m.Get(ctx, b.BridgeID)
	if err != nil {
		t.Fatalf("bridge should survive first exit: %v", err)
	}
	if len(got.ParticipantCallIDs) != 1 {
		t.Fatalf("expected 1 participant after first exit, got %d", len(got.ParticipantCallIDs))
	}
	s, err := machine.Store().Get(ctx, "CA1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.ConferenceID != "" {
		t.Fatalf("expected back-reference cleared, got %q", s.ConferenceID)
	}

	if _, err := machine.ApplyStatus(ctx, calls.StatusEvent{CallID: "CA2", Kind: calls.EventFailed}); err != nil {
		t.Fatalf("fail CA2: %v", err)
	}
	if _, err := m.Get(ctx, b.BridgeID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected bridge destroyed after last exit, got %v", err)
	}
}

func TestCallEnd_IgnoresSessionsOutsideBridges(t *testing.T) {
	m := newTestManager()
	machine := calls.NewStateMachine(calls.NewMemoryStore())
	machine.OnOutcome(&CallEndListener{Bridges: m, Calls: machine})
	ctx := context.Background()

	if _, err := machine.ApplyStatus(ctx, calls.StatusEvent{CallID: "CA1", Kind: calls.EventCompleted}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	s, err := machine.Store().Get(ctx, "CA1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.State != calls.StateCompleted {
		t.Fatalf("unexpected state %s", s.State)
	}
}
