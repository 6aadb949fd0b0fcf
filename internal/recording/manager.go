package recording

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dialer-platform/internal/audit"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/telephony"
	"dialer-platform/pkg/logger"
)

var (
	ErrCallNotLive     = errors.New("recording: call is not in progress")
	ErrInvalidArgument = errors.New("recording: invalid argument")
)

// Manager reacts to session transitions: it starts recording once a call is
// answered and can destructively replace a live call's directive with a
// voicemail drop.
//
// It registers as an answer listener on the state machine. Recording start
// is best-effort: a rejected start leaves the session answered and the call
// proceeds unrecorded.
type Manager struct {
	machine  *calls.StateMachine
	provider telephony.Provider
	builder  telephony.DirectiveBuilder
	auditor  *audit.Service

	// timeout bounds provider calls made off the webhook path.
	timeout time.Duration
}

func NewManager(machine *calls.StateMachine, provider telephony.Provider, builder telephony.DirectiveBuilder, auditor *audit.Service, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Manager{
		machine:  machine,
		provider: provider,
		builder:  builder,
		auditor:  auditor,
		timeout:  timeout,
	}
}

// OnCallAnswered implements calls.AnswerListener.
func (m *Manager) OnCallAnswered(ctx context.Context, s calls.CallSession) {
	log := logger.From(ctx)

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	recID, err := m.provider.StartRecording(callCtx, s.CallID)
	if err != nil {
		log.Warn("recording start rejected", "call_id", s.CallID, "err", err)
		return
	}
	if _, err := m.machine.MarkRecording(ctx, s.CallID); err != nil {
		log.Warn("recording sub-state update failed", "call_id", s.CallID, "err", err)
		return
	}
	log.Debug("recording started", "call_id", s.CallID, "recording_id", recID)
}

// DropVoicemail plays message into the live call and terminates it. The
// directive replaces the call's current one; the call does not return to its
// previous flow. The terminal webhook that follows settles the session.
func (m *Manager) DropVoicemail(ctx context.Context, callID, message, agentID, role string) error {
	if callID == "" || message == "" {
		return ErrInvalidArgument
	}
	s, err := m.machine.Store().Get(ctx, callID)
	if err != nil {
		return err
	}
	if !s.State.InProgress() {
		return fmt.Errorf("%w: %s is %s", ErrCallNotLive, callID, s.State)
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.provider.RedirectCall(callCtx, callID, m.builder.VoicemailDrop(message)); err != nil {
		return err
	}

	if _, err := m.machine.MarkVoicemailDropped(ctx, callID); err != nil {
		logger.From(ctx).Warn("voicemail flag update failed", "call_id", callID, "err", err)
	}
	if m.auditor != nil {
		if err := m.auditor.LogVoicemailDrop(ctx, callID, agentID, role); err != nil {
			logger.From(ctx).Warn("voicemail audit append failed", "call_id", callID, "err", err)
		}
	}
	return nil
}
