package calls

import (
	"context"
	"errors"
	"time"

	"dialer-platform/pkg/logger"
)

// StateMachine applies provider events to call sessions.
//
// Webhook rules it enforces:
// - duplicate delivery of an already-processed event is a no-op, not an error
// - no event moves a session out of a terminal state
// - a non-initiating event for an unknown CallID creates the session in
//   `initiated` first (webhooks arrive out of order and the store may have
//   been cold-started)
// - unrecognized event kinds are logged and acknowledged without mutation
//
// Listeners fire synchronously after the critical section commits; they must
// stay cheap so webhook acknowledgment remains bounded. Provider-facing side
// effects behind them carry their own timeouts.
type StateMachine struct {
	store Store
	clock func() time.Time

	answerListeners  []AnswerListener
	outcomeListeners []OutcomeListener
}

// AnswerListener observes sessions entering the answered state.
type AnswerListener interface {
	OnCallAnswered(ctx context.Context, s CallSession)
}

// OutcomeListener observes sessions reaching a terminal state.
type OutcomeListener interface {
	OnCallOutcome(ctx context.Context, s CallSession)
}

func NewStateMachine(store Store) *StateMachine {
	return &StateMachine{store: store, clock: time.Now}
}

func (m *StateMachine) OnAnswered(l AnswerListener) {
	m.answerListeners = append(m.answerListeners, l)
}

func (m *StateMachine) OnOutcome(l OutcomeListener) {
	m.outcomeListeners = append(m.outcomeListeners, l)
}

// Store exposes the session store for read paths (reporting, handlers).
func (m *StateMachine) Store() Store { return m.store }

// ApplyStatus folds one status event into the session for ev.CallID and
// returns the resulting session. It returns an error only for malformed
// input or store failures; illegal orderings degrade to logged no-ops.
func (m *StateMachine) ApplyStatus(ctx context.Context, ev StatusEvent) (CallSession, error) {
	log := logger.From(ctx)
	if ev.CallID == "" {
		return CallSession{}, errors.New("calls: status event missing call_id")
	}

	target, known := ev.Kind.StateFor()
	if !known {
		log.Warn("unrecognized call event kind", "call_id", ev.CallID, "kind", string(ev.Kind))
		s, err := m.store.Get(ctx, ev.CallID)
		if errors.Is(err, ErrNotFound) {
			return CallSession{}, nil
		}
		return s, err
	}

	now := m.clock().UTC()
	var transitioned bool

	out, err := m.store.Mutate(ctx, ev.CallID, func(s *CallSession, created bool) error {
		if created {
			initSession(s, ev, now)
		}
		switch {
		case s.State.Terminal():
			// Late or duplicate delivery; the session already settled.
		case s.State == target:
			// Duplicate of an already-processed event.
		case CanTransition(s.State, target):
			s.State = target
			s.LastEventAt = now
			if target.Terminal() {
				s.CompletedAt = &now
				if ev.Kind == EventCompleted {
					d := ev.DurationSeconds
					s.DurationSeconds = &d
				}
			}
			transitioned = true
		default:
			log.Warn("out-of-order call event ignored",
				"call_id", ev.CallID, "state", string(s.State), "event", string(ev.Kind))
		}
		return nil
	})
	if err != nil {
		return CallSession{}, err
	}

	if transitioned {
		if target == StateAnswered {
			for _, l := range m.answerListeners {
				l.OnCallAnswered(ctx, out)
			}
		}
		if target.Terminal() {
			for _, l := range m.outcomeListeners {
				l.OnCallOutcome(ctx, out)
			}
		}
	}
	return out, nil
}

// CreateOutbound registers a freshly originated campaign call. Calling it
// again for the same CallID returns the existing session unchanged.
func (m *StateMachine) CreateOutbound(ctx context.Context, callID, campaignID, from, to string) (CallSession, error) {
	if callID == "" {
		return CallSession{}, errors.New("calls: call_id required")
	}
	now := m.clock().UTC()
	return m.store.Mutate(ctx, callID, func(s *CallSession, created bool) error {
		if !created {
			return nil
		}
		s.Direction = DirectionOutbound
		s.From = from
		s.To = to
		s.CampaignID = campaignID
		s.State = StateInitiated
		s.CreatedAt = now
		s.LastEventAt = now
		return nil
	})
}

// MarkRecording moves an answered session into the recording sub-state.
// Any other state is left untouched.
func (m *StateMachine) MarkRecording(ctx context.Context, callID string) (CallSession, error) {
	now := m.clock().UTC()
	return m.store.Mutate(ctx, callID, func(s *CallSession, created bool) error {
		if created {
			return ErrNotFound
		}
		if s.State == StateAnswered {
			s.State = StateRecording
			s.LastEventAt = now
		}
		return nil
	})
}

// AttachRecording stores completed recording metadata on the session.
// Recording callbacks routinely arrive after the call completed, so terminal
// sessions accept metadata; only the state graph is frozen.
func (m *StateMachine) AttachRecording(ctx context.Context, ev RecordingEvent) (CallSession, error) {
	if ev.CallID == "" {
		return CallSession{}, errors.New("calls: recording event missing call_id")
	}
	if ev.Status != RecordingStatusCompleted {
		logger.From(ctx).Debug("ignoring non-final recording status",
			"call_id", ev.CallID, "status", ev.Status)
		s, err := m.store.Get(ctx, ev.CallID)
		if errors.Is(err, ErrNotFound) {
			return CallSession{}, nil
		}
		return s, err
	}
	now := m.clock().UTC()
	return m.store.Mutate(ctx, ev.CallID, func(s *CallSession, created bool) error {
		if created {
			s.State = StateInitiated
			s.CreatedAt = now
		}
		s.Recording = &Recording{
			RecordingID:     ev.RecordingID,
			URL:             ev.URL,
			DurationSeconds: ev.DurationSeconds,
			Status:          ev.Status,
		}
		s.LastEventAt = now
		return nil
	})
}

// MarkVoicemailDropped flags the session so its terminal outcome classifies
// as a voicemail.
func (m *StateMachine) MarkVoicemailDropped(ctx context.Context, callID string) (CallSession, error) {
	now := m.clock().UTC()
	return m.store.Mutate(ctx, callID, func(s *CallSession, created bool) error {
		if created {
			return ErrNotFound
		}
		s.VoicemailDropped = true
		s.LastEventAt = now
		return nil
	})
}

// SetConference records or clears the bridge back-reference on a session.
// The voice webhook is the first event observed for an inbound call, so an
// unknown session is created in `initiated` rather than rejected.
func (m *StateMachine) SetConference(ctx context.Context, callID, conferenceID string) (CallSession, error) {
	if callID == "" {
		return CallSession{}, errors.New("calls: call_id required")
	}
	now := m.clock().UTC()
	return m.store.Mutate(ctx, callID, func(s *CallSession, created bool) error {
		if created {
			s.State = StateInitiated
			s.Direction = DirectionInbound
			s.CreatedAt = now
		}
		s.ConferenceID = conferenceID
		s.LastEventAt = now
		return nil
	})
}

func initSession(s *CallSession, ev StatusEvent, now time.Time) {
	s.State = StateInitiated
	s.From = ev.From
	s.To = ev.To
	s.Direction = ev.Direction
	if s.Direction == "" {
		s.Direction = DirectionInbound
	}
	s.CampaignID = ev.CampaignID
	s.CreatedAt = now
	s.LastEventAt = now
}
