package calls

import "time"

// CallSession tracks a single provider call leg through its lifecycle.
//
// Lifecycle invariant: State only moves along the transition graph below and
// never leaves a terminal state. A session is created exactly once per
// CallID, on the first event observed for that identifier.
//
// NOTE: This is a domain model only. Provider-specific payloads stay in the
// telephony adapters; the provider call identifier is the primary key here
// because every webhook is keyed by it.

type CallSession struct {
	CallID    string    `json:"call_id" db:"call_id"`
	Direction Direction `json:"direction" db:"direction"`

	From string `json:"from" db:"from_address"`
	To   string `json:"to" db:"to_address"`

	State CallState `json:"state" db:"state"`

	// CampaignID is a weak back-reference; empty for calls that do not
	// belong to a dial campaign.
	CampaignID string `json:"campaign_id,omitempty" db:"campaign_id"`

	// ConferenceID is set while the leg is joined to a bridge.
	ConferenceID string `json:"conference_id,omitempty" db:"conference_id"`

	Recording *Recording `json:"recording,omitempty"`

	// VoicemailDropped marks sessions whose live directive was replaced by a
	// voicemail drop; the terminal outcome classifies as voicemail.
	VoicemailDropped bool `json:"voicemail_dropped,omitempty" db:"voicemail_dropped"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	LastEventAt time.Time  `json:"last_event_at" db:"last_event_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	// DurationSeconds is filled from the terminal event.
	DurationSeconds *int `json:"duration_seconds,omitempty" db:"duration_seconds"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type CallState string

const (
	StateInitiated CallState = "initiated"
	StateRinging   CallState = "ringing"
	StateAnswered  CallState = "answered"
	// StateRecording is a sub-state of "in progress"; it is entered by the
	// recording manager, not reported by the provider.
	StateRecording CallState = "recording"

	StateCompleted CallState = "completed"
	StateBusy      CallState = "busy"
	StateNoAnswer  CallState = "no_answer"
	StateCanceled  CallState = "canceled"
	StateFailed    CallState = "failed"
)

// Terminal reports whether no further transition is legal from s.
func (s CallState) Terminal() bool {
	switch s {
	case StateCompleted, StateBusy, StateNoAnswer, StateCanceled, StateFailed:
		return true
	default:
		return false
	}
}

// InProgress reports whether the call is answered and still live.
func (s CallState) InProgress() bool {
	return s == StateAnswered || s == StateRecording
}

// CanTransition reports whether from -> to is a legal move.
// Any non-terminal state may move to a terminal state.
func CanTransition(from, to CallState) bool {
	if from.Terminal() {
		return false
	}
	if to.Terminal() {
		return true
	}
	switch from {
	case StateInitiated:
		return to == StateRinging || to == StateAnswered
	case StateRinging:
		return to == StateAnswered
	case StateAnswered:
		return to == StateRecording
	case StateRecording:
		return false
	default:
		return false
	}
}

// Recording holds provider recording metadata attached to a session.
type Recording struct {
	RecordingID     string `json:"recording_id" db:"recording_id"`
	URL             string `json:"url" db:"url"`
	DurationSeconds int    `json:"duration_seconds" db:"duration_seconds"`
	Status          string `json:"status" db:"status"`
}

const RecordingStatusCompleted = "completed"
