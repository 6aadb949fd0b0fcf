package calls

import "time"

// Provider webhook payloads are parsed into these tagged event types at the
// telephony boundary. Unknown or malformed payloads must be rejected there;
// nothing downstream deals with loose maps.

type EventKind string

const (
	EventInitiated EventKind = "initiated"
	EventRinging   EventKind = "ringing"
	EventAnswered  EventKind = "answered"
	EventCompleted EventKind = "completed"
	EventBusy      EventKind = "busy"
	EventNoAnswer  EventKind = "no_answer"
	EventCanceled  EventKind = "canceled"
	EventFailed    EventKind = "failed"
)

// StateFor maps an event kind to the session state it drives.
// ok is false for kinds this machine does not recognize.
func (k EventKind) StateFor() (CallState, bool) {
	switch k {
	case EventInitiated:
		return StateInitiated, true
	case EventRinging:
		return StateRinging, true
	case EventAnswered:
		return StateAnswered, true
	case EventCompleted:
		return StateCompleted, true
	case EventBusy:
		return StateBusy, true
	case EventNoAnswer:
		return StateNoAnswer, true
	case EventCanceled:
		return StateCanceled, true
	case EventFailed:
		return StateFailed, true
	default:
		return "", false
	}
}

// StatusEvent is a call status change reported by the provider.
type StatusEvent struct {
	CallID    string
	Kind      EventKind
	From      string
	To        string
	Direction Direction

	// DurationSeconds is meaningful on completed events only.
	DurationSeconds int

	// CampaignID is carried on status callbacks for campaign-originated
	// calls (attached at origination time).
	CampaignID string

	OccurredAt time.Time
}

// RecordingEvent reports recording progress for a call.
type RecordingEvent struct {
	CallID          string
	RecordingID     string
	URL             string
	Status          string
	DurationSeconds int
}
