package conference

import "time"

// Bridge is a multi-party audio space joining two or more call legs.
//
// Lifecycle invariants:
// - created on the first participant join request
// - RecordingEnabled is fixed at creation
// - destroyed when the last participant exits
type Bridge struct {
	BridgeID string `json:"bridge_id" db:"bridge_id"`

	// ParticipantCallIDs holds the call sessions currently joined.
	ParticipantCallIDs map[string]struct{} `json:"participant_call_ids"`

	RecordingEnabled bool `json:"recording_enabled" db:"recording_enabled"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (b Bridge) clone() Bridge {
	out := b
	out.ParticipantCallIDs = make(map[string]struct{}, len(b.ParticipantCallIDs))
	for id := range b.ParticipantCallIDs {
		out.ParticipantCallIDs[id] = struct{}{}
	}
	return out
}
