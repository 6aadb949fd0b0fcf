package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Actor capture is best-effort; never block a call flow on audit failures.
//
// Storage recommendation (Postgres): table audit_events with an INSERT-only
// policy, partitioned by time for retention.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorAgentID is the authenticated agent causing the event, when the
	// event was operator-triggered.
	ActorAgentID string `json:"actor_agent_id,omitempty" db:"actor_agent_id"`
	ActorRole    string `json:"actor_role,omitempty" db:"actor_role"`

	// Target identifiers (optional, depending on the event type).
	CampaignID string `json:"campaign_id,omitempty" db:"campaign_id"`
	CallID     string `json:"call_id,omitempty" db:"call_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	// EventTypeCampaignAction records start/pause/resume/complete requests.
	EventTypeCampaignAction EventType = "campaign_action"
	// EventTypeVoicemailDrop records an agent-triggered voicemail drop.
	EventTypeVoicemailDrop EventType = "voicemail_drop"
)
