package campaign

import "time"

type Mode string

const (
	ModePreview     Mode = "preview"
	ModeProgressive Mode = "progressive"
	ModePredictive  Mode = "predictive"
)

func (m Mode) Valid() bool {
	switch m {
	case ModePreview, ModeProgressive, ModePredictive:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusCreated   Status = "created"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// CanTransition reports whether an explicit operator action may move a
// campaign from one status to another. Completion from paused is disallowed;
// the operator must resume first.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusCreated:
		return to == StatusActive
	case StatusActive:
		return to == StatusPaused || to == StatusCompleted
	case StatusPaused:
		return to == StatusActive
	default:
		return false
	}
}

// Contact is one entry of a campaign's dial queue.
type Contact struct {
	Name   string `json:"name,omitempty"`
	Number string `json:"number"`
}

type Goals struct {
	TargetCalls        int `json:"targetCalls"`
	TargetConnects     int `json:"targetConnects"`
	TargetAppointments int `json:"targetAppointments"`
}

// Statistics are maintained incrementally as sessions settle. They stay
// derivable by replaying completed sessions for the campaign; the replay
// lives in the reporting package.
type Statistics struct {
	TotalDialed  int `json:"totalDialed"`
	Connected    int `json:"connected"`
	Voicemails   int `json:"voicemails"`
	NoAnswer     int `json:"noAnswer"`
	Failed       int `json:"failed"`
	Appointments int `json:"appointments"`

	// AvgCallDurationSeconds is a running mean over connected calls.
	AvgCallDurationSeconds float64 `json:"avgCallDurationSeconds"`

	// ConversionRate is appointments over totalDialed.
	ConversionRate float64 `json:"conversionRate"`
}

// DialCampaign is an outbound power-dialing run over a fixed contact queue,
// bound to a single agent for its lifetime.
type DialCampaign struct {
	CampaignID string `json:"campaignId"`
	Name       string `json:"name"`
	Mode       Mode   `json:"mode"`
	Status     Status `json:"status"`

	// ContactQueue is consumed front to back and never reordered mid-run.
	ContactQueue []Contact `json:"contactQueue"`

	// Cursor indexes the next contact to dial. It advances exactly when a
	// dial attempt has been issued for the contact at that position and
	// survives pause/resume.
	Cursor int `json:"cursor"`

	Goals      Goals      `json:"goals"`
	Statistics Statistics `json:"statistics"`

	AgentID        string `json:"agentId"`
	AgentAvailable bool   `json:"agentAvailable"`

	// OverdialRatio is the predictive-mode multiplier over available agents.
	// Ignored in other modes.
	OverdialRatio float64 `json:"overdialRatio,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Outstanding is the number of originated calls that have not settled yet.
// Cursor counts issued dials, TotalDialed counts settled ones.
func (c DialCampaign) Outstanding() int {
	return c.Cursor - c.Statistics.TotalDialed
}

// QueueExhausted reports whether every contact has been dialed.
func (c DialCampaign) QueueExhausted() bool {
	return c.Cursor >= len(c.ContactQueue)
}

func (c DialCampaign) clone() DialCampaign {
	out := c
	out.ContactQueue = make([]Contact, len(c.ContactQueue))
	copy(out.ContactQueue, c.ContactQueue)
	return out
}
