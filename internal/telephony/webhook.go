package telephony

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dialer-platform/internal/calls"
)

var ErrMissingCallID = errors.New("telephony: webhook missing CallSid")

// Status values the provider posts that all mean "the call is live".
// Everything else maps one-to-one onto an event kind; unknown statuses pass
// through so the state machine can log and acknowledge them.
func eventKindFor(status string) calls.EventKind {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "queued", "initiated":
		return calls.EventInitiated
	case "ringing":
		return calls.EventRinging
	case "in-progress", "answered":
		return calls.EventAnswered
	case "completed":
		return calls.EventCompleted
	case "busy":
		return calls.EventBusy
	case "no-answer":
		return calls.EventNoAnswer
	case "canceled":
		return calls.EventCanceled
	case "failed":
		return calls.EventFailed
	default:
		return calls.EventKind(status)
	}
}

// ParseStatusCallback decodes a provider status webhook. campaignID comes
// from the callback URL query, attached at origination time.
func ParseStatusCallback(form url.Values, campaignID string) (calls.StatusEvent, error) {
	callID := form.Get("CallSid")
	if callID == "" {
		return calls.StatusEvent{}, ErrMissingCallID
	}

	direction := calls.DirectionInbound
	if strings.HasPrefix(form.Get("Direction"), "outbound") {
		direction = calls.DirectionOutbound
	}

	duration := 0
	if raw := form.Get("CallDuration"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			duration = n
		}
	}

	return calls.StatusEvent{
		CallID:          callID,
		Kind:            eventKindFor(form.Get("CallStatus")),
		From:            form.Get("From"),
		To:              form.Get("To"),
		Direction:       direction,
		DurationSeconds: duration,
		CampaignID:      campaignID,
		OccurredAt:      time.Now().UTC(),
	}, nil
}

// ParseRecordingCallback decodes a recording status webhook.
func ParseRecordingCallback(form url.Values) (calls.RecordingEvent, error) {
	callID := form.Get("CallSid")
	if callID == "" {
		return calls.RecordingEvent{}, ErrMissingCallID
	}

	duration := 0
	if raw := form.Get("RecordingDuration"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			duration = n
		}
	}

	return calls.RecordingEvent{
		CallID:          callID,
		RecordingID:     form.Get("RecordingSid"),
		URL:             form.Get("RecordingUrl"),
		Status:          form.Get("RecordingStatus"),
		DurationSeconds: duration,
	}, nil
}

// VoiceRequest is the decoded voice-control webhook, posted when the
// provider needs the next directive for a call.
type VoiceRequest struct {
	CallID string
	From   string
	To     string

	// JoinBridge is set when the voice URL query carries a `conference`
	// parameter. An empty BridgeID with JoinBridge set asks for a fresh
	// bridge; a non-empty BridgeID joins an existing one.
	JoinBridge bool
	BridgeID   string

	// RecordBridge asks a freshly allocated bridge to record; it has no
	// effect on joins into an existing bridge.
	RecordBridge bool
}

func ParseVoiceRequest(form url.Values, query url.Values) (VoiceRequest, error) {
	callID := form.Get("CallSid")
	if callID == "" {
		return VoiceRequest{}, ErrMissingCallID
	}
	_, joinBridge := query["conference"]
	return VoiceRequest{
		CallID:       callID,
		From:         form.Get("From"),
		To:           form.Get("To"),
		JoinBridge:   joinBridge,
		BridgeID:     query.Get("conference"),
		RecordBridge: query.Get("record") == "true",
	}, nil
}
