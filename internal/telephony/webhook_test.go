package telephony

import (
	"errors"
	"net/url"
	"testing"

	"dialer-platform/internal/calls"
)

func TestParseStatusCallback(t *testing.T) {
	form := url.Values{
		"CallSid":      {"CA123"},
		"CallStatus":   {"completed"},
		"From":         {"+15550001111"},
		"To":           {"+15550002222"},
		"Direction":    {"outbound-api"},
		"CallDuration": {"42"},
	}

	ev, err := ParseStatusCallback(form, "camp1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ev.CallID != "CA123" || ev.Kind != calls.EventCompleted {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Direction != calls.DirectionOutbound || ev.DurationSeconds != 42 || ev.CampaignID != "camp1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestParseStatusCallback_StatusMapping(t *testing.T) {
	tests := []struct {
		status string
		want   calls.EventKind
	}{
		{"queued", calls.EventInitiated},
		{"initiated", calls.EventInitiated},
		{"ringing", calls.EventRinging},
		{"in-progress", calls.EventAnswered},
		{"answered", calls.EventAnswered},
		{"busy", calls.EventBusy},
		{"no-answer", calls.EventNoAnswer},
		{"canceled", calls.EventCanceled},
		{"failed", calls.EventFailed},
		{"transferring", calls.EventKind("transferring")},
	}
	for _, tt := range tests {
		ev, err := ParseStatusCallback(url.Values{"CallSid": {"CA1"}, "CallStatus": {tt.status}}, "")
		if err != nil {
			t.Fatalf("%s: unexpected err: %v", tt.status, err)
		}
		if ev.Kind != tt.want {
			t.Fatalf("%s: got kind %q, want %q", tt.status, ev.Kind, tt.want)
		}
	}
}

func TestParseStatusCallback_MissingCallSid(t *testing.T) {
	if _, err := ParseStatusCallback(url.Values{"CallStatus": {"ringing"}}, ""); !errors.Is(err, ErrMissingCallID) {
		t.Fatalf("expected ErrMissingCallID, got %v", err)
	}
}

func TestParseRecordingCallback(t *testing.T) {
	form := url.Values{
		"CallSid":           {"CA123"},
		"RecordingSid":      {"RE456"},
		"RecordingUrl":      {"https://api.example.com/recordings/RE456"},
		"RecordingStatus":   {"completed"},
		"RecordingDuration": {"31"},
	}

	ev, err := ParseRecordingCallback(form)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ev.RecordingID != "RE456" || ev.Status != "completed" || ev.DurationSeconds != 31 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestParseVoiceRequest(t *testing.T) {
	form := url.Values{"CallSid": {"CA123"}, "From": {"+15550001111"}, "To": {"client:agent-7"}}
	query := url.Values{"conference": {"bridge-1"}}

	req, err := ParseVoiceRequest(form, query)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if req.CallID != "CA123" || req.To != "client:agent-7" || req.BridgeID != "bridge-1" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if !req.JoinBridge || req.RecordBridge {
		t.Fatalf("unexpected bridge flags: %+v", req)
	}

	if _, err := ParseVoiceRequest(url.Values{}, nil); !errors.Is(err, ErrMissingCallID) {
		t.Fatalf("expected ErrMissingCallID, got %v", err)
	}
}

func TestParseVoiceRequest_FreshRecordedBridge(t *testing.T) {
	form := url.Values{"CallSid": {"CA123"}}
	query := url.Values{"conference": {""}, "record": {"true"}}

	req, err := ParseVoiceRequest(form, query)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !req.JoinBridge || req.BridgeID != "" || !req.RecordBridge {
		t.Fatalf("unexpected request: %+v", req)
	}

	// No conference parameter at all means no bridge involvement.
	req, err = ParseVoiceRequest(form, url.Values{"record": {"true"}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if req.JoinBridge {
		t.Fatalf("expected no bridge join: %+v", req)
	}
}
