package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"dialer-platform/internal/calls"
	"dialer-platform/internal/conference"
	"dialer-platform/internal/routing"
)

func newWebhookRouter(t *testing.T) (*gin.Engine, *WebhookHandlers) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &WebhookHandlers{
		Machine:  calls.NewStateMachine(calls.NewMemoryStore()),
		Resolver: routing.Resolver{},
		Builder:  testBuilder(),
		Bridges:  conference.NewManager(conference.NewMemoryRepo()),
	}

	r := gin.New()
	r.POST("/webhooks/telephony/voice", h.HandleVoice)
	r.POST("/webhooks/telephony/status", h.HandleStatus)
	r.POST("/webhooks/telephony/recording", h.HandleRecording)
	return r, h
}

func postForm(t *testing.T, r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleVoice_DialsNumber(t *testing.T) {
	r, _ := newWebhookRouter(t)

	w := postForm(t, r, "/webhooks/telephony/voice", url.Values{
		"CallSid": {"CA1"},
		"From":    {"+15550001111"},
		"To":      {"0412345678"},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<Number>+61412345678</Number>") {
		t.Fatalf("unexpected body:\n%s", w.Body.String())
	}
}

func TestHandleVoice_ClientAddress(t *testing.T) {
	r, _ := newWebhookRouter(t)

	w := postForm(t, r, "/webhooks/telephony/voice", url.Values{
		"CallSid": {"CA1"},
		"To":      {"client:agent-7"},
	})

	if !strings.Contains(w.Body.String(), "<Client>agent-7</Client>") {
		t.Fatalf("unexpected body:\n%s", w.Body.String())
	}
}

func TestHandleVoice_EmptyDestinationForwards(t *testing.T) {
	r, _ := newWebhookRouter(t)

	w := postForm(t, r, "/webhooks/telephony/voice", url.Values{"CallSid": {"CA1"}})

	if !strings.Contains(w.Body.String(), "<Number>+15550002222</Number>") {
		t.Fatalf("unexpected body:\n%s", w.Body.String())
	}
}

func TestHandleVoice_ConferenceJoinTracksParticipant(t *testing.T) {
	r, h := newWebhookRouter(t)

	w := postForm(t, r, "/webhooks/telephony/voice?conference=bridge-1", url.Values{
		"CallSid": {"CA1"},
		"To":      {"+15550002222"},
	})

	// The bridge does not exist yet; the join must fail closed with an
	// empty directive rather than park the caller in a dead bridge.
	if !strings.Contains(w.Body.String(), "<Response></Response>") {
		t.Fatalf("expected empty directive:\n%s", w.Body.String())
	}

	bridge, err := h.Bridges.Join(context.Background(), conference.JoinRequest{CallID: "seed"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	w = postForm(t, r, "/webhooks/telephony/voice?conference="+bridge.BridgeID, url.Values{
		"CallSid": {"CA2"},
	})
	if !strings.Contains(w.Body.String(), ">"+bridge.BridgeID+"</Conference>") {
		t.Fatalf("unexpected body:\n%s", w.Body.String())
	}

	got, err := h.Bridges.Get(context.Background(), bridge.BridgeID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, ok := got.ParticipantCallIDs["CA2"]; !ok {
		t.Fatalf("expected CA2 tracked on bridge: %+v", got)
	}

	s, err := h.Machine.Store().Get(context.Background(), "CA2")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.ConferenceID != bridge.BridgeID {
		t.Fatalf("expected bridge back-reference, got %q", s.ConferenceID)
	}
}

func TestHandleVoice_FreshBridgeHonorsRecordFlag(t *testing.T) {
	r, h := newWebhookRouter(t)

	w := postForm(t, r, "/webhooks/telephony/voice?conference=&record=true", url.Values{
		"CallSid": {"CA1"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `record="record-from-answer-dual"`) {
		t.Fatalf("expected recorded conference directive:\n%s", w.Body.String())
	}

	s, err := h.Machine.Store().Get(context.Background(), "CA1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.ConferenceID == "" {
		t.Fatalf("expected allocated bridge back-reference: %+v", s)
	}

	bridge, err := h.Bridges.Get(context.Background(), s.ConferenceID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !bridge.RecordingEnabled {
		t.Fatalf("expected recording enabled on allocation: %+v", bridge)
	}

	// Recording mode is fixed at allocation; a later join cannot flip it.
	postForm(t, r, "/webhooks/telephony/voice?conference="+bridge.BridgeID, url.Values{
		"CallSid": {"CA2"},
	})
	bridge, err = h.Bridges.Get(context.Background(), bridge.BridgeID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !bridge.RecordingEnabled || len(bridge.ParticipantCallIDs) != 2 {
		t.Fatalf("unexpected bridge: %+v", bridge)
	}
}

func TestHandleVoice_MalformedRequestGetsEmptyDirective(t *testing.T) {
	r, _ := newWebhookRouter(t)

	w := postForm(t, r, "/webhooks/telephony/voice", url.Values{"To": {"+15550002222"}})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<Response></Response>") {
		t.Fatalf("expected empty directive:\n%s", w.Body.String())
	}
}

func TestHandleStatus_AlwaysAcks(t *testing.T) {
	r, h := newWebhookRouter(t)

	w := postForm(t, r, "/webhooks/telephony/status?campaign_id=camp1", url.Values{
		"CallSid":    {"CA1"},
		"CallStatus": {"ringing"},
		"Direction":  {"outbound-api"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	s, err := h.Machine.Store().Get(context.Background(), "CA1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.State != calls.StateRinging || s.CampaignID != "camp1" {
		t.Fatalf("unexpected session: %+v", s)
	}

	// Missing CallSid is still acknowledged so the provider stops retrying.
	w = postForm(t, r, "/webhooks/telephony/status", url.Values{"CallStatus": {"ringing"}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for malformed payload, got %d", w.Code)
	}
}

func TestHandleRecording_AttachesMetadata(t *testing.T) {
	r, h := newWebhookRouter(t)

	postForm(t, r, "/webhooks/telephony/status", url.Values{
		"CallSid":    {"CA1"},
		"CallStatus": {"completed"},
	})

	w := postForm(t, r, "/webhooks/telephony/recording", url.Values{
		"CallSid":           {"CA1"},
		"RecordingSid":      {"RE1"},
		"RecordingUrl":      {"https://api.example.com/recordings/RE1"},
		"RecordingStatus":   {"completed"},
		"RecordingDuration": {"17"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	s, err := h.Machine.Store().Get(context.Background(), "CA1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Recording == nil || s.Recording.RecordingID != "RE1" || s.Recording.DurationSeconds != 17 {
		t.Fatalf("unexpected session: %+v", s)
	}
}
