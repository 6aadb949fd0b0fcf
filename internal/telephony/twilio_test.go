package telephony

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dialer-platform/internal/config"
)

func restProvider(t *testing.T, handler http.HandlerFunc) (*RESTProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := NewRESTProvider(config.TelephonyConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		APIBaseURL: srv.URL,
	}, 0)
	return p, srv
}

func TestOriginateCall_PostsFormWithCampaignTag(t *testing.T) {
	var gotPath, gotTo, gotURL, gotStatus string
	var gotAuth bool

	p, _ := restProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, pass, ok := r.BasicAuth()
		gotAuth = ok && pass == "token"
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotTo = r.PostForm.Get("To")
		gotURL = r.PostForm.Get("Url")
		gotStatus = r.PostForm.Get("StatusCallback")
		w.Write([]byte(`{"sid":"CA123"}`))
	})

	res, err := p.OriginateCall(context.Background(), OriginateRequest{
		To:                "+15550000001",
		From:              "+15550001111",
		VoiceURL:          "https://dialer.example.com/webhooks/telephony/voice",
		StatusCallbackURL: "https://dialer.example.com/webhooks/telephony/status",
		CampaignID:        "camp1",
		Record:            true,
	})
	if err != nil {
		t.Fatalf("originate: %v", err)
	}
	if res.CallID != "CA123" {
		t.Fatalf("unexpected call id %q", res.CallID)
	}
	if gotPath != "/Accounts/AC123/Calls.json" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if !gotAuth {
		t.Fatalf("expected basic auth")
	}
	if gotTo != "+15550000001" {
		t.Fatalf("unexpected To %q", gotTo)
	}
	if gotURL != "https://dialer.example.com/webhooks/telephony/voice?campaign_id=camp1" {
		t.Fatalf("campaign tag missing from voice url: %q", gotURL)
	}
	if gotStatus != "https://dialer.example.com/webhooks/telephony/status?campaign_id=camp1" {
		t.Fatalf("campaign tag missing from status url: %q", gotStatus)
	}
}

func TestOriginateCall_RejectionSurfacesProviderError(t *testing.T) {
	p, _ := restProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid number"}`))
	})

	_, err := p.OriginateCall(context.Background(), OriginateRequest{To: "+1", From: "+2"})
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.Op != "originate" || provErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected provider error: %+v", provErr)
	}
}

func TestEndCall_PostsCompletedStatus(t *testing.T) {
	var gotStatus, gotPath string
	p, _ := restProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotStatus = r.PostForm.Get("Status")
		w.Write([]byte(`{}`))
	})

	if err := p.EndCall(context.Background(), "CA1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if gotPath != "/Accounts/AC123/Calls/CA1.json" || gotStatus != "completed" {
		t.Fatalf("unexpected request: path=%q status=%q", gotPath, gotStatus)
	}
}
