package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaign"
	"dialer-platform/internal/recording"
	"dialer-platform/internal/reporting"
	"dialer-platform/internal/telephony"
)

type stubProvider struct {
	mu  sync.Mutex
	seq int
}

func (p *stubProvider) OriginateCall(ctx context.Context, req telephony.OriginateRequest) (telephony.OriginateResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return telephony.OriginateResult{CallID: fmt.Sprintf("CA%d", p.seq)}, nil
}
func (p *stubProvider) RedirectCall(ctx context.Context, callID string, d telephony.Directive) error {
	return nil
}
func (p *stubProvider) EndCall(ctx context.Context, callID string) error { return nil }
func (p *stubProvider) StartRecording(ctx context.Context, callID string) (string, error) {
	return "RE" + callID, nil
}

func newAPIRouter(t *testing.T) (*gin.Engine, *calls.StateMachine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	machine := calls.NewStateMachine(calls.NewMemoryStore())
	provider := &stubProvider{}
	repo := campaign.NewMemoryRepo()
	orch := campaign.NewOrchestrator(repo, machine, provider, campaign.NewLocalSemaphore(), nil, campaign.Options{
		CallerID:       "+15550001111",
		MaxOutstanding: 1,
	})
	machine.OnOutcome(orch)

	h := Handlers{
		Campaigns:  orch,
		Recordings: recording.NewManager(machine, provider, telephony.DirectiveBuilder{}, nil, 0),
		Reports:    reporting.NewService(machine.Store(), repo),
	}

	r := gin.New()
	r.POST("/v1/campaigns", h.CreateCampaign)
	r.GET("/v1/campaigns/:campaign_id", h.GetCampaign)
	r.POST("/v1/campaigns/:campaign_id/start", h.StartCampaign)
	r.POST("/v1/campaigns/:campaign_id/resume", h.ResumeCampaign)
	r.POST("/v1/campaigns/:campaign_id/confirm-dial", h.ConfirmDial)
	r.GET("/v1/campaigns/:campaign_id/replay", h.ReplayCampaignStats)
	r.POST("/v1/calls/:call_id/voicemail-drop", h.DropVoicemail)
	return r, machine
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCampaignLifecycleOverHTTP(t *testing.T) {
	r, _ := newAPIRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/campaigns", map[string]any{
		"name":     "outreach",
		"mode":     "progressive",
		"agent_id": "agent-1",
		"contacts": []map[string]string{{"number": "+15550000001"}, {"number": "+15550000002"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created campaign.DialCampaign
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSON(t, r, http.MethodPost, "/v1/campaigns/"+created.CampaignID+"/resume", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("resume on created: expected 409, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/v1/campaigns/"+created.CampaignID+"/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var started campaign.DialCampaign
	if err := json.Unmarshal(w.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if started.Status != campaign.StatusActive || started.Cursor != 1 {
		t.Fatalf("unexpected campaign after start: %+v", started)
	}

	w = doJSON(t, r, http.MethodGet, "/v1/campaigns/"+created.CampaignID+"/replay", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d", w.Code)
	}
}

func TestCreateCampaign_RejectsBadMode(t *testing.T) {
	r, _ := newAPIRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/campaigns", map[string]any{
		"name":     "x",
		"mode":     "turbo",
		"agent_id": "agent-1",
		"contacts": []map[string]string{{"number": "+15550000001"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetCampaign_NotFound(t *testing.T) {
	r, _ := newAPIRouter(t)

	w := doJSON(t, r, http.MethodGet, "/v1/campaigns/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDropVoicemail_ConflictOnSettledCall(t *testing.T) {
	r, machine := newAPIRouter(t)

	if _, err := machine.ApplyStatus(context.Background(), calls.StatusEvent{CallID: "CA9", Kind: calls.EventCompleted}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	w := doJSON(t, r, http.MethodPost, "/v1/calls/CA9/voicemail-drop", map[string]string{"message": "hi"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}
