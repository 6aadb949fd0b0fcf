package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dialer-platform/internal/config"
)

const defaultAPIBaseURL = "https://api.twilio.com/2010-04-01"

// RESTProvider drives a Twilio-compatible control API over form-encoded
// HTTP. It implements Provider.
//
// No business logic here; callers decide what to dial and when.
type RESTProvider struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
}

func NewRESTProvider(cfg config.TelephonyConfig, timeout time.Duration) *RESTProvider {
	base := cfg.APIBaseURL
	if base == "" {
		base = defaultAPIBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTProvider{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *RESTProvider) OriginateCall(ctx context.Context, req OriginateRequest) (OriginateResult, error) {
	voiceURL := req.VoiceURL
	if req.CampaignID != "" {
		voiceURL = appendQuery(voiceURL, "campaign_id", req.CampaignID)
	}
	statusURL := req.StatusCallbackURL
	if req.CampaignID != "" {
		statusURL = appendQuery(statusURL, "campaign_id", req.CampaignID)
	}

	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", req.From)
	form.Set("Url", voiceURL)
	form.Set("StatusCallback", statusURL)
	form.Set("StatusCallbackEvent", "initiated ringing answered completed")
	if req.Record {
		form.Set("Record", "true")
		form.Set("RecordingChannels", "dual")
	}

	body, err := p.post(ctx, "originate", fmt.Sprintf("%s/Accounts/%s/Calls.json", p.baseURL, p.accountSID), form)
	if err != nil {
		return OriginateResult{}, err
	}

	var out struct {
		Sid string `json:"sid"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return OriginateResult{}, fmt.Errorf("telephony: originate response decode: %w", err)
	}
	if out.Sid == "" {
		return OriginateResult{}, &ProviderError{Op: "originate", StatusCode: http.StatusOK, Body: "response missing call sid"}
	}
	return OriginateResult{CallID: out.Sid}, nil
}

func (p *RESTProvider) RedirectCall(ctx context.Context, callID string, d Directive) error {
	doc, err := Render(d)
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("Twiml", doc)

	_, err = p.post(ctx, "redirect", p.callURL(callID), form)
	return err
}

func (p *RESTProvider) EndCall(ctx context.Context, callID string) error {
	form := url.Values{}
	form.Set("Status", "completed")

	_, err := p.post(ctx, "end", p.callURL(callID), form)
	return err
}

func (p *RESTProvider) StartRecording(ctx context.Context, callID string) (string, error) {
	form := url.Values{}
	form.Set("RecordingChannels", "dual")

	body, err := p.post(ctx, "start_recording",
		fmt.Sprintf("%s/Accounts/%s/Calls/%s/Recordings.json", p.baseURL, p.accountSID, url.PathEscape(callID)), form)
	if err != nil {
		return "", err
	}
	var out struct {
		Sid string `json:"sid"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("telephony: recording response decode: %w", err)
	}
	return out.Sid, nil
}

func (p *RESTProvider) callURL(callID string) string {
	return fmt.Sprintf("%s/Accounts/%s/Calls/%s.json", p.baseURL, p.accountSID, url.PathEscape(callID))
}

func (p *RESTProvider) post(ctx context.Context, op, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.accountSID, p.authToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telephony: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("telephony: %s response read: %w", op, err)
	}
	if resp.StatusCode >= 300 {
		return nil, &ProviderError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func appendQuery(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
