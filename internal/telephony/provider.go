package telephony

import (
	"context"
	"fmt"
)

// Provider is the outbound control surface of the telephony provider,
// treated as a black box. Every call is bounded by the caller's context.
//
// End-of-call semantics: EndCall is fire-and-forget from the core's
// perspective; the authoritative end state arrives later via the terminal
// status webhook.
type Provider interface {
	// OriginateCall places a new outbound call and returns the provider's
	// call identifier.
	OriginateCall(ctx context.Context, req OriginateRequest) (OriginateResult, error)

	// RedirectCall destructively replaces the live call's directive.
	RedirectCall(ctx context.Context, callID string, d Directive) error

	// EndCall requests termination of a live call.
	EndCall(ctx context.Context, callID string) error

	// StartRecording starts a call recording and returns the provider's
	// recording identifier.
	StartRecording(ctx context.Context, callID string) (string, error)
}

// OriginateRequest describes a new outbound call.
type OriginateRequest struct {
	To   string
	From string

	// VoiceURL is fetched by the provider for the call's directive once the
	// callee picks up.
	VoiceURL string

	// StatusCallbackURL receives lifecycle status events.
	StatusCallbackURL string

	// CampaignID is echoed back on status callbacks so terminal events can
	// be routed to the owning campaign.
	CampaignID string

	Record bool
}

type OriginateResult struct {
	CallID string
}

// ProviderError reports a rejected provider control-API request with enough
// detail for an operator to retry deliberately.
type ProviderError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("telephony: %s rejected by provider (status %d): %s", e.Op, e.StatusCode, e.Body)
}
