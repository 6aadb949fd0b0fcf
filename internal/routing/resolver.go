package routing

import "strings"

// clientPrefix tags a `to` value as a client identifier rather than a phone
// address.
const clientPrefix = "client:"

// Request is the routed subset of a voice-control webhook.
type Request struct {
	To   string
	From string

	// JoinBridge asks for a conference join; BridgeID names the bridge, or
	// is empty when the caller starts a fresh one.
	JoinBridge bool
	BridgeID   string
}

// Resolver maps a voice-control request to a dial intent.
//
// Rules, in priority order: explicit bridge join, empty destination
// (greet + forward to the default number), client-tagged destination,
// otherwise an outbound number dial. Pure; no side effects.
type Resolver struct{}

func (Resolver) Resolve(req Request) Intent {
	if req.JoinBridge || req.BridgeID != "" {
		return Intent{Action: ActionJoinConference, Target: req.BridgeID}
	}
	to := strings.TrimSpace(req.To)
	if to == "" {
		return Intent{Action: ActionForwardDefault}
	}
	if strings.HasPrefix(to, clientPrefix) {
		return Intent{Action: ActionDialClient, Target: strings.TrimPrefix(to, clientPrefix)}
	}
	return Intent{Action: ActionDialNumber, Target: to}
}
