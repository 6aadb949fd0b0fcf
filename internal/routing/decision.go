package routing

// Intent is the provider-agnostic routing decision for a voice-control
// request. It carries only what the directive builder needs to execute it.

type Intent struct {
	Action Action `json:"action"`

	// Target holds the outbound number, client identifier, or bridge id,
	// depending on Action.
	Target string `json:"target,omitempty"`
}

type Action string

const (
	// ActionDialNumber dials a PSTN number.
	ActionDialNumber Action = "dial_number"
	// ActionDialClient dials a registered client endpoint.
	ActionDialClient Action = "dial_client"
	// ActionForwardDefault greets and forwards a bare inbound call.
	ActionForwardDefault Action = "forward_default"
	// ActionJoinConference places the leg into an existing bridge.
	ActionJoinConference Action = "join_conference"
)
