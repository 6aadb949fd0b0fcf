package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

// The directive document is the call-control instruction set returned to the
// provider. It is rendered as XML verbs in the Twilio dialect.
//
// Built with encoding/xml on purpose: no provider SDK dependency at this
// boundary. Only the verbs this core emits are modeled.

type Directive struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type verbSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type verbPlay struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type verbPause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr"`
}

type verbHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type verbDial struct {
	XMLName xml.Name `xml:"Dial"`

	CallerID                string `xml:"callerId,attr,omitempty"`
	Record                  string `xml:"record,attr,omitempty"`
	RecordingStatusCallback string `xml:"recordingStatusCallback,attr,omitempty"`

	Number     string          `xml:"Number,omitempty"`
	Client     string          `xml:"Client,omitempty"`
	Conference *dialConference `xml:"Conference,omitempty"`
}

type dialConference struct {
	Name string `xml:",chardata"`

	StartConferenceOnEnter string `xml:"startConferenceOnEnter,attr"`
	EndConferenceOnExit    string `xml:"endConferenceOnExit,attr"`
	Record                 string `xml:"record,attr,omitempty"`
	WaitURL                string `xml:"waitUrl,attr,omitempty"`
}

// recordDualChannel asks the provider for one channel per leg.
const recordDualChannel = "record-from-answer-dual"

// DirectiveBuilder maps call intents to directive documents. It is pure;
// every method returns a fresh document.
type DirectiveBuilder struct {
	// CallerID is announced on outbound dials.
	CallerID string

	// DefaultForwardNumber receives bare inbound calls.
	DefaultForwardNumber string

	// Greeting is spoken before forwarding a bare inbound call.
	Greeting string

	CountryPrefix       string
	FallbackCountryCode string

	// RecordingCallbackURL receives recording status events for recorded
	// dials.
	RecordingCallbackURL string

	// HoldMusicURL plays to conference participants waiting for the bridge
	// to start.
	HoldMusicURL string
}

// DialNumber dials a normalized outbound number with caller-id announcement
// and dual-channel recording.
func (b DirectiveBuilder) DialNumber(to string) Directive {
	return Directive{Verbs: []any{verbDial{
		CallerID:                b.CallerID,
		Record:                  recordDualChannel,
		RecordingStatusCallback: b.RecordingCallbackURL,
		Number:                  NormalizeNumber(to, b.CountryPrefix, b.FallbackCountryCode),
	}}}
}

// DialClient dials a registered client endpoint instead of a phone number.
func (b DirectiveBuilder) DialClient(clientID string) Directive {
	return Directive{Verbs: []any{verbDial{
		CallerID: b.CallerID,
		Client:   clientID,
	}}}
}

// GreetAndForward answers a bare inbound call: a short greeting, then a dial
// to the configured default number.
func (b DirectiveBuilder) GreetAndForward() Directive {
	greeting := b.Greeting
	if greeting == "" {
		greeting = "Please hold while we connect your call."
	}
	return Directive{Verbs: []any{
		verbSay{Text: greeting},
		verbDial{Number: b.DefaultForwardNumber},
	}}
}

// JoinConference places the call into bridge bridgeID. The bridge starts on
// first entry and ends when the last participant exits.
func (b DirectiveBuilder) JoinConference(bridgeID string, record bool) Directive {
	conf := &dialConference{
		Name:                   bridgeID,
		StartConferenceOnEnter: "true",
		EndConferenceOnExit:    "true",
		WaitURL:                b.HoldMusicURL,
	}
	if record {
		conf.Record = recordDualChannel
	}
	return Directive{Verbs: []any{verbDial{Conference: conf}}}
}

// VoicemailDrop plays message, pauses briefly, then terminates the call.
// Applied via live-call redirect it destructively replaces the current
// directive; the call does not return to its previous flow.
func (b DirectiveBuilder) VoicemailDrop(message string) Directive {
	return Directive{Verbs: []any{
		verbSay{Text: message},
		verbPause{Length: 1},
		verbHangup{},
	}}
}

// Render serializes a directive document.
func Render(d Directive) (string, error) {
	if len(d.Verbs) == 0 {
		return "", errors.New("telephony: empty directive")
	}
	for _, v := range d.Verbs {
		if dial, ok := v.(verbDial); ok {
			if dial.Number == "" && dial.Client == "" && dial.Conference == nil {
				return "", errors.New("telephony: dial directive without target")
			}
			if dial.Conference != nil && strings.TrimSpace(dial.Conference.Name) == "" {
				return "", errors.New("telephony: conference directive without bridge id")
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
