package telephony

import (
	"strings"
	"testing"
)

func testBuilder() DirectiveBuilder {
	return DirectiveBuilder{
		CallerID:             "+15550001111",
		DefaultForwardNumber: "+15550002222",
		CountryPrefix:        "+61",
		FallbackCountryCode:  "+1",
		RecordingCallbackURL: "https://dialer.example.com/webhooks/telephony/recording",
		HoldMusicURL:         "https://dialer.example.com/hold.mp3",
	}
}

func mustRender(t *testing.T, d Directive) string {
	t.Helper()
	out, err := Render(d)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	return out
}

func TestDialNumber_NormalizesAndRecords(t *testing.T) {
	out := mustRender(t, testBuilder().DialNumber("0412 345 678"))

	for _, want := range []string{
		"<Number>+61412345678</Number>",
		`callerId="+15550001111"`,
		`record="record-from-answer-dual"`,
		`recordingStatusCallback="https://dialer.example.com/webhooks/telephony/recording"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("directive missing %q:\n%s", want, out)
		}
	}
}

func TestDialClient(t *testing.T) {
	out := mustRender(t, testBuilder().DialClient("agent-42"))
	if !strings.Contains(out, "<Client>agent-42</Client>") {
		t.Fatalf("unexpected directive:\n%s", out)
	}
	if strings.Contains(out, "record=") {
		t.Fatalf("client dials should not force recording:\n%s", out)
	}
}

func TestGreetAndForward(t *testing.T) {
	out := mustRender(t, testBuilder().GreetAndForward())
	if !strings.Contains(out, "<Say>") || !strings.Contains(out, "<Number>+15550002222</Number>") {
		t.Fatalf("unexpected directive:\n%s", out)
	}
}

func TestJoinConference(t *testing.T) {
	out := mustRender(t, testBuilder().JoinConference("bridge-1", true))

	for _, want := range []string{
		`startConferenceOnEnter="true"`,
		`endConferenceOnExit="true"`,
		`record="record-from-answer-dual"`,
		`waitUrl="https://dialer.example.com/hold.mp3"`,
		">bridge-1</Conference>",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("directive missing %q:\n%s", want, out)
		}
	}
}

func TestJoinConference_WithoutRecording(t *testing.T) {
	out := mustRender(t, testBuilder().JoinConference("bridge-1", false))
	if strings.Contains(out, "record=") {
		t.Fatalf("unexpected record attr:\n%s", out)
	}
}

func TestVoicemailDrop_EndsWithHangup(t *testing.T) {
	out := mustRender(t, testBuilder().VoicemailDrop("Sorry we missed you."))

	sayIdx := strings.Index(out, "<Say>Sorry we missed you.</Say>")
	hangupIdx := strings.Index(out, "<Hangup>")
	if sayIdx < 0 || hangupIdx < 0 || hangupIdx < sayIdx {
		t.Fatalf("expected say then hangup:\n%s", out)
	}
	if !strings.Contains(out, `<Pause length="1">`) {
		t.Fatalf("expected one second pause:\n%s", out)
	}
}

func TestRender_RejectsEmptyAndTargetless(t *testing.T) {
	if _, err := Render(Directive{}); err == nil {
		t.Fatalf("expected error for empty directive")
	}
	if _, err := Render(Directive{Verbs: []any{verbDial{}}}); err == nil {
		t.Fatalf("expected error for targetless dial")
	}
	if _, err := Render(Directive{Verbs: []any{verbDial{Conference: &dialConference{Name: "  "}}}}); err == nil {
		t.Fatalf("expected error for blank bridge id")
	}
}
