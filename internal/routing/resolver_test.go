package routing

import "testing"

func TestResolve_BridgeJoinWinsOverDestination(t *testing.T) {
	in := Resolver{}.Resolve(Request{To: "+15551234567", BridgeID: "b1"})
	if in.Action != ActionJoinConference || in.Target != "b1" {
		t.Fatalf("unexpected intent: %+v", in)
	}
}

func TestResolve_FreshBridgeJoinHasEmptyTarget(t *testing.T) {
	in := Resolver{}.Resolve(Request{To: "+15551234567", JoinBridge: true})
	if in.Action != ActionJoinConference || in.Target != "" {
		t.Fatalf("unexpected intent: %+v", in)
	}
}

func TestResolve_EmptyDestinationForwards(t *testing.T) {
	in := Resolver{}.Resolve(Request{From: "+15551234567"})
	if in.Action != ActionForwardDefault {
		t.Fatalf("unexpected intent: %+v", in)
	}
}

func TestResolve_ClientTag(t *testing.T) {
	in := Resolver{}.Resolve(Request{To: "client:agent-7"})
	if in.Action != ActionDialClient || in.Target != "agent-7" {
		t.Fatalf("unexpected intent: %+v", in)
	}
}

func TestResolve_NumberDial(t *testing.T) {
	in := Resolver{}.Resolve(Request{To: "0412 345 678"})
	if in.Action != ActionDialNumber || in.Target != "0412 345 678" {
		t.Fatalf("unexpected intent: %+v", in)
	}
}
