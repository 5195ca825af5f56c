package signaling

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseSignalMessage(t *testing.T) {
	msg, err := parseSignalMessage([]byte(`{"action":"send","room":"r1","userId":"u1","type":"offer","offer":"v=0 sdp"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Action != actionSend || msg.Room != "r1" || msg.UserID != "u1" {
		t.Fatalf("envelope = %+v", msg)
	}
	if msg.Type != relayTypeOffer || msg.Offer != "v=0 sdp" {
		t.Fatalf("payload = %+v", msg)
	}
}

func TestParseSignalMessageRejects(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `offer please`},
		{"missing room", `{"action":"join","userId":"u1"}`},
		{"missing userId", `{"action":"join","room":"r1"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseSignalMessage([]byte(tc.data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestForRecipientRewritesOnlyUserID(t *testing.T) {
	msg := signalMessage{
		Action:    actionSend,
		Room:      "r1",
		UserID:    "sender",
		Type:      relayTypeICECandidate,
		Candidate: `{"candidate":"candidate:1 1 UDP 2122252543 10.0.0.1 53533 typ host"}`,
	}
	out := msg.forRecipient("receiver")
	if out.UserID != "receiver" {
		t.Fatalf("userId = %q, want receiver", out.UserID)
	}
	if out.Room != msg.Room || out.Type != msg.Type || out.Candidate != msg.Candidate {
		t.Fatalf("payload changed: %+v", out)
	}
	if msg.UserID != "sender" {
		t.Fatal("original message mutated")
	}
}

func TestInitiateOfferMessageWireShape(t *testing.T) {
	data, err := json.Marshal(initiateOfferMessage("r1", "u1"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(data)
	for _, want := range []string{`"action":"send"`, `"room":"r1"`, `"userId":"u1"`, `"type":"initiateOffer"`} {
		if !strings.Contains(got, want) {
			t.Fatalf("frame %s missing %s", got, want)
		}
	}
	for _, absent := range []string{"offer", "answer", "candidate"} {
		if strings.Contains(got, `"`+absent+`"`) {
			t.Fatalf("frame %s should omit %q", got, absent)
		}
	}
}
