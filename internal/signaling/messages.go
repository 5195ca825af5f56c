package signaling

import (
	"encoding/json"
	"fmt"
)

// action discriminates the registry effect of a frame. The set is closed:
// an unknown action is a client/server protocol mismatch, not client input
// to tolerate.
type action string

const (
	actionJoin  action = "join"
	actionLeave action = "leave"
	actionSend  action = "send"
)

// relayType discriminates the handshake payload carried by a frame.
// initiateOffer and connection are relay-internal signals and are never
// forwarded between participants.
type relayType string

const (
	relayTypeOffer         relayType = "offer"
	relayTypeAnswer        relayType = "answer"
	relayTypeICECandidate  relayType = "iceCandidate"
	relayTypeInitiateOffer relayType = "initiateOffer"
	relayTypeConnection    relayType = "connection"
)

// signalMessage is the wire envelope of every signaling frame, inbound and
// outbound. Exactly one of Offer/Answer/Candidate is populated, matching
// Type; the rest stay empty and are omitted on the wire.
type signalMessage struct {
	Action action `json:"action"`
	Room   string `json:"room"`
	UserID string `json:"userId"`

	Type      relayType `json:"type,omitempty"`
	Offer     string    `json:"offer,omitempty"`
	Answer    string    `json:"answer,omitempty"`
	Candidate string    `json:"candidate,omitempty"`
}

func parseSignalMessage(data []byte) (signalMessage, error) {
	var msg signalMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return signalMessage{}, err
	}
	if msg.Room == "" {
		return signalMessage{}, fmt.Errorf("missing room")
	}
	if msg.UserID == "" {
		return signalMessage{}, fmt.Errorf("missing userId")
	}
	return msg, nil
}

// forRecipient returns the relayed copy for one recipient: the userId field
// is rewritten to the recipient's id, the type-specific payload is preserved
// verbatim.
func (m signalMessage) forRecipient(userID string) signalMessage {
	out := m
	out.UserID = userID
	return out
}

func initiateOfferMessage(roomID, userID string) signalMessage {
	return signalMessage{
		Action: actionSend,
		Room:   roomID,
		UserID: userID,
		Type:   relayTypeInitiateOffer,
	}
}
