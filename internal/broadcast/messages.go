package broadcast

import (
	"encoding/json"
	"fmt"

	"github.com/lexidraw/collab-relay/internal/persist"
)

type entityType string

const (
	entityTypeDocument entityType = "document"
	entityTypeDrawing  entityType = "drawing"
)

// updateMessage is the single inbound frame shape of the broadcast relay.
//
// Elements is a serialized tree (a JSON string) for documents and an element
// array for drawings; the relay treats both as opaque JSON.
type updateMessage struct {
	Type       string        `json:"type"`
	EntityType entityType    `json:"entityType"`
	UserID     string        `json:"userId"`
	EntityID   string        `json:"entityId"`
	Payload    updatePayload `json:"payload"`
}

type updatePayload struct {
	Elements json.RawMessage `json:"elements"`
	AppState json.RawMessage `json:"appState,omitempty"`
}

func parseUpdateMessage(data []byte) (updateMessage, error) {
	var msg updateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return updateMessage{}, err
	}
	if err := msg.validate(); err != nil {
		return updateMessage{}, err
	}
	return msg, nil
}

func (m updateMessage) validate() error {
	if m.Type != "update" {
		return fmt.Errorf("unsupported message type %q", m.Type)
	}
	switch m.EntityType {
	case entityTypeDocument, entityTypeDrawing:
	default:
		return fmt.Errorf("unsupported entity type %q", m.EntityType)
	}
	if m.EntityID == "" {
		return fmt.Errorf("missing entityId")
	}
	if len(m.Payload.Elements) == 0 {
		return fmt.Errorf("missing payload.elements")
	}
	return nil
}

func (m updateMessage) snapshot() persist.Snapshot {
	return persist.Snapshot{
		EntityID:   m.EntityID,
		EntityType: string(m.EntityType),
		Elements:   m.Payload.Elements,
		AppState:   m.Payload.AppState,
	}
}
