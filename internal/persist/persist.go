// Package persist is the broadcast relay's persistence side-channel: the
// relay hands it the latest entity snapshot and it durably writes the
// coalesced result without ever blocking message handling.
package persist

import (
	"context"
	"encoding/json"
)

// Snapshot is the most recent state of one collaborative entity.
//
// Elements is a serialized element tree for documents and a structured element
// array for drawings; both pass through opaquely.
type Snapshot struct {
	EntityID   string          `json:"entityId"`
	EntityType string          `json:"entityType"`
	Elements   json.RawMessage `json:"elements"`
	AppState   json.RawMessage `json:"appState,omitempty"`
}

// Saver writes one snapshot durably.
type Saver interface {
	Save(ctx context.Context, snap Snapshot) error
}
