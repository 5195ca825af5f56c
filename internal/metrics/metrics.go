package metrics

import "sync"

// Event names recorded by the relays.
const (
	EventConnectionOpened  = "connection_opened"
	EventConnectionClosed  = "connection_closed"
	EventMessageMalformed  = "message_malformed"
	EventMessageRateLimit  = "message_rate_limited"
	EventMessageTooLarge   = "message_too_large"
	EventBroadcastSent     = "broadcast_sent"
	EventBroadcastSendFail = "broadcast_send_failed"
	EventRoomCreated       = "room_created"
	EventRoomDeleted       = "room_deleted"
	EventInitiateOffer     = "initiate_offer_sent"
	EventRelaySent         = "relay_sent"
	EventRelaySendFail     = "relay_send_failed"
	EventSaveScheduled     = "save_scheduled"
	EventSaveCompleted     = "save_completed"
	EventSaveFailed        = "save_failed"
)

// Metrics is a minimal, concurrency-safe counter registry.
//
// Both relays share this registry per process; the Prometheus handler exposes
// its snapshot, so no external metrics backend is required.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

func (m *Metrics) Add(name string, delta uint64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.m[name] += delta
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
