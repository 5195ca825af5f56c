package broadcast

import (
	"sync"

	"github.com/lexidraw/collab-relay/internal/wsconn"
)

// Registry tracks which entity each connection is currently editing.
//
// A connection's association is whatever entity id it last sent an update
// for, so a single socket can follow the user across tab navigations. At most
// one entity per connection at any instant.
type Registry struct {
	mu       sync.RWMutex
	entities map[*wsconn.Conn]string
}

func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[*wsconn.Conn]string),
	}
}

// Associate sets conn's current entity, replacing any prior association.
func (r *Registry) Associate(conn *wsconn.Conn, entityID string) {
	r.mu.Lock()
	r.entities[conn] = entityID
	r.mu.Unlock()
}

func (r *Registry) Remove(conn *wsconn.Conn) {
	r.mu.Lock()
	delete(r.entities, conn)
	r.mu.Unlock()
}

// Entity returns conn's current association, if any.
func (r *Registry) Entity(conn *wsconn.Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entityID, ok := r.entities[conn]
	return entityID, ok
}

// Peers returns every other connection associated with entityID.
func (r *Registry) Peers(entityID string, exclude *wsconn.Conn) []*wsconn.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var peers []*wsconn.Conn
	for conn, id := range r.entities {
		if conn == exclude || id != entityID {
			continue
		}
		peers = append(peers, conn)
	}
	return peers
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}
