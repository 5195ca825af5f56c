package broadcast

import (
	"testing"

	"github.com/lexidraw/collab-relay/internal/wsconn"
)

func TestRegistry_AssociationLifecycle(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	a := &wsconn.Conn{}
	b := &wsconn.Conn{}

	r.Associate(a, "entity-x")
	r.Associate(b, "entity-x")

	if id, ok := r.Entity(a); !ok || id != "entity-x" {
		t.Fatalf("Entity(a) = %q, %v", id, ok)
	}
	if peers := r.Peers("entity-x", a); len(peers) != 1 || peers[0] != b {
		t.Fatalf("Peers(x, exclude a) = %v", peers)
	}

	// Re-association replaces, never accumulates.
	r.Associate(a, "entity-y")
	if peers := r.Peers("entity-x", b); len(peers) != 0 {
		t.Fatalf("a still listed under x after switching: %v", peers)
	}
	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}

	r.Remove(a)
	if _, ok := r.Entity(a); ok {
		t.Fatal("a still associated after Remove")
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}
