package signaling

import (
	"sync"

	"github.com/lexidraw/collab-relay/internal/wsconn"
)

type participant struct {
	userID string
	conn   *wsconn.Conn
}

// Rooms is the signaling registry: room id → participants in join order.
// Join order matters because the first joiner is the designated offer
// initiator when a room pairs up.
//
// Rooms are created lazily on first join and discarded the moment they empty;
// no empty room object ever outlives the call that emptied it.
type Rooms struct {
	mu    sync.Mutex
	rooms map[string][]participant
}

func NewRooms() *Rooms {
	return &Rooms{
		rooms: make(map[string][]participant),
	}
}

// Join adds (userID, conn) to the room. A second join with the same user id
// replaces the connection but keeps the user's position in join order.
//
// paired is true when this join grew the room from one to two distinct
// participants; first is then the first-joined participant, the one that
// should be told to create the SDP offer.
func (r *Rooms) Join(roomID, userID string, conn *wsconn.Conn) (first participant, paired bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[roomID]
	replaced := false
	for i := range members {
		if members[i].userID == userID {
			members[i].conn = conn
			replaced = true
			break
		}
	}
	if !replaced {
		members = append(members, participant{userID: userID, conn: conn})
	}
	r.rooms[roomID] = members

	if !replaced && len(members) == 2 {
		return members[0], true
	}
	return participant{}, false
}

// Leave removes the user from the room, discarding the room if it empties.
// It reports whether the room was discarded.
func (r *Rooms) Leave(roomID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	for i := range members {
		if members[i].userID == userID {
			members = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(members) == 0 {
		delete(r.rooms, roomID)
		return true
	}
	r.rooms[roomID] = members
	return false
}

// Others returns the room's participants excluding userID, in join order.
// A missing room yields nil.
func (r *Rooms) Others(roomID, userID string) []participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []participant
	for _, p := range r.rooms[roomID] {
		if p.userID != userID {
			out = append(out, p)
		}
	}
	return out
}

// DropConn removes conn from every room it participates in, discarding rooms
// left empty. Called on socket close; the sweep is O(rooms * participants),
// fine at two participants per room.
//
// It returns the number of rooms discarded by the sweep.
func (r *Rooms) DropConn(conn *wsconn.Conn) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	discarded := 0
	for roomID, members := range r.rooms {
		kept := members[:0]
		for _, p := range members {
			if p.conn != conn {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(r.rooms, roomID)
			discarded++
			continue
		}
		r.rooms[roomID] = kept
	}
	return discarded
}

// Size reports the participant count of a room; zero for a missing room.
func (r *Rooms) Size(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[roomID])
}

// Count reports the number of live rooms.
func (r *Rooms) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
