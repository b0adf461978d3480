package chat

import (
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Rooms maps an interview session id to the connections admitted to it. Membership
// changes only on admission and disconnect.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[*Conn]struct{}
}

// RoomStats is a point-in-time count of rooms and their connections
type RoomStats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

// NewRooms creates an empty room registry
func NewRooms() *Rooms {
	return &Rooms{members: make(map[string]map[*Conn]struct{})}
}

// Join adds c to room
func (r *Rooms) Join(room string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[room] == nil {
		r.members[room] = make(map[*Conn]struct{})
	}
	r.members[room][c] = struct{}{}
}

// Leave removes c from room and drops the room once it is empty
func (r *Rooms) Leave(room string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns, ok := r.members[room]
	if !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(r.members, room)
	}
}

// Broadcast emits event to every connection in room except the given one (nil to
// reach everyone) and returns how many connections accepted it. Delivery is best
// effort: a connection that cannot take the event is skipped.
func (r *Rooms) Broadcast(room, event string, data interface{}, except *Conn) int {
	r.mu.RLock()
	targets := lo.Keys(r.members[room])
	r.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c == except {
			continue
		}
		if err := c.Emit(event, data); err != nil {
			zap.S().Warnw("dropped chat event",
				"sessionId", room,
				"connId", c.ID,
				"event", event,
				"error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Stats reports the current number of rooms and connections
func (r *Rooms) Stats() RoomStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := RoomStats{Rooms: len(r.members)}
	for _, conns := range r.members {
		stats.Connections += len(conns)
	}
	return stats
}
