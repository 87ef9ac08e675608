package registry

import (
	"sync"

	"github.com/Ashika2003/Chat-App/internal/core/contracts"
)

// Registry maps room names to the live connections subscribed to them.
// Each connection belongs to exactly one room entry at a time. The
// per-(room, user) connection counts let callers mutate durable
// presence only on a user's first join and last leave, so two tabs of
// the same user never double-add or double-remove.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]map[contracts.Client]struct{}
	sessions map[string]map[string]int // room → user → live connections
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]map[contracts.Client]struct{}),
		sessions: make(map[string]map[string]int),
	}
}

// Join subscribes the client to its room and returns how many live
// connections the client's user now has in that room.
func (r *Registry) Join(c contracts.Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	room := c.RoomName()
	if r.rooms[room] == nil {
		r.rooms[room] = make(map[contracts.Client]struct{})
		r.sessions[room] = make(map[string]int)
	}
	r.rooms[room][c] = struct{}{}
	r.sessions[room][c.UserID()]++
	return r.sessions[room][c.UserID()]
}

// Leave unsubscribes the client and returns how many live connections
// the user still has in the room. Leaving twice, or leaving without
// joining, is a no-op returning the current count.
func (r *Registry) Leave(c contracts.Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	room := c.RoomName()
	members, ok := r.rooms[room]
	if !ok {
		return 0
	}
	if _, present := members[c]; !present {
		return r.sessions[room][c.UserID()]
	}
	delete(members, c)
	user := c.UserID()
	if r.sessions[room][user] > 0 {
		r.sessions[room][user]--
	}
	remaining := r.sessions[room][user]
	if remaining == 0 {
		delete(r.sessions[room], user)
	}
	if len(members) == 0 {
		delete(r.rooms, room)
		delete(r.sessions, room)
	}
	return remaining
}

// Snapshot returns the room's subscribers as of call time. A client
// joining after the snapshot is taken does not receive the broadcast
// being prepared from it.
func (r *Registry) Snapshot(roomName string) []contracts.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[roomName]
	out := make([]contracts.Client, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}

// Rooms lists rooms with at least one live subscriber.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.rooms))
	for name := range r.rooms {
		out = append(out, name)
	}
	return out
}
