package runtime

import (
	"sync"

	"haven-chat/contract"
	"haven-chat/domain/chat"
)

// Registry owns the room membership state. It is the only mutable shared
// resource of the core; every mutation funnels through Join/Leave under the
// mutex, so rooms exist exactly as long as they have members.
type Registry struct {
	mu    sync.RWMutex
	rooms map[chat.RoomID]map[string]contract.Membership // room -> userID -> membership
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[chat.RoomID]map[string]contract.Membership)}
}

// Join registers a member, unconditionally replacing any existing membership
// for the same (room, user): last join wins, so a user can reclaim their
// slot after an unclean disconnect. The superseded connection, if any and
// different from the new one, is returned so the caller can terminate it.
func (r *Registry) Join(room chat.RoomID, userID, nickname string, conn contract.Conn) contract.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]contract.Membership)
		r.rooms[room] = members
	}

	var previous contract.Conn
	if existing, ok := members[userID]; ok && existing.Conn.ID() != conn.ID() {
		previous = existing.Conn
	}

	members[userID] = contract.Membership{Conn: conn, UserID: userID, Nickname: nickname}
	return previous
}

// Leave removes the membership for (room, user). A non-empty connID makes
// the removal conditional on the stored connection still being that one,
// which guards against a stale connection's delayed close evicting a newer
// membership for the same identity. Reports whether a membership was removed.
func (r *Registry) Leave(room chat.RoomID, userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	existing, ok := members[userID]
	if !ok {
		return false
	}
	if connID != "" && existing.Conn.ID() != connID {
		return false
	}

	delete(members, userID)

	// If no one is left in the room, remove the room entry entirely
	if len(members) == 0 {
		delete(r.rooms, room)
	}
	return true
}

// MembersOf returns a snapshot of the room's memberships. An unknown room
// yields an empty slice, not an error.
func (r *Registry) MembersOf(room chat.RoomID) []contract.Membership {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	if !ok {
		return nil
	}
	snapshot := make([]contract.Membership, 0, len(members))
	for _, m := range members {
		snapshot = append(snapshot, m)
	}
	return snapshot
}
