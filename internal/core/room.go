package core

import (
	"sync"

	"github.com/pinchat/pinchat-server/internal/proto"
)

// Room groups the sessions that joined the same pin and owns their shared
// message history. All mutation goes through the Registry.
type Room struct {
	Code string

	mu      sync.Mutex
	members map[*Session]struct{}
	history []Message
}

func newRoom(code string) *Room {
	return &Room{
		Code:    code,
		members: make(map[*Session]struct{}),
	}
}

// join adds the session to the member set and hands it the history snapshot.
// The frame is enqueued before the lock is released so no concurrent post
// can slip a message ahead of the snapshot it is missing from.
func (r *Room) join(s *Session) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members[s] = struct{}{}

	snapshot := make([]Message, len(r.history))
	copy(snapshot, r.history)
	s.trySend(&proto.Outbound{Type: proto.OutboundTypeHistory, Payload: snapshot})
	return snapshot
}

// post appends the message to history and fans it out to every member,
// the sender included. Closed or slow members are skipped rather than
// holding up the rest.
func (r *Room) post(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, msg)

	out := &proto.Outbound{Type: proto.OutboundTypeMessage, Payload: msg}
	for member := range r.members {
		member.trySend(out)
	}
}

// leave removes the session. Returns true when the room is now empty.
func (r *Room) leave(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.members, s)
	return len(r.members) == 0
}

func (r *Room) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}
