package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry owns the pin→room map. Rooms are created on first join and
// removed the moment their last member leaves; the map never holds an
// empty room between registry calls.
//
// The registry lock guards the map, each room guards its own members and
// history, so posts to unrelated rooms do not serialize against each other.
// Lock order is always registry before room.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	log   *zerolog.Logger
}

// NewRegistry constructs an empty registry. A nil logger disables logging.
func NewRegistry(logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{
		rooms: make(map[string]*Room),
		log:   logger,
	}
}

// GetOrCreate returns the room for code, creating it if absent.
func (r *Registry) GetOrCreate(code string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(code)
}

func (r *Registry) getOrCreateLocked(code string) *Room {
	room, ok := r.rooms[code]
	if !ok {
		room = newRoom(code)
		r.rooms[code] = room
	}
	return room
}

// Join adds the session to the room for code, creating the room if needed,
// and returns the history snapshot taken at the moment of joining. The same
// snapshot is delivered to the session as a history frame. Rejoining simply
// re-adds the session to the member set.
func (r *Registry) Join(code string, s *Session) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.getOrCreateLocked(code)
	snapshot := room.join(s)

	r.log.Info().
		Str("pin", code).
		Str("name", s.Name()).
		Int("members", room.size()).
		Msg("session joined room")
	return snapshot
}

// Post appends the message to the room's history and broadcasts it to every
// current member, the sender included. A post to an absent room is a no-op:
// the relay tolerates stragglers rather than erroring.
func (r *Registry) Post(code string, msg Message) {
	r.mu.RLock()
	room, ok := r.rooms[code]
	r.mu.RUnlock()

	if !ok {
		r.log.Debug().Str("pin", code).Msg("dropped post to absent room")
		return
	}
	room.post(msg)
}

// Leave removes the session from the room for code. When the last member
// leaves, the room is deleted in the same critical section, so a later join
// of the same pin starts from an empty history.
func (r *Registry) Leave(code string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return
	}
	if room.leave(s) {
		delete(r.rooms, code)
		r.log.Info().Str("pin", code).Msg("room empty, closed")
	}
}

// Stats is a point-in-time operational view of the registry.
type Stats struct {
	Rooms   int `json:"rooms"`
	Members int `json:"members"`
}

// Stats counts rooms and members currently in the registry.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := Stats{Rooms: len(r.rooms)}
	for _, room := range r.rooms {
		st.Members += room.size()
	}
	return st
}
