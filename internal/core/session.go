package core

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pinchat/pinchat-server/internal/proto"
)

// State is the position of a session in its protocol lifecycle.
type State int

const (
	// StateConnected means the transport is up but no join frame has
	// been accepted yet.
	StateConnected State = iota
	// StateJoined means the session carries a name and a room pin.
	StateJoined
	// StateClosed is terminal.
	StateClosed
)

const eventBuffer = 16

// Session is the server-side state of one connection: a display name and a
// room pin, both fixed at join time, plus the outbound frame queue the
// transport's write loop drains. Handle is driven by a single reader
// goroutine; only trySend is called from other goroutines.
type Session struct {
	ID string

	// Events carries frames destined for this session's connection.
	Events chan *proto.Outbound

	registry *Registry
	log      *zerolog.Logger

	name  string
	room  string
	state State

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewSession constructs a session in the connected state. A nil logger
// disables logging.
func NewSession(registry *Registry, logger *zerolog.Logger) *Session {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Session{
		ID:       uuid.NewString(),
		Events:   make(chan *proto.Outbound, eventBuffer),
		registry: registry,
		log:      logger,
		state:    StateConnected,
	}
}

// Name returns the display name, empty until a join is accepted.
func (s *Session) Name() string { return s.name }

// Room returns the room pin, empty until a join is accepted.
func (s *Session) Room() string { return s.room }

// State returns the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// Handle interprets one raw inbound frame. Anything that fails to parse,
// arrives in the wrong state, or carries an unknown type is dropped without
// a response; the connection stays open either way.
func (s *Session) Handle(data []byte) {
	if s.state == StateClosed {
		return
	}

	var in proto.Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		s.log.Debug().Err(err).Str("session_id", s.ID).Msg("dropped unparseable frame")
		return
	}

	switch in.Type {
	case proto.InboundTypeJoin:
		s.handleJoin(in.Payload)
	case proto.InboundTypeMessage:
		s.handleMessage(in.Payload)
	default:
		s.log.Debug().Str("type", in.Type).Str("session_id", s.ID).Msg("dropped frame with unknown type")
	}
}

func (s *Session) handleJoin(payload json.RawMessage) {
	// The room pin is assigned once per session; switching rooms means
	// reconnecting.
	if s.state != StateConnected {
		s.log.Debug().Str("session_id", s.ID).Msg("dropped join frame, already joined")
		return
	}

	var join proto.JoinPayload
	if err := json.Unmarshal(payload, &join); err != nil {
		s.log.Debug().Err(err).Str("session_id", s.ID).Msg("dropped malformed join frame")
		return
	}

	s.name = join.Name
	s.room = join.Pin
	s.state = StateJoined
	s.registry.Join(join.Pin, s)
}

func (s *Session) handleMessage(payload json.RawMessage) {
	if s.state != StateJoined {
		s.log.Debug().Str("session_id", s.ID).Msg("dropped message frame before join")
		return
	}

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.log.Debug().Err(err).Str("session_id", s.ID).Msg("dropped malformed message frame")
		return
	}

	s.registry.Post(s.room, msg)
}

// Close transitions the session to its terminal state and, if it had joined
// a room, removes it from that room. Safe to call more than once; only the
// first call has any effect.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.state == StateJoined {
			s.registry.Leave(s.room, s)
		}
		s.state = StateClosed
		s.log.Debug().Str("session_id", s.ID).Msg("session closed")
	})
}

// trySend enqueues a frame without blocking. Sessions that are closed but
// not yet reaped, or whose write loop has fallen behind, are skipped so one
// stuck member never stalls a broadcast.
func (s *Session) trySend(out *proto.Outbound) {
	if s.closed.Load() {
		return
	}
	select {
	case s.Events <- out:
	default:
	}
}
