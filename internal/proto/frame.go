package proto

import "encoding/json"

// Inbound is the envelope for frames coming from the client. The payload is
// kept raw so a bad payload for one type never poisons the envelope parse.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

const (
	InboundTypeJoin    = "join"
	InboundTypeMessage = "message"

	OutboundTypeHistory = "history"
	OutboundTypeMessage = "message"
)

// JoinPayload carries the display name and room pin for a join frame.
type JoinPayload struct {
	Name string `json:"name"`
	Pin  string `json:"pin"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}
