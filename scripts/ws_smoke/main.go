package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/pinchat/pinchat-server/internal/core"
	"github.com/pinchat/pinchat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

// run joins a room, posts one message, and waits for the relay to echo it
// back to the posting connection.
func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	name := flag.String("name", "tester", "display name to join with")
	pin := flag.String("pin", "4242", "room pin")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, payload any) error {
		data, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			return fmt.Errorf("marshal %s payload: %w", typ, marshalErr)
		}
		if writeErr := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Payload: data}); writeErr != nil {
			return fmt.Errorf("send %s: %w", typ, writeErr)
		}
		return nil
	}

	if err := send(proto.InboundTypeJoin, proto.JoinPayload{Name: *name, Pin: *pin}); err != nil {
		return err
	}

	msgID := uuid.NewString()
	if err := send(proto.InboundTypeMessage, core.Message{
		ID:        msgID,
		Text:      *text,
		Sender:    *name,
		Timestamp: float64(time.Now().UnixMilli()),
	}); err != nil {
		return err
	}

	for {
		var outbound struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		switch outbound.Type {
		case proto.OutboundTypeHistory:
			var msgs []core.Message
			if err := json.Unmarshal(outbound.Payload, &msgs); err != nil {
				return fmt.Errorf("unmarshal history: %w", err)
			}
			fmt.Printf("History: %d message(s)\n", len(msgs))
		case proto.OutboundTypeMessage:
			var msg core.Message
			if err := json.Unmarshal(outbound.Payload, &msg); err != nil {
				return fmt.Errorf("unmarshal message: %w", err)
			}
			if msg.ID != msgID {
				fmt.Printf("Message: sender=%s text=%q\n", msg.Sender, msg.Text)
				continue
			}
			fmt.Printf("Echo received: sender=%s text=%q ts=%v\n", msg.Sender, msg.Text, msg.Timestamp)
			return nil
		default:
			fmt.Printf("Received frame: type=%s\n", outbound.Type)
		}
	}
}
