package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pinchat/pinchat-server/internal/proto"
)

func mustFrame(t *testing.T, ch <-chan *proto.Outbound, typ string) *proto.Outbound {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case out := <-ch:
			if out == nil {
				continue
			}
			if out.Type == typ {
				return out
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected frame type %q not received", typ)
	return nil
}

func noFrame(t *testing.T, ch <-chan *proto.Outbound) {
	t.Helper()

	select {
	case out := <-ch:
		t.Fatalf("unexpected frame: %+v", out)
	default:
	}
}

func rawFrame(t *testing.T, typ string, payload any) []byte {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	frame, err := json.Marshal(proto.Inbound{Type: typ, Payload: data})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return frame
}

func joinFrame(t *testing.T, name, pin string) []byte {
	t.Helper()
	return rawFrame(t, proto.InboundTypeJoin, proto.JoinPayload{Name: name, Pin: pin})
}

func messageFrame(t *testing.T, msg Message) []byte {
	t.Helper()
	return rawFrame(t, proto.InboundTypeMessage, msg)
}
