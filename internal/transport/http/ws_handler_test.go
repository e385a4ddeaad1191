package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/pinchat/pinchat-server/internal/config"
	"github.com/pinchat/pinchat-server/internal/core"
	"github.com/pinchat/pinchat-server/internal/proto"
)

func startTestServer(t *testing.T) (*httptest.Server, *core.Registry) {
	t.Helper()

	nop := zerolog.Nop()
	registry := core.NewRegistry(&nop)

	server := NewServer(registry, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}, &nop)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, registry
}

func dialWS(ctx context.Context, t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func sendJoin(ctx context.Context, t *testing.T, conn *websocket.Conn, name, pin string) {
	t.Helper()

	payload, _ := json.Marshal(proto.JoinPayload{Name: name, Pin: pin})
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeJoin, Payload: payload}); err != nil {
		t.Fatalf("send join: %v", err)
	}
}

func sendMessage(ctx context.Context, t *testing.T, conn *websocket.Conn, msg core.Message) {
	t.Helper()

	payload, _ := json.Marshal(msg)
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeMessage, Payload: payload}); err != nil {
		t.Fatalf("send message: %v", err)
	}
}

type outboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readFrame(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string) outboundFrame {
	t.Helper()

	var out outboundFrame
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out.Type != typ {
		t.Fatalf("expected frame type %q, got %q", typ, out.Type)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestStatsEndpoint(t *testing.T) {
	ts, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, ts)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	sendJoin(ctx, t, conn, "alice", "4242")
	readFrame(ctx, t, conn, "history")

	resp, err := ts.Client().Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("stats request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var stats core.Stats
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.Rooms != 1 || stats.Members != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestWebSocketJoinAndBroadcast(t *testing.T) {
	ts, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialWS(ctx, t, ts)
	defer connA.Close(websocket.StatusNormalClosure, "done")
	connB := dialWS(ctx, t, ts)
	defer connB.Close(websocket.StatusNormalClosure, "done")

	sendJoin(ctx, t, connA, "alice", "4242")
	hist := readFrame(ctx, t, connA, "history")
	if string(hist.Payload) != "[]" {
		t.Fatalf("expected empty history array, got %s", hist.Payload)
	}

	sendJoin(ctx, t, connB, "bob", "4242")
	readFrame(ctx, t, connB, "history")

	want := core.Message{ID: "1", Text: "hi there", Sender: "alice", Timestamp: 1000}
	sendMessage(ctx, t, connA, want)

	for _, conn := range []*websocket.Conn{connA, connB} {
		out := readFrame(ctx, t, conn, "message")
		var got core.Message
		if err := json.Unmarshal(out.Payload, &got); err != nil {
			t.Fatalf("unmarshal message payload: %v", err)
		}
		if got != want {
			t.Fatalf("unexpected broadcast payload: got %+v want %+v", got, want)
		}
	}
}

func TestJoinerReceivesHistory(t *testing.T) {
	ts, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dialWS(ctx, t, ts)
	defer connA.Close(websocket.StatusNormalClosure, "done")

	sendJoin(ctx, t, connA, "alice", "5151")
	readFrame(ctx, t, connA, "history")
	sendMessage(ctx, t, connA, core.Message{ID: "1", Text: "first", Sender: "alice", Timestamp: 1000})
	readFrame(ctx, t, connA, "message")

	connB := dialWS(ctx, t, ts)
	defer connB.Close(websocket.StatusNormalClosure, "done")

	sendJoin(ctx, t, connB, "bob", "5151")
	hist := readFrame(ctx, t, connB, "history")

	var msgs []core.Message
	if err := json.Unmarshal(hist.Payload, &msgs); err != nil {
		t.Fatalf("unmarshal history payload: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "first" {
		t.Fatalf("unexpected history: %+v", msgs)
	}
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	ts, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, ts)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	sendJoin(ctx, t, conn, "alice", "4242")
	readFrame(ctx, t, conn, "history")

	// Garbage and unknown frames must be dropped without a response or a close.
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"join","payload":`)); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"bogus","payload":{}}`)); err != nil {
		t.Fatalf("write bogus: %v", err)
	}

	// The session must still relay afterwards.
	want := core.Message{ID: "1", Text: "still alive", Sender: "alice", Timestamp: 1000}
	sendMessage(ctx, t, conn, want)

	out := readFrame(ctx, t, conn, "message")
	var got core.Message
	if err := json.Unmarshal(out.Payload, &got); err != nil {
		t.Fatalf("unmarshal message payload: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected payload after garbage frames: %+v", got)
	}
}

func TestDisconnectVacatesRoom(t *testing.T) {
	ts, registry := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, ts)
	sendJoin(ctx, t, conn, "alice", "4242")
	readFrame(ctx, t, conn, "history")

	conn.Close(websocket.StatusNormalClosure, "bye")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if registry.Stats().Rooms == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("room not removed after disconnect: %+v", registry.Stats())
}
