package core

import "testing"

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	reg := NewRegistry(nil)

	sender := NewSession(reg, nil)
	reg.Join("bench", sender)

	clients := make([]*Session, 0, recipients)
	for range recipients {
		c := NewSession(reg, nil)
		reg.Join("bench", c)
		clients = append(clients, c)
	}

	// Drain events for all but the first recipient to avoid channel backpressure.
	target := clients[0]
	<-target.Events // history frame
	for _, c := range clients[1:] {
		go func(cl *Session) {
			for range cl.Events {
			}
		}(c)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		reg.Post("bench", Message{ID: "m", Text: "payload", Sender: "sender", Timestamp: float64(i)})
		<-target.Events
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
func BenchmarkRoomBroadcast_500(b *testing.B) { benchmarkRoomBroadcast(b, 500) }
