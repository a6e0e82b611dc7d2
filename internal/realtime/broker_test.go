package realtime

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestBroker() *Broker {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewBroker(log)
}

func TestInvalidateReachesEveryClientOfUser(t *testing.T) {
	t.Parallel()

	b := newTestBroker()
	tab1 := b.AddClient("u-1")
	tab2 := b.AddClient("u-1")
	other := b.AddClient("u-2")

	b.Invalidate("u-1", "/dashboard", "/events/e-1")

	for _, c := range []*Client{tab1, tab2} {
		select {
		case raw := <-c.C:
			var msg struct {
				Type    string            `json:"type"`
				Payload InvalidatePayload `json:"payload"`
			}
			if err := json.Unmarshal(raw, &msg); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if msg.Type != MessageInvalidate || len(msg.Payload.Paths) != 2 || msg.Payload.Paths[0] != "/dashboard" {
				t.Fatalf("message = %+v", msg)
			}
		default:
			t.Fatal("client did not receive invalidation")
		}
	}
	select {
	case raw := <-other.C:
		t.Fatalf("other user received %s", raw)
	default:
	}
}

func TestNotifyDoesNotBlockWhenFull(t *testing.T) {
	t.Parallel()

	b := newTestBroker()
	c := b.AddClient("u-1")
	for i := 0; i < cap(c.C)+5; i++ {
		b.NotifyUser("u-1", Message{Type: "ping"})
	}
	if len(c.C) != cap(c.C) {
		t.Fatalf("buffered = %d, want %d", len(c.C), cap(c.C))
	}
}

func TestRemoveClient(t *testing.T) {
	t.Parallel()

	b := newTestBroker()
	c := b.AddClient("u-1")
	keep := b.AddClient("u-1")
	b.RemoveClient(c)
	b.RemoveClient(c)

	if _, open := <-c.C; open {
		t.Fatal("removed client channel still open")
	}
	if got := b.ClientCount("u-1"); got != 1 {
		t.Fatalf("ClientCount() = %d, want 1", got)
	}
	b.RemoveClient(keep)
	if got := b.ClientCount("u-1"); got != 0 {
		t.Fatalf("ClientCount() = %d, want 0", got)
	}
	b.Invalidate("u-1", "/dashboard")
}
