package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/dreschagin/ddc-kiosk/pkg/logger"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	log := logger.New("error")
	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	a := NewClient(hub, nil, "", log)
	b := NewClient(hub, nil, "", log)
	hub.Register(a)
	hub.Register(b)
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	hub.Broadcast("gallery", map[string]int{"count": 3})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Type != "gallery" {
				t.Fatalf("unexpected message type %s", msg.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("client did not receive broadcast")
		}
	}

	hub.Unregister(a)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })
	if _, ok := <-a.send; ok {
		t.Fatalf("send channel must be closed after unregister")
	}
}

func TestHub_SlowClientDisconnected(t *testing.T) {
	log := logger.New("error")
	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	slow := NewClient(hub, nil, "", log)
	hub.Register(slow)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	for i := 0; i < sendBuffer+1; i++ {
		hub.Broadcast("viewport", i)
	}
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestHub_StopClosesClients(t *testing.T) {
	log := logger.New("error")
	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	c := NewClient(hub, nil, "", log)
	hub.Register(c)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	cancel()
	<-done
	if hub.ClientCount() != 0 {
		t.Fatalf("expected no clients after stop")
	}
}

func TestHub_SendToSessionReachesOwnerOnly(t *testing.T) {
	log := logger.New("error")
	hub := NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	owner := NewClient(hub, nil, "kiosk-1", log)
	other := NewClient(hub, nil, "kiosk-2", log)
	anonymous := NewClient(hub, nil, "", log)
	for _, c := range []*Client{owner, other, anonymous} {
		hub.Register(c)
	}
	waitFor(t, func() bool { return hub.ClientCount() == 3 })

	hub.SendToSession("kiosk-1", "viewport", map[string]float64{"zoom": 1.2})
	hub.SendToSession("", "viewport", "ignored")
	hub.Broadcast("gallery", map[string]int{"count": 1})

	select {
	case msg := <-owner.send:
		if msg.Type != "viewport" {
			t.Fatalf("owner expected viewport first, got %s", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("owner did not receive its snapshot")
	}

	// общие события доходят до всех; чужой snapshot нет
	for name, c := range map[string]*Client{"owner": owner, "other": other, "anonymous": anonymous} {
		select {
		case msg := <-c.send:
			if msg.Type != "gallery" {
				t.Fatalf("%s: expected gallery, got %s", name, msg.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: did not receive broadcast", name)
		}
		if len(c.send) != 0 {
			t.Fatalf("%s: unexpected extra messages: %d", name, len(c.send))
		}
	}
}
