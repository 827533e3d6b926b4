package main

import (
	"encoding/json"
	"testing"
)

func drainOne(t *testing.T, sub *wsSubscriber) wsMessage {
	t.Helper()
	var msg wsMessage
	select {
	case data := <-sub.send:
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
	default:
		t.Fatal("expected a queued frame")
	}
	return msg
}

func TestRosterFanoutMatchesKeys(t *testing.T) {
	roster := newWSRoster()
	mine := newWSSubscriber("game-1")
	other := newWSSubscriber("game-2")
	all := newWSSubscriber("")
	roster.add(mine)
	roster.add(other)
	roster.add(all)

	roster.fanout("game-1", wsMessage{Type: "status"})

	if msg := drainOne(t, mine); msg.Type != "status" {
		t.Fatalf("keyed subscriber got %q", msg.Type)
	}
	if msg := drainOne(t, all); msg.Type != "status" {
		t.Fatalf("catch-all subscriber got %q", msg.Type)
	}
	if len(other.send) != 0 {
		t.Fatal("subscriber for another game received the frame")
	}

	roster.fanout("", wsMessage{Type: "settings"})
	if len(mine.send) != 1 || len(other.send) != 1 || len(all.send) != 1 {
		t.Fatal("keyless fanout should reach every subscriber")
	}
}

func TestRosterFanoutDropsWhenQueueFull(t *testing.T) {
	roster := newWSRoster()
	sub := newWSSubscriber("g")
	roster.add(sub)

	for i := 0; i < cap(sub.send)+5; i++ {
		roster.fanout("g", wsMessage{Type: "status"})
	}
	if len(sub.send) != cap(sub.send) {
		t.Fatalf("expected a full queue, got %d of %d", len(sub.send), cap(sub.send))
	}
}

func TestRosterRemoveIsIdempotent(t *testing.T) {
	roster := newWSRoster()
	sub := newWSSubscriber("")
	roster.add(sub)
	if !roster.active() {
		t.Fatal("roster should report an active subscriber")
	}

	roster.remove(sub)
	roster.remove(sub)

	if roster.active() {
		t.Fatal("roster still active after removal")
	}
	if _, open := <-sub.send; open {
		t.Fatal("send queue should be closed after removal")
	}
}

func TestHubSubscribeScopesToGame(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("game-7")
	defer hub.Unsubscribe(sub)

	hub.roster.fanout("game-7", wsMessage{Type: "status"})
	hub.roster.fanout("game-8", wsMessage{Type: "status"})

	if len(sub.send) != 1 {
		t.Fatalf("expected exactly one frame, got %d", len(sub.send))
	}
}
