package main

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// wsSubscriber is one websocket client's outbound queue. A subscriber
// keyed to a game id only matches fanouts for that game; an empty key
// subscribes to everything.
type wsSubscriber struct {
	key  string
	send chan []byte
}

func newWSSubscriber(key string) *wsSubscriber {
	return &wsSubscriber{key: key, send: make(chan []byte, 16)}
}

// push queues one message for this subscriber alone, dropping it when
// the queue is full.
func (s *wsSubscriber) push(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case s.send <- data:
	default:
	}
}

// wsRoster is the subscriber set behind every hub. Fanout marshals a
// message once and never blocks on a slow client.
type wsRoster struct {
	mu   sync.Mutex
	subs map[*wsSubscriber]struct{}
}

func newWSRoster() *wsRoster {
	return &wsRoster{subs: make(map[*wsSubscriber]struct{})}
}

func (r *wsRoster) add(s *wsSubscriber) {
	r.mu.Lock()
	r.subs[s] = struct{}{}
	r.mu.Unlock()
}

// remove drops a subscriber and closes its queue exactly once.
func (r *wsRoster) remove(s *wsSubscriber) {
	r.mu.Lock()
	if _, ok := r.subs[s]; ok {
		delete(r.subs, s)
		close(s.send)
	}
	r.mu.Unlock()
}

func (r *wsRoster) active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs) > 0
}

// fanout delivers msg to every subscriber matching key. An empty key on
// either side matches everything.
func (r *wsRoster) fanout(key string, msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	r.mu.Lock()
	for sub := range r.subs {
		if sub.key != "" && key != "" && sub.key != key {
			continue
		}
		select {
		case sub.send <- data:
		default:
		}
	}
	r.mu.Unlock()
}

// Hub fans game events out to websocket clients. Status and history
// events carry the game id they belong to; settings changes are global.
type Hub struct {
	roster            *wsRoster
	broadcastStatus   chan gameResponse
	broadcastHistory  chan historyPayload
	broadcastSettings chan settingsPayload
	broadcastRemoved  chan removedPayload
}

type historyPayload struct {
	GameID  string            `json:"game_id"`
	History []historyEntryDTO `json:"history"`
}

type settingsPayload struct {
	Config Config `json:"config"`
}

type removedPayload struct {
	GameID string `json:"game_id"`
}

func NewHub() *Hub {
	return &Hub{
		roster:            newWSRoster(),
		broadcastStatus:   make(chan gameResponse, 32),
		broadcastHistory:  make(chan historyPayload, 32),
		broadcastSettings: make(chan settingsPayload, 8),
		broadcastRemoved:  make(chan removedPayload, 8),
	}
}

func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case payload := <-h.broadcastStatus:
			h.roster.fanout(payload.ID, wsMessage{Type: "status", Payload: mustMarshal(payload)})
		case payload := <-h.broadcastHistory:
			h.roster.fanout(payload.GameID, wsMessage{Type: "history", Payload: mustMarshal(payload)})
		case payload := <-h.broadcastSettings:
			h.roster.fanout("", wsMessage{Type: "settings", Payload: mustMarshal(payload)})
		case payload := <-h.broadcastRemoved:
			h.roster.fanout(payload.GameID, wsMessage{Type: "game_removed", Payload: mustMarshal(payload)})
		}
	}
}

// Subscribe attaches a new client scoped to one game id, or to all
// games when the id is empty.
func (h *Hub) Subscribe(gameID string) *wsSubscriber {
	sub := newWSSubscriber(gameID)
	h.roster.add(sub)
	return sub
}

func (h *Hub) Unsubscribe(sub *wsSubscriber) {
	h.roster.remove(sub)
}
