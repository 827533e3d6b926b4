package main

import (
	"net/http"
)

// hintPayload streams the suggestion engine's best move so far. Active
// false tells clients to clear any hint they are showing.
type hintPayload struct {
	GameID   string  `json:"game_id,omitempty"`
	Col      int     `json:"col"`
	Row      int     `json:"row"`
	Depth    int     `json:"depth,omitempty"`
	Score    float64 `json:"score,omitempty"`
	Source   string  `json:"source,omitempty"`
	NextDisc int     `json:"next_disc,omitempty"`
	Final    bool    `json:"final,omitempty"`
	Active   bool    `json:"active"`
}

func hintPayloadFromUpdate(update HintUpdate, nextDisc int) hintPayload {
	return hintPayload{
		Col:      update.Move.Col,
		Row:      update.Move.Row,
		Depth:    update.Depth,
		Score:    update.Score,
		Source:   string(update.Source),
		NextDisc: nextDisc,
		Final:    update.Final,
		Active:   true,
	}
}

// HintHub relays suggestion updates to every connected hint client.
// Games stop paying for hint searches while nobody is listening.
type HintHub struct {
	roster    *wsRoster
	broadcast chan hintPayload
}

func NewHintHub() *HintHub {
	return &HintHub{
		roster:    newWSRoster(),
		broadcast: make(chan hintPayload, 32),
	}
}

func (h *HintHub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case payload := <-h.broadcast:
			h.roster.fanout("", wsMessage{Type: "hint", Payload: mustMarshal(payload)})
		}
	}
}

// Publish never blocks; hints are advisory and losing one is fine.
func (h *HintHub) Publish(payload hintPayload) {
	select {
	case h.broadcast <- payload:
	default:
	}
}

func (h *HintHub) HasClients() bool {
	return h.roster.active()
}

func serveHintWS(hub *HintHub, w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sub := newWSSubscriber("")
	hub.roster.add(sub)

	go func() {
		defer conn.Close()
		_ = runWSWritePump(conn, sub.send)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			hub.roster.remove(sub)
			return
		}
	}
}
