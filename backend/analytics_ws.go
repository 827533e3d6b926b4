package main

import (
	"net/http"
	"strconv"
	"time"
)

type queueEntryDTO struct {
	ID                  string  `json:"id"`
	Board               [][]int `json:"board,omitempty"`
	NextDisc            int     `json:"next_disc,omitempty"`
	Mode                string  `json:"mode,omitempty"`
	BudgetMs            int     `json:"budget_ms,omitempty"`
	Depth               int     `json:"depth,omitempty"`
	Interactive         bool    `json:"interactive,omitempty"`
	Analyzing           bool    `json:"analyzing,omitempty"`
	EnqueuedAt          int64   `json:"enqueued_at_ms,omitempty"`
	AnalysisStartedAtMs int64   `json:"analysis_started_at_ms,omitempty"`
}

type queueSnapshot struct {
	Queue        []queueEntryDTO `json:"queue"`
	TotalInQueue int             `json:"total_in_queue"`
}

type analyticsPayload struct {
	Event        string `json:"event"`
	EntryID      string `json:"entry_id,omitempty"`
	TotalInQueue int    `json:"total_in_queue"`
	UpdatedAt    int64  `json:"updated_at_ms"`
}

// AnalyticsHub streams queue lifecycle events to observers of the
// analysis worker.
type AnalyticsHub struct {
	roster    *wsRoster
	broadcast chan analyticsPayload
}

func NewAnalyticsHub() *AnalyticsHub {
	return &AnalyticsHub{
		roster:    newWSRoster(),
		broadcast: make(chan analyticsPayload, 64),
	}
}

func (h *AnalyticsHub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case payload := <-h.broadcast:
			h.roster.fanout("", wsMessage{Type: "analytics", Payload: mustMarshal(payload)})
		}
	}
}

func (h *AnalyticsHub) Publish(payload analyticsPayload) {
	select {
	case h.broadcast <- payload:
	default:
	}
}

func publishQueueEvent(hub *AnalyticsHub, event string, entryID string, total int) {
	if hub == nil {
		return
	}
	hub.Publish(analyticsPayload{
		Event:        event,
		EntryID:      entryID,
		TotalInQueue: total,
		UpdatedAt:    time.Now().UnixMilli(),
	})
}

func serveAnalyticsWS(hub *AnalyticsHub, queue *AnalysisQueue, w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sub := newWSSubscriber("")
	hub.roster.add(sub)

	initial := analyticsPayload{
		Event:        "snapshot",
		TotalInQueue: queue.TotalQueued(),
		UpdatedAt:    time.Now().UnixMilli(),
	}
	sub.push(wsMessage{Type: "analytics", Payload: mustMarshal(initial)})

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

// positionID renders a zobrist hash as the public id queue entries and
// analytics events carry.
func positionID(hash uint64) string {
	return "0x" + strconv.FormatUint(hash, 16)
}

// boardGrid renders a board as rows from top to bottom, the same
// orientation the REST API accepts.
func boardGrid(board Board) [][]int {
	result := make([][]int, BoardRows)
	for row := 0; row < BoardRows; row++ {
		line := make([]int, BoardCols)
		for col := 0; col < BoardCols; col++ {
			line[col] = discToInt(board.At(col, row))
		}
		result[row] = line
	}
	return result
}
