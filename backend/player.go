package main

// Player is a seat at the board: a human feeding moves through the API
// or an engine-backed AI.
type Player interface {
	IsHuman() bool
	ChooseMove(state GameState, rules Rules) Move
}

// HumanPlayer buffers at most one move submitted over the API until the
// game loop collects it on the next tick.
type HumanPlayer struct {
	queued *Move
}

func NewHumanPlayer() *HumanPlayer {
	return &HumanPlayer{}
}

func (h *HumanPlayer) IsHuman() bool {
	return true
}

// ChooseMove is never consulted for humans; the loop drains the queued
// move instead. The off-board move it returns fails rule validation if
// a caller uses it anyway.
func (h *HumanPlayer) ChooseMove(GameState, Rules) Move {
	return Move{Col: -1, Row: -1}
}

func (h *HumanPlayer) QueueMove(move Move) {
	h.queued = &move
}

// TakeQueuedMove drains the buffered move, reporting whether one was
// waiting.
func (h *HumanPlayer) TakeQueuedMove() (Move, bool) {
	if h.queued == nil {
		return Move{Col: -1, Row: -1}, false
	}
	move := *h.queued
	h.queued = nil
	return move, true
}
