package main

type PlayerColor int

type GameStatus int

const (
	PlayerRed PlayerColor = iota
	PlayerYellow
)

const (
	StatusNotStarted GameStatus = iota
	StatusRunning
	StatusRedWon
	StatusYellowWon
	StatusDraw
)

type GameState struct {
	Board       Board
	ToMove      PlayerColor
	Status      GameStatus
	HasLastMove bool
	LastMove    Move
	Hash        uint64
	LastMessage string
	WinningLine []Move
}

func DefaultGameState(settings GameSettings) GameState {
	state := GameState{}
	state.Reset(settings)
	return state
}

func (s *GameState) Reset(settings GameSettings) {
	s.Board = NewBoard()
	if settings.RedStarts {
		s.ToMove = PlayerRed
	} else {
		s.ToMove = PlayerYellow
	}
	s.Status = StatusNotStarted
	s.HasLastMove = false
	s.LastMove = Move{Col: -1, Row: -1}
	s.LastMessage = ""
	s.WinningLine = nil
	s.recomputeHash()
}

func (s GameState) Clone() GameState {
	clone := s
	clone.Board = s.Board.Clone()
	clone.WinningLine = append([]Move(nil), s.WinningLine...)
	return clone
}

func otherPlayer(player PlayerColor) PlayerColor {
	if player == PlayerRed {
		return PlayerYellow
	}
	return PlayerRed
}

func DiscFromPlayer(player PlayerColor) Disc {
	if player == PlayerRed {
		return DiscRed
	}
	return DiscYellow
}

func PlayerFromDisc(disc Disc) (PlayerColor, bool) {
	switch disc {
	case DiscRed:
		return PlayerRed, true
	case DiscYellow:
		return PlayerYellow, true
	default:
		return PlayerRed, false
	}
}

func (s *GameState) recomputeHash() {
	s.Hash = computeHash(s.Board, s.ToMove)
}

// undoRecord captures everything applyDrop mutates so undoDrop can
// restore the exact prior state, hash included.
type undoRecord struct {
	move     Move
	toMove   PlayerColor
	status   GameStatus
	hash     uint64
	lastMove Move
	hasLast  bool
}

// applyDrop plays a disc for the side to move, updating status, hash
// and turn. It returns false without touching the state when the column
// is full or out of range, or the game is not running.
func applyDrop(state *GameState, col int) (undoRecord, bool) {
	if state.Status != StatusRunning {
		return undoRecord{}, false
	}
	row := getDropRow(state.Board, col)
	if row < 0 {
		return undoRecord{}, false
	}
	rec := undoRecord{
		move:     Move{Col: col, Row: row},
		toMove:   state.ToMove,
		status:   state.Status,
		hash:     state.Hash,
		lastMove: state.LastMove,
		hasLast:  state.HasLastMove,
	}
	mover := state.ToMove
	disc := DiscFromPlayer(mover)
	state.Board.Set(col, row, disc)
	state.LastMove = rec.move
	state.HasLastMove = true
	if bitboardCheckWin(getBits(state.Board, disc)) {
		if mover == PlayerRed {
			state.Status = StatusRedWon
		} else {
			state.Status = StatusYellowWon
		}
	} else if state.Board.CountEmpty() == 0 {
		state.Status = StatusDraw
	}
	state.ToMove = otherPlayer(mover)
	updateHashAfterDrop(state, rec.move, mover)
	return rec, true
}

func undoDrop(state *GameState, rec undoRecord) {
	state.Board.Remove(rec.move.Col, rec.move.Row)
	state.ToMove = rec.toMove
	state.Status = rec.status
	state.Hash = rec.hash
	state.LastMove = rec.lastMove
	state.HasLastMove = rec.hasLast
}

// applyNull passes the turn without dropping a disc. Only the search
// uses this; it is never a legal game move.
func applyNull(state *GameState) undoRecord {
	rec := undoRecord{toMove: state.ToMove, status: state.Status, hash: state.Hash, lastMove: state.LastMove, hasLast: state.HasLastMove}
	state.ToMove = otherPlayer(state.ToMove)
	state.Hash ^= zobrist.side
	return rec
}

func undoNull(state *GameState, rec undoRecord) {
	state.ToMove = rec.toMove
	state.Hash = rec.hash
}
