package main

import "fmt"

type Rules struct {
	settings GameSettings
}

func NewRules(settings GameSettings) Rules {
	return Rules{settings: settings}
}

// IsLegal checks a drop for the given player against the current state.
// The reason string is empty when the move is legal.
func (r Rules) IsLegal(state GameState, move Move, player PlayerColor) (bool, string) {
	if state.Status != StatusRunning {
		return false, "game not running"
	}
	if player != state.ToMove {
		return false, "not this player's turn"
	}
	return r.IsLegalColumn(state.Board, move.Col)
}

func (r Rules) IsLegalDefault(state GameState, move Move) (bool, string) {
	return r.IsLegal(state, move, state.ToMove)
}

func (r Rules) IsLegalColumn(board Board, col int) (bool, string) {
	if col < 0 || col >= BoardCols {
		return false, fmt.Sprintf("column %d out of range", col)
	}
	if !board.IsEmpty(col, 0) {
		return false, fmt.Sprintf("column %d is full", col)
	}
	return true, ""
}

func (r Rules) IsWin(board Board, disc Disc) bool {
	return bitboardCheckWin(getBits(board, disc))
}

func (r Rules) IsDraw(board Board) bool {
	return board.CountEmpty() == 0
}

// FindWinningLine returns the four cells of a completed alignment for
// the given disc, if any.
func (r Rules) FindWinningLine(board Board, disc Disc) ([]Move, bool) {
	return findWinningBits(getBits(board, disc))
}
