package main

import "sort"

// Root move priorities. Wins outrank blocks, blocks outrank everything
// else; remaining moves rank by center closeness, always below 900.
const (
	prioWin      = 1000
	prioBlockWin = 900
	prioCenter   = 800
	prioStep     = 100
)

type candidateMove struct {
	move     Move
	priority int
	winning  bool
	blocking bool
}

// moveWinsImmediately simulates the drop on the bitboard alone, so the
// board is never touched.
func moveWinsImmediately(board Board, col int, disc Disc) bool {
	row := getDropRow(board, col)
	if row < 0 {
		return false
	}
	bb := getBits(board, disc) | 1<<uint(row*BoardCols+col)
	return bitboardCheckWin(bb)
}

// findImmediateWinColumns lists the columns where a drop by disc wins
// at once, in ascending order.
func findImmediateWinColumns(board Board, disc Disc) []int {
	cols := make([]int, 0, 2)
	for _, col := range legalMoves(board) {
		if moveWinsImmediately(board, col, disc) {
			cols = append(cols, col)
		}
	}
	return cols
}

func hasImmediateWin(board Board, disc Disc) bool {
	for _, col := range legalMoves(board) {
		if moveWinsImmediately(board, col, disc) {
			return true
		}
	}
	return false
}

func otherDisc(disc Disc) Disc {
	if disc == DiscRed {
		return DiscYellow
	}
	return DiscRed
}

func centerPriority(col int) int {
	return prioCenter - prioStep*absInt(col-BoardCols/2)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// orderedMoves ranks every legal drop for the given disc. Immediate
// wins come first, then moves that occupy an opponent winning cell,
// then the rest by center closeness. Equal priorities keep ascending
// column order, which makes the whole ranking deterministic.
func orderedMoves(board Board, me Disc) []candidateMove {
	opp := otherDisc(me)
	cols := legalMoves(board)
	candidates := make([]candidateMove, 0, len(cols))
	for _, col := range cols {
		row := getDropRow(board, col)
		candidate := candidateMove{move: Move{Col: col, Row: row}, priority: centerPriority(col)}
		if moveWinsImmediately(board, col, me) {
			candidate.priority = prioWin
			candidate.winning = true
		} else if moveWinsImmediately(board, col, opp) {
			candidate.priority = prioBlockWin
			candidate.blocking = true
		}
		candidates = append(candidates, candidate)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority > candidates[j].priority
		}
		return candidates[i].move.Col < candidates[j].move.Col
	})
	return candidates
}
