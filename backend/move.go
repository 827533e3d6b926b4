package main

// Move is a disc drop: the chosen column plus the row it settled on.
type Move struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

func (m Move) IsValid() bool {
	return m.Col >= 0 && m.Col < BoardCols && m.Row >= 0 && m.Row < BoardRows
}

func (m Move) Equals(other Move) bool {
	return m.Col == other.Col && m.Row == other.Row
}

// getDropRow returns the row a disc dropped into col settles on, or -1
// when the column is full.
func getDropRow(board Board, col int) int {
	if col < 0 || col >= BoardCols {
		return -1
	}
	for row := BoardRows - 1; row >= 0; row-- {
		if board.IsEmpty(col, row) {
			return row
		}
	}
	return -1
}

// legalMoves lists the playable columns in ascending order.
func legalMoves(board Board) []int {
	cols := make([]int, 0, BoardCols)
	for col := 0; col < BoardCols; col++ {
		if board.IsEmpty(col, 0) {
			cols = append(cols, col)
		}
	}
	return cols
}
