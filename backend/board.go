package main

import (
	"fmt"
	"math/bits"
)

const (
	BoardRows  = 6
	BoardCols  = 7
	BoardCells = BoardRows * BoardCols
)

type Disc int

const (
	DiscNone Disc = iota
	DiscRed
	DiscYellow
)

// Board is the 6x7 Connect-Four grid. Row 0 is the top row, row 5 the
// bottom; discs dropped into a column settle on the lowest empty row.
type Board struct {
	cells []Disc
}

func NewBoard() Board {
	return Board{cells: make([]Disc, BoardCells)}
}

// BoardFromCells builds a board from a row-major int grid (0 empty,
// 1 red, 2 yellow). Malformed dimensions or cell values are rejected.
func BoardFromCells(grid [][]int) (Board, error) {
	if len(grid) != BoardRows {
		return Board{}, fmt.Errorf("%w: expected %d rows, got %d", ErrInvalidBoard, BoardRows, len(grid))
	}
	board := NewBoard()
	for row := 0; row < BoardRows; row++ {
		if len(grid[row]) != BoardCols {
			return Board{}, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrInvalidBoard, row, len(grid[row]), BoardCols)
		}
		for col := 0; col < BoardCols; col++ {
			value := grid[row][col]
			if value < 0 || value > 2 {
				return Board{}, fmt.Errorf("%w: cell (%d,%d) holds %d", ErrInvalidBoard, col, row, value)
			}
			board.cells[board.index(col, row)] = Disc(value)
		}
	}
	return board, nil
}

func (b Board) index(col, row int) int {
	return row*BoardCols + col
}

func (b Board) InBounds(col, row int) bool {
	return col >= 0 && col < BoardCols && row >= 0 && row < BoardRows
}

func (b Board) At(col, row int) Disc {
	return b.cells[b.index(col, row)]
}

func (b *Board) Set(col, row int, disc Disc) {
	b.cells[b.index(col, row)] = disc
}

func (b *Board) Remove(col, row int) {
	b.cells[b.index(col, row)] = DiscNone
}

func (b Board) IsEmpty(col, row int) bool {
	return b.cells[b.index(col, row)] == DiscNone
}

func (b Board) CountEmpty() int {
	count := 0
	for _, cell := range b.cells {
		if cell == DiscNone {
			count++
		}
	}
	return count
}

func (b Board) CountDiscs() int {
	return BoardCells - b.CountEmpty()
}

func (b Board) Clone() Board {
	clone := Board{cells: make([]Disc, len(b.cells))}
	copy(clone.cells, b.cells)
	return clone
}

// getBits packs one player's discs into a 42-bit mask, bit row*7+col.
func getBits(b Board, disc Disc) uint64 {
	var mask uint64
	for i, cell := range b.cells {
		if cell == disc {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

func boardToBitboards(b Board) (red, yellow uint64) {
	for i, cell := range b.cells {
		switch cell {
		case DiscRed:
			red |= 1 << uint(i)
		case DiscYellow:
			yellow |= 1 << uint(i)
		}
	}
	return red, yellow
}

func countBits(mask uint64) int {
	return bits.OnesCount64(mask)
}

// boardFullMask covers all 42 playable bits.
const boardFullMask = uint64(1)<<BoardCells - 1

// dropBit returns the bit a disc dropped into col settles on given the
// occupancy mask, or 0 when the column is full.
func dropBit(occ uint64, col int) uint64 {
	for row := BoardRows - 1; row >= 0; row-- {
		bit := uint64(1) << uint(row*BoardCols+col)
		if occ&bit == 0 {
			return bit
		}
	}
	return 0
}

// Anchor masks for the shift-conjunction win test. An anchor is the
// lowest-index cell of a four-in-a-row; restricting anchors by column
// keeps runs from wrapping across the board edge between rows.
var (
	anchorColsLeft  = repeatRowMask(0x0f) // cols 0..3
	anchorColsRight = repeatRowMask(0x78) // cols 3..6
)

func repeatRowMask(row uint64) uint64 {
	var mask uint64
	for r := 0; r < BoardRows; r++ {
		mask |= row << uint(r*BoardCols)
	}
	return mask
}

// bitboardCheckWin reports whether the mask contains four aligned bits.
// Horizontal and diagonal runs anchor on a restricted column range so a
// run never wraps from col 6 of one row to col 0 of the next. Vertical
// runs need no mask: an anchor below row 2 would require bits past bit
// 41, which a 42-bit mask never carries.
func bitboardCheckWin(bb uint64) bool {
	if bb&(bb>>1)&(bb>>2)&(bb>>3)&anchorColsLeft != 0 {
		return true
	}
	if bb&(bb>>BoardCols)&(bb>>(2*BoardCols))&(bb>>(3*BoardCols)) != 0 {
		return true
	}
	if bb&(bb>>(BoardCols+1))&(bb>>(2*(BoardCols+1)))&(bb>>(3*(BoardCols+1)))&anchorColsLeft != 0 {
		return true
	}
	if bb&(bb>>(BoardCols-1))&(bb>>(2*(BoardCols-1)))&(bb>>(3*(BoardCols-1)))&anchorColsRight != 0 {
		return true
	}
	return false
}

type winDirection struct {
	stride int
	anchor uint64
	dCol   int
	dRow   int
}

var winDirections = [4]winDirection{
	{stride: 1, anchor: anchorColsLeft, dCol: 1, dRow: 0},
	{stride: BoardCols, anchor: ^uint64(0), dCol: 0, dRow: 1},
	{stride: BoardCols + 1, anchor: anchorColsLeft, dCol: 1, dRow: 1},
	{stride: BoardCols - 1, anchor: anchorColsRight, dCol: -1, dRow: 1},
}

// findWinningBits locates one four-in-a-row in the mask and returns its
// cells ordered from the anchor outward.
func findWinningBits(bb uint64) ([]Move, bool) {
	for _, dir := range winDirections {
		conj := bb & (bb >> uint(dir.stride)) & (bb >> uint(2*dir.stride)) & (bb >> uint(3*dir.stride)) & dir.anchor
		if conj == 0 {
			continue
		}
		idx := bits.TrailingZeros64(conj)
		col := idx % BoardCols
		row := idx / BoardCols
		line := make([]Move, 0, 4)
		for i := 0; i < 4; i++ {
			line = append(line, Move{Col: col + i*dir.dCol, Row: row + i*dir.dRow})
		}
		return line, true
	}
	return nil, false
}
