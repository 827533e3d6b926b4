package main

// ZobristTable holds one random key per (cell, disc) pair plus a
// side-to-move key. The keys come from a fixed splitmix64 seed so
// hashes are reproducible across runs.
type ZobristTable struct {
	cells [BoardCells * 2]uint64
	side  uint64
}

// zobristSeed pins the key stream. Changing it invalidates any hash a
// caller persisted, so it stays a compile-time constant.
const zobristSeed uint64 = 0x9e3779b97f4a7c15

var zobrist = newZobristTable(zobristSeed)

// newZobristTable walks the splitmix64 sequence: each key is mixKey of
// the running state, strided by the splitmix gamma.
func newZobristTable(seed uint64) *ZobristTable {
	table := &ZobristTable{}
	state := seed ^ uint64(BoardCells)
	for i := range table.cells {
		table.cells[i] = mixKey(state)
		state += 0x9e3779b97f4a7c15
	}
	table.side = mixKey(state)
	return table
}

func (z *ZobristTable) disc(col, row int, disc Disc) uint64 {
	idx := (row*BoardCols + col) * 2
	if disc == DiscYellow {
		idx++
	}
	return z.cells[idx]
}

func computeHash(board Board, toMove PlayerColor) uint64 {
	var hash uint64
	for row := 0; row < BoardRows; row++ {
		for col := 0; col < BoardCols; col++ {
			cell := board.At(col, row)
			if cell == DiscNone {
				continue
			}
			hash ^= zobrist.disc(col, row, cell)
		}
	}
	if toMove == PlayerYellow {
		hash ^= zobrist.side
	}
	return hash
}

// updateHashAfterDrop refreshes state.Hash incrementally after mover
// dropped at move. The side key toggles on every move.
func updateHashAfterDrop(state *GameState, move Move, mover PlayerColor) {
	hash := state.Hash
	hash ^= zobrist.disc(move.Col, move.Row, DiscFromPlayer(mover))
	hash ^= zobrist.side
	state.Hash = hash
}

// mixKey is the splitmix64 step for a single value: gamma increment
// followed by the xorshift-multiply avalanche.
func mixKey(v uint64) uint64 {
	v += 0x9e3779b97f4a7c15
	v = (v ^ (v >> 30)) * 0xbf58476d1ce4e5b9
	v = (v ^ (v >> 27)) * 0x94d049bb133111eb
	return v ^ (v >> 31)
}
