package main

// A window is any four aligned cells. The 6x7 board has 69 of them:
// 24 horizontal, 21 vertical, 12 per diagonal direction.
type evalWindow [4]int

var evalWindows = buildEvalWindows()

func buildEvalWindows() []evalWindow {
	windows := make([]evalWindow, 0, 69)
	add := func(col, row, dCol, dRow int) {
		var w evalWindow
		for i := 0; i < 4; i++ {
			w[i] = (row+i*dRow)*BoardCols + (col + i*dCol)
		}
		windows = append(windows, w)
	}
	for row := 0; row < BoardRows; row++ {
		for col := 0; col+3 < BoardCols; col++ {
			add(col, row, 1, 0)
		}
	}
	for col := 0; col < BoardCols; col++ {
		for row := 0; row+3 < BoardRows; row++ {
			add(col, row, 0, 1)
		}
	}
	for row := 0; row+3 < BoardRows; row++ {
		for col := 0; col+3 < BoardCols; col++ {
			add(col, row, 1, 1)
		}
	}
	for row := 0; row+3 < BoardRows; row++ {
		for col := 3; col < BoardCols; col++ {
			add(col, row, -1, 1)
		}
	}
	return windows
}

// centerCloseness maps a column to 3 - distance from the center column,
// so col 3 scores 3 and the edge columns score 0.
var centerCloseness = [BoardCols]int{0, 1, 2, 3, 2, 1, 0}

// evaluateBoard scores the position from the given disc's perspective.
// Each window counts its discs per color: windows holding both colors
// are dead and contribute nothing, pure windows contribute the weight
// for their disc count, negated when the discs belong to the opponent.
// Every own disc also earns a bonus scaled by its closeness to the
// center column.
func evaluateBoard(board Board, me Disc, config Config) float64 {
	weights := resolvedHeuristicConfig(config)
	opp := DiscRed
	if me == DiscRed {
		opp = DiscYellow
	}

	score := 0.0
	for _, window := range evalWindows {
		mine, theirs := 0, 0
		for _, idx := range window {
			switch board.cells[idx] {
			case me:
				mine++
			case opp:
				theirs++
			}
		}
		if mine > 0 && theirs > 0 {
			continue
		}
		if mine > 0 {
			score += windowWeight(mine, weights)
		} else if theirs > 0 {
			score -= windowWeight(theirs, weights)
		}
	}

	for col := 0; col < BoardCols; col++ {
		closeness := float64(centerCloseness[col])
		if closeness == 0 {
			continue
		}
		for row := 0; row < BoardRows; row++ {
			switch board.At(col, row) {
			case me:
				score += weights.CenterWeight * closeness
			case opp:
				score -= weights.CenterWeight * closeness
			}
		}
	}
	return score
}

func windowWeight(count int, weights HeuristicConfig) float64 {
	switch count {
	case 4:
		return weights.WindowFour
	case 3:
		return weights.WindowThree
	case 2:
		return weights.WindowTwo
	default:
		return 0
	}
}
