package main

import "testing"

func TestEvaluateBoardEmptyIsZero(t *testing.T) {
	board := NewBoard()
	config := DefaultConfig()
	if score := evaluateBoard(board, DiscRed, config); score != 0 {
		t.Fatalf("expected empty board to score 0, got %f", score)
	}
	if score := evaluateBoard(board, DiscYellow, config); score != 0 {
		t.Fatalf("expected empty board to score 0, got %f", score)
	}
}

func TestEvaluateBoardCenterBonus(t *testing.T) {
	// A lone disc in col 3 touches no scoring window twice, so the
	// whole score is the center term: closeness 3 times the weight.
	board := NewBoard()
	board.Set(3, 5, DiscRed)
	config := DefaultConfig()
	weights := resolvedHeuristicConfig(config)

	want := 3 * weights.CenterWeight
	if score := evaluateBoard(board, DiscRed, config); score != want {
		t.Fatalf("expected center disc to score %f, got %f", want, score)
	}
	if score := evaluateBoard(board, DiscYellow, config); score != -want {
		t.Fatalf("expected opponent view to score %f, got %f", -want, score)
	}

	edge := NewBoard()
	edge.Set(0, 5, DiscRed)
	if score := evaluateBoard(edge, DiscRed, config); score != 0 {
		t.Fatalf("expected edge disc to earn no center bonus, got %f", score)
	}
}

func TestEvaluateBoardNegationSymmetry(t *testing.T) {
	board := NewBoard()
	board.Set(3, 5, DiscRed)
	board.Set(2, 5, DiscYellow)
	board.Set(3, 4, DiscRed)
	board.Set(4, 5, DiscYellow)
	board.Set(3, 3, DiscRed)
	config := DefaultConfig()

	red := evaluateBoard(board, DiscRed, config)
	yellow := evaluateBoard(board, DiscYellow, config)
	if red != -yellow {
		t.Fatalf("expected perspectives to negate, got red %f yellow %f", red, yellow)
	}
	if red <= 0 {
		t.Fatalf("expected red's center stack to score positive, got %f", red)
	}
}

func TestEvaluateBoardWindowCounts(t *testing.T) {
	// Col 0 earns no center bonus, so a vertical stack there isolates
	// the window terms. Three discs fill one window at count 3 and one
	// at count 2; every other window they touch holds a single disc.
	config := DefaultConfig()
	weights := resolvedHeuristicConfig(config)

	two := NewBoard()
	two.Set(0, 5, DiscRed)
	two.Set(0, 4, DiscRed)
	if score := evaluateBoard(two, DiscRed, config); score != weights.WindowTwo {
		t.Fatalf("expected two-stack to score %f, got %f", weights.WindowTwo, score)
	}

	three := NewBoard()
	three.Set(0, 5, DiscRed)
	three.Set(0, 4, DiscRed)
	three.Set(0, 3, DiscRed)
	want := weights.WindowThree + weights.WindowTwo
	if score := evaluateBoard(three, DiscRed, config); score != want {
		t.Fatalf("expected three-stack to score %f, got %f", want, score)
	}
}

func TestEvaluateBoardDeadWindowContributesNothing(t *testing.T) {
	// Capping the col 0 stack with a yellow disc poisons every vertical
	// window in that column; all remaining windows hold one disc at
	// most, so the whole position collapses to zero.
	board := NewBoard()
	board.Set(0, 5, DiscRed)
	board.Set(0, 4, DiscRed)
	board.Set(0, 3, DiscRed)
	board.Set(0, 2, DiscYellow)
	config := DefaultConfig()

	if score := evaluateBoard(board, DiscRed, config); score != 0 {
		t.Fatalf("expected dead column to score 0, got %f", score)
	}
}

func TestEvaluateBoardMirroredPositionIsBalanced(t *testing.T) {
	board := NewBoard()
	board.Set(0, 5, DiscRed)
	board.Set(6, 5, DiscYellow)
	board.Set(1, 5, DiscRed)
	board.Set(5, 5, DiscYellow)
	config := DefaultConfig()

	if score := evaluateBoard(board, DiscRed, config); score != 0 {
		t.Fatalf("expected mirrored position to score 0, got %f", score)
	}
}

func TestBuildEvalWindowsCoverage(t *testing.T) {
	if len(evalWindows) != 69 {
		t.Fatalf("expected 69 windows, got %d", len(evalWindows))
	}
	seen := make(map[evalWindow]bool, len(evalWindows))
	for _, window := range evalWindows {
		if seen[window] {
			t.Fatalf("expected unique windows, got duplicate %v", window)
		}
		seen[window] = true
		for _, idx := range window {
			if idx < 0 || idx >= BoardCells {
				t.Fatalf("expected window cells inside the board, got index %d", idx)
			}
		}
	}
}

func TestResolvedHeuristicConfigFillsZeroWeights(t *testing.T) {
	defaults := DefaultConfig().Heuristics

	var config Config
	if got := resolvedHeuristicConfig(config); got != defaults {
		t.Fatalf("expected zero config to resolve to defaults, got %+v", got)
	}

	config.Heuristics = HeuristicConfig{WindowFour: 250}
	got := resolvedHeuristicConfig(config)
	if got.WindowFour != 250 {
		t.Fatalf("expected explicit weight to survive, got %f", got.WindowFour)
	}
	if got.WindowThree != defaults.WindowThree || got.WindowTwo != defaults.WindowTwo || got.CenterWeight != defaults.CenterWeight {
		t.Fatalf("expected unset weights to fall back to defaults, got %+v", got)
	}
}
