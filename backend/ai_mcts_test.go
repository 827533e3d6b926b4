package main

import (
	"math/rand"
	"testing"
)

func mctsTestConfig() Config {
	config := DefaultConfig()
	config.AiLogSearchStats = false
	return config
}

func TestRunMCTSSimulationCapIsExact(t *testing.T) {
	// Every iteration descends through exactly one root child, so the
	// root visit counts must add up to the simulation cap.
	state := runningState(true)
	state.recomputeHash()
	config := mctsTestConfig()
	config.MctsMaxSimulations = 200

	stats := &MCTSStats{}
	rng := rand.New(rand.NewSource(1))
	move, _, ok := runMCTS(state, config, rng, 0, nil, stats)
	if !ok {
		t.Fatalf("expected a decision on an open board")
	}
	if !move.IsValid() {
		t.Fatalf("expected a legal move, got %+v", move)
	}
	if stats.Simulations != 200 {
		t.Fatalf("expected exactly 200 simulations, got %d", stats.Simulations)
	}
	total := 0
	for _, visits := range stats.RootVisits {
		total += visits
	}
	if total != 200 {
		t.Fatalf("expected root visits to sum to 200, got %d", total)
	}
	if stats.Expansions == 0 || stats.TreeSize <= BoardCols {
		t.Fatalf("expected the tree to grow, got %d expansions over %d nodes", stats.Expansions, stats.TreeSize)
	}
}

func TestRunMCTSFindsImmediateWin(t *testing.T) {
	// Red's vertical three in col 2 wins at once; playouts from every
	// other child start with yellow blocking, so the winning child's
	// perfect rate must dominate the visits.
	state := runningState(true)
	state.Board.Set(2, 5, DiscRed)
	state.Board.Set(2, 4, DiscRed)
	state.Board.Set(2, 3, DiscRed)
	state.Board.Set(0, 5, DiscYellow)
	state.Board.Set(4, 5, DiscYellow)
	state.Board.Set(6, 5, DiscYellow)
	state.recomputeHash()

	config := mctsTestConfig()
	config.MctsMaxSimulations = 600
	rng := rand.New(rand.NewSource(7))
	move, winRate, ok := runMCTS(state, config, rng, 0, nil, nil)
	if !ok {
		t.Fatalf("expected a decision")
	}
	if move.Col != 2 || move.Row != 2 {
		t.Fatalf("expected the winning drop (2,2), got %+v", move)
	}
	if winRate != 1.0 {
		t.Fatalf("expected a perfect win rate on a terminal child, got %f", winRate)
	}
}

func TestRunMCTSDeterministicWithSeed(t *testing.T) {
	state := runningState(true)
	state.Board.Set(3, 5, DiscRed)
	state.Board.Set(2, 5, DiscYellow)
	state.recomputeHash()
	config := mctsTestConfig()
	config.MctsMaxSimulations = 300

	run := func() (Move, float64) {
		rng := rand.New(rand.NewSource(42))
		move, winRate, ok := runMCTS(state, config, rng, 0, nil, nil)
		if !ok {
			t.Fatalf("expected a decision")
		}
		return move, winRate
	}
	move1, rate1 := run()
	move2, rate2 := run()
	if move1 != move2 || rate1 != rate2 {
		t.Fatalf("expected seeded runs to repeat, got %+v %f then %+v %f", move1, rate1, move2, rate2)
	}
}

func TestPlayoutColumnGreedyAtLowTemperature(t *testing.T) {
	// Yellow threatens cols 0 and 4. At near-zero temperature the
	// policy must pick the highest priority deterministically, taking
	// the lowest column on the tie.
	state := runningState(true)
	state.Board.Set(1, 5, DiscYellow)
	state.Board.Set(2, 5, DiscYellow)
	state.Board.Set(3, 5, DiscYellow)
	config := mctsTestConfig()
	config.MctsPlayoutTemp = 0.005

	tree := newMCTSTree(state, config, rand.New(rand.NewSource(1)), nil)
	for i := 0; i < 20; i++ {
		col, ok := tree.playoutColumn(state.Board, DiscRed)
		if !ok {
			t.Fatalf("expected a playable column")
		}
		if col != 0 {
			t.Fatalf("expected greedy policy to always block col 0, got %d", col)
		}
	}
}

func TestPlayoutColumnSoftmaxFavorsBlocks(t *testing.T) {
	state := runningState(true)
	state.Board.Set(1, 5, DiscYellow)
	state.Board.Set(2, 5, DiscYellow)
	state.Board.Set(3, 5, DiscYellow)
	config := mctsTestConfig()

	tree := newMCTSTree(state, config, rand.New(rand.NewSource(3)), nil)
	blocks := 0
	for i := 0; i < 200; i++ {
		col, ok := tree.playoutColumn(state.Board, DiscRed)
		if !ok {
			t.Fatalf("expected a playable column")
		}
		if col == 0 || col == 4 {
			blocks++
		}
	}
	// The two blocking columns hold roughly three quarters of the
	// softmax mass at temperature 1.
	if blocks < 100 {
		t.Fatalf("expected the blocking columns to dominate playouts, got %d of 200", blocks)
	}
}

func TestPlayoutTruncationByPlyCap(t *testing.T) {
	state := runningState(true)
	state.recomputeHash()
	config := mctsTestConfig()
	config.MctsMaxSimulations = 50
	config.MctsMaxPlayoutPlies = 4

	stats := &MCTSStats{}
	rng := rand.New(rand.NewSource(5))
	if _, _, ok := runMCTS(state, config, rng, 0, nil, stats); !ok {
		t.Fatalf("expected a decision")
	}
	if stats.PlayoutPlies > 50*4 {
		t.Fatalf("expected at most %d playout plies, got %d", 50*4, stats.PlayoutPlies)
	}
}

func TestBackpropagateCreditsTheMover(t *testing.T) {
	state := runningState(true)
	state.recomputeHash()
	tree := newMCTSTree(state, mctsTestConfig(), rand.New(rand.NewSource(1)), nil)
	tree.expand(0)
	child := int(tree.nodes[0].children[3])

	// Red moved into the child, so a red win credits the child but not
	// the root, where yellow was the mover.
	tree.backpropagate(child, DiscRed)
	if tree.nodes[child].visits != 1 || tree.nodes[child].wins != 1 {
		t.Fatalf("expected the winning mover's node to score 1/1, got %f/%d", tree.nodes[child].wins, tree.nodes[child].visits)
	}
	if tree.nodes[0].visits != 1 || tree.nodes[0].wins != 0 {
		t.Fatalf("expected the root to count the visit without credit, got %f/%d", tree.nodes[0].wins, tree.nodes[0].visits)
	}

	tree.backpropagate(child, DiscNone)
	if tree.nodes[child].wins != 1.5 || tree.nodes[0].wins != 0.5 {
		t.Fatalf("expected a draw to credit both sides half, got %f and %f", tree.nodes[child].wins, tree.nodes[0].wins)
	}
}

func TestRunMCTSHandlesDeadPositions(t *testing.T) {
	idle := DefaultGameState(DefaultGameSettings())
	if _, _, ok := runMCTS(idle, mctsTestConfig(), rand.New(rand.NewSource(1)), 0, nil, nil); ok {
		t.Fatalf("expected no decision when the game is not running")
	}

	full := runningState(true)
	fillBoardWithoutWin(&full.Board)
	full.recomputeHash()
	if _, _, ok := runMCTS(full, mctsTestConfig(), rand.New(rand.NewSource(1)), 0, nil, nil); ok {
		t.Fatalf("expected no decision on a full board")
	}
}

func TestRunMCTSStopSignal(t *testing.T) {
	state := runningState(true)
	state.recomputeHash()
	config := mctsTestConfig()
	config.MctsMaxSimulations = 10000

	stats := &MCTSStats{}
	move, _, ok := runMCTS(state, config, rand.New(rand.NewSource(1)), 0, func() bool { return true }, stats)
	if !ok {
		t.Fatalf("expected a fallback decision")
	}
	if !move.IsValid() {
		t.Fatalf("expected a legal move, got %+v", move)
	}
	if stats.Simulations != 0 {
		t.Fatalf("expected the stop signal to halt before any simulation, got %d", stats.Simulations)
	}
}
