package main

import (
	"errors"
	"testing"
)

func engineTestConfig() Config {
	config := DefaultConfig()
	config.AiLogSearchStats = false
	config.AiTimeBudgetMs = 0
	config.AiDepth = 4
	return config
}

func TestEngineDecidesOnEmptyBoard(t *testing.T) {
	engine := NewAIEngine(engineTestConfig())
	state := runningState(true)
	state.recomputeHash()

	decision, err := engine.BestMove(state, decideOptions{mode: AiModeMinimax})
	if err != nil {
		t.Fatalf("expected a decision, got %v", err)
	}
	if !decision.Move.IsValid() {
		t.Fatalf("expected a legal move, got %+v", decision.Move)
	}
	if decision.Source != SourceMinimax {
		t.Fatalf("expected minimax source, got %s", decision.Source)
	}
	if decision.Depth < 1 {
		t.Fatalf("expected at least one completed depth, got %d", decision.Depth)
	}
}

func TestEngineTakesWinOverBlock(t *testing.T) {
	// Red completes four at col 5 while yellow threatens a vertical
	// four at col 6. The win short-circuit must fire first.
	board := NewBoard()
	board.Set(2, 5, DiscRed)
	board.Set(3, 5, DiscRed)
	board.Set(4, 5, DiscRed)
	board.Set(0, 4, DiscRed)
	board.Set(1, 4, DiscRed)
	board.Set(0, 5, DiscYellow)
	board.Set(1, 5, DiscYellow)
	board.Set(6, 5, DiscYellow)
	board.Set(6, 4, DiscYellow)
	board.Set(6, 3, DiscYellow)

	engine := NewAIEngine(engineTestConfig())
	decision, err := engine.Decide(board, DiscRed, 50)
	if err != nil {
		t.Fatalf("expected a decision, got %v", err)
	}
	if decision.Source != SourceImmediateWin {
		t.Fatalf("expected the win short-circuit, got %s", decision.Source)
	}
	if decision.Move.Col != 5 || decision.Move.Row != 5 {
		t.Fatalf("expected the winning drop (5,5), got %+v", decision.Move)
	}
	if decision.Score != winScore {
		t.Fatalf("expected win score, got %f", decision.Score)
	}
}

func TestEngineBlocksImmediateThreat(t *testing.T) {
	// Yellow's row (1,5)(2,5)(3,5) completes only at col 4; red holds
	// (0,5). Red has no win of its own and must block.
	board := NewBoard()
	board.Set(0, 5, DiscRed)
	board.Set(5, 5, DiscRed)
	board.Set(6, 5, DiscRed)
	board.Set(1, 5, DiscYellow)
	board.Set(2, 5, DiscYellow)
	board.Set(3, 5, DiscYellow)

	engine := NewAIEngine(engineTestConfig())
	decision, err := engine.Decide(board, DiscRed, 50)
	if err != nil {
		t.Fatalf("expected a decision, got %v", err)
	}
	if decision.Source != SourceBlock {
		t.Fatalf("expected the block short-circuit, got %s", decision.Source)
	}
	if decision.Move.Col != 4 || decision.Move.Row != 5 {
		t.Fatalf("expected the blocking drop (4,5), got %+v", decision.Move)
	}
}

func TestEngineDeterministicAcrossFreshEngines(t *testing.T) {
	config := engineTestConfig()
	config.AiMode = AiModeMcts
	config.AiRandomSeed = 7
	config.MctsMaxSimulations = 200

	board := NewBoard()
	board.Set(3, 5, DiscRed)
	board.Set(4, 5, DiscRed)
	board.Set(3, 4, DiscYellow)

	first, err := NewAIEngine(config).Decide(board, DiscYellow, 0)
	if err != nil {
		t.Fatalf("expected a decision, got %v", err)
	}
	if first.Source != SourceMCTS {
		t.Fatalf("expected MCTS source, got %s", first.Source)
	}
	if first.Simulations != 200 {
		t.Fatalf("expected the full simulation cap, got %d", first.Simulations)
	}
	second, err := NewAIEngine(config).Decide(board, DiscYellow, 0)
	if err != nil {
		t.Fatalf("expected a decision, got %v", err)
	}
	if first.Move != second.Move || first.Score != second.Score {
		t.Fatalf("expected identical decisions, got %+v %f then %+v %f", first.Move, first.Score, second.Move, second.Score)
	}
}

func TestEngineMinimaxDeterministicAcrossFreshEngines(t *testing.T) {
	config := engineTestConfig()
	config.AiMode = AiModeMinimax
	config.AiDepth = 6

	board := NewBoard()
	board.Set(3, 5, DiscRed)
	board.Set(2, 5, DiscYellow)

	first, err := NewAIEngine(config).Decide(board, DiscRed, 0)
	if err != nil {
		t.Fatalf("expected a decision, got %v", err)
	}
	second, err := NewAIEngine(config).Decide(board, DiscRed, 0)
	if err != nil {
		t.Fatalf("expected a decision, got %v", err)
	}
	if first.Move != second.Move || first.Score != second.Score {
		t.Fatalf("expected identical decisions, got %+v %f then %+v %f", first.Move, first.Score, second.Move, second.Score)
	}
}

func TestEngineBlendKeepsForcedLine(t *testing.T) {
	// Red extends (2,5)(3,5) into an open three and wins by force two
	// plies later. The minimax half of the blend must flag the line and
	// skip the playout half.
	board := NewBoard()
	board.Set(2, 5, DiscRed)
	board.Set(3, 5, DiscRed)
	board.Set(2, 4, DiscYellow)
	board.Set(3, 4, DiscYellow)

	config := engineTestConfig()
	config.AiMode = AiModeBlend
	config.AiDepth = 8
	engine := NewAIEngine(config)

	decision, err := engine.Decide(board, DiscRed, 2000)
	if err != nil {
		t.Fatalf("expected a decision, got %v", err)
	}
	if decision.Source != SourceMinimax {
		t.Fatalf("expected the forced line to stay with minimax, got %s", decision.Source)
	}
	if decision.Move.Col != 1 && decision.Move.Col != 4 {
		t.Fatalf("expected the open-three builder at col 1 or 4, got %d", decision.Move.Col)
	}
	if decision.Score < winScore/2 {
		t.Fatalf("expected a forced-win score, got %f", decision.Score)
	}
}

func TestEngineBlendFallsThroughToMCTS(t *testing.T) {
	config := engineTestConfig()
	config.AiMode = AiModeBlend
	config.MctsMaxSimulations = 300
	engine := NewAIEngine(config)

	board := NewBoard()
	decision, err := engine.Decide(board, DiscRed, 300)
	if err != nil {
		t.Fatalf("expected a decision, got %v", err)
	}
	if decision.Source != SourceMCTS {
		t.Fatalf("expected a quiet position to fall through to MCTS, got %s", decision.Source)
	}
	if decision.Simulations == 0 {
		t.Fatalf("expected playouts to run")
	}
	if !decision.Move.IsValid() {
		t.Fatalf("expected a legal move, got %+v", decision.Move)
	}
}

func TestEngineErrors(t *testing.T) {
	engine := NewAIEngine(engineTestConfig())

	if _, err := engine.Decide(NewBoard(), DiscNone, 50); !errors.Is(err, ErrInvalidDisc) {
		t.Fatalf("expected ErrInvalidDisc, got %v", err)
	}

	finished := NewBoard()
	for col := 1; col <= 4; col++ {
		finished.Set(col, 5, DiscRed)
	}
	if _, err := engine.Decide(finished, DiscYellow, 50); !errors.Is(err, ErrGameNotRunning) {
		t.Fatalf("expected ErrGameNotRunning for a finished board, got %v", err)
	}

	full := NewBoard()
	fillBoardWithoutWin(&full)
	if _, err := engine.Decide(full, DiscRed, 50); !errors.Is(err, ErrNoLegalMoves) {
		t.Fatalf("expected ErrNoLegalMoves, got %v", err)
	}
}

func TestEngineClearTable(t *testing.T) {
	config := engineTestConfig()
	config.AiMode = AiModeMinimax
	engine := NewAIEngine(config)
	board := NewBoard()
	board.Set(3, 5, DiscRed)
	if _, err := engine.Decide(board, DiscYellow, 0); err != nil {
		t.Fatalf("expected a decision, got %v", err)
	}
	if engine.Table().Count() == 0 {
		t.Fatalf("expected the search to cache entries")
	}

	engine.ClearTable()
	if got := engine.Table().Count(); got != 0 {
		t.Fatalf("expected an empty table after clear, got %d", got)
	}
}

func TestEngineSetConfigKeepsOrRebuildsTable(t *testing.T) {
	config := engineTestConfig()
	engine := NewAIEngine(config)
	table := engine.Table()
	fingerprint := engine.HeuristicFingerprint()

	// A weight change keeps the table; the new fingerprint strands the
	// old entries instead.
	config.Heuristics.CenterWeight = 9
	engine.SetConfig(config)
	if engine.Table() != table {
		t.Fatalf("expected a weight change to keep the table")
	}
	if engine.HeuristicFingerprint() == fingerprint {
		t.Fatalf("expected the fingerprint to change with the weights")
	}

	config.AiTtSize = config.AiTtSize * 2
	engine.SetConfig(config)
	if engine.Table() == table {
		t.Fatalf("expected a size change to rebuild the table")
	}
}

func TestGameStateForAnalysis(t *testing.T) {
	board := NewBoard()
	board.Set(3, 5, DiscRed)

	state, err := gameStateForAnalysis(board, DiscYellow)
	if err != nil {
		t.Fatalf("expected a valid analysis state, got %v", err)
	}
	if state.Status != StatusRunning || state.ToMove != PlayerYellow {
		t.Fatalf("expected a running state for yellow, got status %d to-move %d", state.Status, state.ToMove)
	}
	if state.Hash == 0 {
		t.Fatalf("expected the hash to be computed")
	}
	if state.LastMove.IsValid() {
		t.Fatalf("expected no last move, got %+v", state.LastMove)
	}

	if _, err := gameStateForAnalysis(board, DiscNone); !errors.Is(err, ErrInvalidDisc) {
		t.Fatalf("expected ErrInvalidDisc, got %v", err)
	}

	won := NewBoard()
	for row := 2; row <= 5; row++ {
		won.Set(0, row, DiscYellow)
	}
	if _, err := gameStateForAnalysis(won, DiscRed); !errors.Is(err, ErrGameNotRunning) {
		t.Fatalf("expected ErrGameNotRunning for a decided board, got %v", err)
	}
}
