package main

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// DecisionSource labels which path produced a chosen column.
type DecisionSource string

const (
	SourceImmediateWin DecisionSource = "win"
	SourceBlock        DecisionSource = "block"
	SourceMinimax      DecisionSource = "minimax"
	SourceMCTS         DecisionSource = "mcts"
	SourceFallback     DecisionSource = "fallback"
)

// Decision is the full record of one engine choice. Score is a minimax
// score for tree-search sources and a win rate in [0,1] for MCTS.
type Decision struct {
	Move        Move
	Score       float64
	Source      DecisionSource
	Depth       int
	Simulations int
	Elapsed     time.Duration
	Search      SearchStats
	Playouts    MCTSStats
}

// decideOptions carries per-call overrides. The zero value means use
// the engine config for everything.
type decideOptions struct {
	budgetMs   int
	mode       string
	depth      int
	shouldStop func() bool
	onDepth    func(move Move, depth int, score float64)
}

// AIEngine owns the transposition table and random seed for one
// decision stream. Concurrent games get their own engines so searches
// never share a table; within an engine the caller serializes searches
// and the engine only guards its config swaps.
type AIEngine struct {
	mu            sync.Mutex
	config        Config
	tt            *TranspositionTable
	seed          int64
	heuristicHash uint64
}

func NewAIEngine(config Config) *AIEngine {
	if config == (Config{}) {
		config = DefaultConfig()
	}
	seed := config.AiRandomSeed
	if seed == 0 {
		seed = DefaultConfig().AiRandomSeed
	}
	return &AIEngine{
		config:        config,
		tt:            newTableFromConfig(config),
		seed:          seed,
		heuristicHash: heuristicHashFromConfig(config),
	}
}

func newTableFromConfig(config Config) *TranspositionTable {
	size := config.AiTtSize
	if size <= 0 {
		size = DefaultConfig().AiTtSize
	}
	buckets := config.AiTtBuckets
	if buckets <= 0 {
		buckets = DefaultConfig().AiTtBuckets
	}
	return NewTranspositionTable(uint64(size), buckets)
}

func (e *AIEngine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// SetConfig swaps the tunables. Entries are fingerprint tagged, so a
// weight change only strands the old entries; a size change rebuilds
// the table. A search already in flight keeps its snapshot of the old
// config and table.
func (e *AIEngine) SetConfig(config Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if config.AiTtSize != e.config.AiTtSize || config.AiTtBuckets != e.config.AiTtBuckets {
		e.tt = newTableFromConfig(config)
	} else {
		e.tt.NextGeneration()
	}
	e.config = config
	e.heuristicHash = heuristicHashFromConfig(config)
	if config.AiRandomSeed != 0 {
		e.seed = config.AiRandomSeed
	}
}

// ClearTable drops every cached entry. Callers reset between
// independent games so one game's lines never leak into the next.
func (e *AIEngine) ClearTable() {
	e.mu.Lock()
	tt := e.tt
	e.mu.Unlock()
	tt.Clear()
}

func (e *AIEngine) Table() *TranspositionTable {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tt
}

func (e *AIEngine) HeuristicFingerprint() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.heuristicHash
}

// gameStateForAnalysis builds a search state for a raw board with the
// given side to move. It rejects boards that already contain a win, so
// a stale client cannot ask for a move in a finished game.
func gameStateForAnalysis(board Board, aiDisc Disc) (GameState, error) {
	player, ok := PlayerFromDisc(aiDisc)
	if !ok {
		return GameState{}, fmt.Errorf("%w: %d", ErrInvalidDisc, int(aiDisc))
	}
	red, yellow := boardToBitboards(board)
	if bitboardCheckWin(red) || bitboardCheckWin(yellow) {
		return GameState{}, fmt.Errorf("%w: board already has four in a row", ErrGameNotRunning)
	}
	state := GameState{
		Board:    board.Clone(),
		ToMove:   player,
		Status:   StatusRunning,
		LastMove: Move{Col: -1, Row: -1},
	}
	state.recomputeHash()
	return state, nil
}

// GetBestAIMove returns the column the engine would play for aiDisc on
// the given board within the time budget. A budget of zero falls back
// to the configured one.
func (e *AIEngine) GetBestAIMove(board Board, aiDisc Disc, timeMs int) (int, error) {
	decision, err := e.Decide(board, aiDisc, timeMs)
	if err != nil {
		return -1, err
	}
	return decision.Move.Col, nil
}

func (e *AIEngine) Decide(board Board, aiDisc Disc, timeMs int) (Decision, error) {
	state, err := gameStateForAnalysis(board, aiDisc)
	if err != nil {
		return Decision{}, err
	}
	return e.BestMove(state, decideOptions{budgetMs: timeMs})
}

// BestMove is the decision pipeline: take an immediate win, block an
// immediate loss, otherwise run the configured search mix. Given the
// same position, config and seed it always returns the same column.
func (e *AIEngine) BestMove(state GameState, opts decideOptions) (Decision, error) {
	start := time.Now()
	if state.Status != StatusRunning {
		return Decision{}, ErrGameNotRunning
	}
	if len(legalMoves(state.Board)) == 0 {
		return Decision{}, ErrNoLegalMoves
	}
	e.mu.Lock()
	cfg := e.config
	tt := e.tt
	seed := e.seed
	e.mu.Unlock()

	budget := opts.budgetMs
	if budget <= 0 {
		budget = cfg.AiTimeBudgetMs
	}
	me := DiscFromPlayer(state.ToMove)
	if wins := findImmediateWinColumns(state.Board, me); len(wins) > 0 {
		col := wins[0]
		move := Move{Col: col, Row: getDropRow(state.Board, col)}
		return Decision{Move: move, Score: winScore, Source: SourceImmediateWin, Elapsed: time.Since(start)}, nil
	}
	if blocks := findImmediateWinColumns(state.Board, otherDisc(me)); len(blocks) > 0 {
		col := blocks[0]
		move := Move{Col: col, Row: getDropRow(state.Board, col)}
		return Decision{Move: move, Score: 0, Source: SourceBlock, Elapsed: time.Since(start)}, nil
	}

	mode := opts.mode
	if mode == "" {
		mode = cfg.AiMode
	}
	switch mode {
	case AiModeMinimax:
		return e.minimaxDecision(state, cfg, tt, budget, opts, start)
	case AiModeMcts:
		return e.mctsDecision(state, cfg, seed, budget, opts, start, nil)
	default:
		return e.blendDecision(state, cfg, tt, seed, budget, opts, start)
	}
}

func (e *AIEngine) minimaxDecision(state GameState, cfg Config, tt *TranspositionTable, budgetMs int, opts decideOptions, start time.Time) (Decision, error) {
	stats := SearchStats{Start: start}
	settings := AIScoreSettings{
		Depth:           opts.depth,
		TimeBudgetMs:    budgetMs,
		Player:          state.ToMove,
		TT:              tt,
		Config:          cfg,
		Stats:           &stats,
		ShouldStop:      opts.shouldStop,
		OnDepthComplete: opts.onDepth,
	}
	move, score, err := searchBestMove(state, settings)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Move:    move,
		Score:   score,
		Source:  SourceMinimax,
		Depth:   stats.CompletedDepths,
		Elapsed: time.Since(start),
		Search:  stats,
	}, nil
}

func (e *AIEngine) mctsDecision(state GameState, cfg Config, seed int64, budgetMs int, opts decideOptions, start time.Time, fallback *Decision) (Decision, error) {
	// Deriving the stream from the position hash keeps a decision
	// reproducible regardless of how many searches ran before it.
	rng := rand.New(rand.NewSource(seed ^ int64(state.Hash)))
	stats := MCTSStats{}
	move, winRate, ok := runMCTS(state, cfg, rng, time.Duration(budgetMs)*time.Millisecond, opts.shouldStop, &stats)
	if !ok {
		if fallback != nil {
			d := *fallback
			d.Source = SourceFallback
			d.Elapsed = time.Since(start)
			return d, nil
		}
		ordered := orderedMoves(state.Board, DiscFromPlayer(state.ToMove))
		if len(ordered) == 0 {
			return Decision{}, ErrNoLegalMoves
		}
		return Decision{Move: ordered[0].move, Source: SourceFallback, Elapsed: time.Since(start)}, nil
	}
	return Decision{
		Move:        move,
		Score:       winRate,
		Source:      SourceMCTS,
		Simulations: stats.Simulations,
		Elapsed:     time.Since(start),
		Playouts:    stats,
	}, nil
}

// blendDecision spends a configured share of the budget on minimax and
// keeps its move whenever the score flags a forced line in either
// direction. Quiet positions hand the rest of the budget to MCTS.
func (e *AIEngine) blendDecision(state GameState, cfg Config, tt *TranspositionTable, seed int64, budgetMs int, opts decideOptions, start time.Time) (Decision, error) {
	share := cfg.AiMinimaxTimeShare
	if share <= 0 || share > 1 {
		share = DefaultConfig().AiMinimaxTimeShare
	}
	minimaxBudget := int(float64(budgetMs) * share)
	if minimaxBudget < 1 {
		minimaxBudget = 1
	}
	decision, err := e.minimaxDecision(state, cfg, tt, minimaxBudget, opts, start)
	if err != nil {
		return Decision{}, err
	}
	threshold := cfg.AiForcedWinThreshold
	if threshold <= 0 {
		threshold = DefaultConfig().AiForcedWinThreshold
	}
	if decision.Score >= threshold || decision.Score <= -threshold {
		return decision, nil
	}
	remaining := budgetMs - int(time.Since(start).Milliseconds())
	if remaining < 10 {
		return decision, nil
	}
	if opts.shouldStop != nil && opts.shouldStop() {
		return decision, nil
	}
	return e.mctsDecision(state, cfg, seed, remaining, opts, start, &decision)
}
