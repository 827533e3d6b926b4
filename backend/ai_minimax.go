package main

import (
	"math"
	"sort"
	"time"
)

const winScore = 2000000000.0

// SearchStats accumulates counters across one decision. The search
// itself never logs; the owning layer reads these after the fact.
type SearchStats struct {
	Nodes           int64
	TTProbes        int64
	TTHits          int64
	TTCutoffs       int64
	TTStores        int64
	TTOverwrites    int64
	Cutoffs         int64
	NullCutoffs     int64
	CandidateCount  int64
	CompletedDepths int
	DepthDurations  []time.Duration
	Start           time.Time
}

type AIScoreSettings struct {
	Depth           int
	TimeBudgetMs    int
	Player          PlayerColor
	TT              *TranspositionTable
	Config          Config
	Stats           *SearchStats
	ShouldStop      func() bool
	OnDepthComplete func(move Move, depth int, score float64)
	// DirectDepthOnly skips iterative deepening and searches Depth only.
	DirectDepthOnly bool
}

type minimaxContext struct {
	settings      AIScoreSettings
	start         time.Time
	deadline      time.Time
	hasDeadline   bool
	killers       [][2]Move
	history       []int
	heuristicHash uint64
}

func timedOut(ctx *minimaxContext) bool {
	if ctx.settings.ShouldStop != nil && ctx.settings.ShouldStop() {
		return true
	}
	if ctx.hasDeadline && time.Now().After(ctx.deadline) {
		return true
	}
	return false
}

func isKillerMove(ctx *minimaxContext, depthFromRoot int, move Move) bool {
	if depthFromRoot >= len(ctx.killers) {
		return false
	}
	slots := ctx.killers[depthFromRoot]
	return slots[0].Equals(move) || slots[1].Equals(move)
}

func recordKiller(ctx *minimaxContext, depthFromRoot int, move Move) {
	if depthFromRoot >= len(ctx.killers) {
		return
	}
	slots := &ctx.killers[depthFromRoot]
	if slots[0].Equals(move) {
		return
	}
	slots[1] = slots[0]
	slots[0] = move
}

// The history table is column indexed: a cutoff anywhere in the tree
// credits the whole column, weighted by the remaining depth squared.
func recordHistory(ctx *minimaxContext, move Move, depth int) {
	if len(ctx.history) == 0 {
		return
	}
	idx := move.Col
	ctx.history[idx] += depth * depth
	max := ctx.settings.Config.AiHistoryMax
	if max <= 0 {
		max = DefaultConfig().AiHistoryMax
	}
	if ctx.history[idx] >= max {
		for i := range ctx.history {
			ctx.history[i] /= 2
		}
	}
}

func historyScore(ctx *minimaxContext, move Move) int {
	if len(ctx.history) == 0 {
		return 0
	}
	return ctx.history[move.Col]
}

// orderSearchMoves ranks children for the search. Base priorities come
// from orderedMoves; killers and history can reorder moves within a
// priority band but never promote one past a win or block. A known
// best move from the table goes in front of everything.
func orderSearchMoves(state *GameState, ctx *minimaxContext, depthFromRoot int, pvMove *Move) []candidateMove {
	me := DiscFromPlayer(state.ToMove)
	candidates := orderedMoves(state.Board, me)
	if len(candidates) <= 1 {
		return candidates
	}
	type rankedMove struct {
		cand candidateMove
		key  int
	}
	ranked := make([]rankedMove, 0, len(candidates))
	for _, cand := range candidates {
		key := cand.priority * 10000
		if pvMove != nil && cand.move.Equals(*pvMove) {
			key += 1 << 30
		}
		if ctx.settings.Config.AiEnableKillerMoves && isKillerMove(ctx, depthFromRoot, cand.move) {
			key += 5000
		}
		if ctx.settings.Config.AiEnableHistoryMoves {
			bonus := historyScore(ctx, cand.move)
			if bonus > 4999 {
				bonus = 4999
			}
			key += bonus
		}
		ranked = append(ranked, rankedMove{cand: cand, key: key})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].key != ranked[j].key {
			return ranked[i].key > ranked[j].key
		}
		return ranked[i].cand.move.Col < ranked[j].cand.move.Col
	})
	out := make([]candidateMove, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.cand)
	}
	return out
}

// terminalScore values a finished position from the side to move, with
// the remaining depth added so the search prefers the quickest win and
// the longest defeat.
func terminalScore(state *GameState, remainingDepth int) float64 {
	bonus := float64(remainingDepth)
	switch state.Status {
	case StatusRedWon:
		if state.ToMove == PlayerRed {
			return winScore + bonus
		}
		return -(winScore + bonus)
	case StatusYellowWon:
		if state.ToMove == PlayerYellow {
			return winScore + bonus
		}
		return -(winScore + bonus)
	default:
		return 0
	}
}

// applyTTEntry applies a stored entry to the current window. Exact
// entries return immediately; Lower bounds raise alpha, Upper bounds
// lower beta, and a crossed window returns the bound.
func applyTTEntry(entry TTEntry, alpha *float64, beta *float64, stats *SearchStats) (ret bool, value float64) {
	switch entry.Flag {
	case TTExact:
		return true, entry.ScoreFloat()
	case TTLower:
		if entry.ScoreFloat() > *alpha {
			*alpha = entry.ScoreFloat()
		}
	case TTUpper:
		if entry.ScoreFloat() < *beta {
			*beta = entry.ScoreFloat()
		}
	}
	if *alpha >= *beta {
		if stats != nil {
			stats.TTCutoffs++
		}
		return true, entry.ScoreFloat()
	}
	return false, entry.ScoreFloat()
}

// negamax searches from the side to move with an alpha-beta window.
// All scores are from the mover's perspective; a child's score negates.
// The state passed in is mutated and restored around every branch.
func negamax(state *GameState, ctx *minimaxContext, depth, depthFromRoot int, alpha, beta float64, canNull bool) float64 {
	if state.Status != StatusRunning {
		return terminalScore(state, depth)
	}
	me := DiscFromPlayer(state.ToMove)
	if depth <= 0 || timedOut(ctx) {
		return evaluateBoard(state.Board, me, ctx.settings.Config)
	}
	stats := ctx.settings.Stats
	if stats != nil {
		stats.Nodes++
	}

	alphaOrig := alpha
	betaOrig := beta
	key := state.Hash
	var pvMove *Move
	tt := ctx.settings.TT
	if tt != nil {
		if stats != nil {
			stats.TTProbes++
		}
		if entry, ok := tt.Probe(key, ctx.heuristicHash); ok {
			if stats != nil {
				stats.TTHits++
			}
			if entry.BestMove.IsValid() {
				pv := entry.BestMove
				pvMove = &pv
			}
			if entry.Depth >= depth {
				if ret, value := applyTTEntry(entry, &alpha, &beta, stats); ret {
					return value
				}
			}
		}
	}

	cfg := ctx.settings.Config
	opp := otherDisc(me)
	if cfg.AiEnableNullMove && canNull && depthFromRoot > 0 && depth >= cfg.AiNullMoveMinDepth &&
		!hasImmediateWin(state.Board, me) && !hasImmediateWin(state.Board, opp) {
		reduction := cfg.AiNullMoveReduction
		if reduction < 1 {
			reduction = 1
		}
		rec := applyNull(state)
		score := -negamax(state, ctx, depth-1-reduction, depthFromRoot+1, -beta, -beta+1, false)
		undoNull(state, rec)
		if score >= beta && !timedOut(ctx) {
			if stats != nil {
				stats.NullCutoffs++
			}
			return beta
		}
	}

	candidates := orderSearchMoves(state, ctx, depthFromRoot, pvMove)
	if stats != nil {
		stats.CandidateCount += int64(len(candidates))
	}
	if len(candidates) == 0 {
		return evaluateBoard(state.Board, me, cfg)
	}

	best := math.Inf(-1)
	bestMove := Move{Col: -1, Row: -1}
	for _, cand := range candidates {
		if timedOut(ctx) {
			break
		}
		rec, ok := applyDrop(state, cand.move.Col)
		if !ok {
			continue
		}
		score := -negamax(state, ctx, depth-1, depthFromRoot+1, -beta, -alpha, true)
		undoDrop(state, rec)
		if score > best {
			best = score
			bestMove = cand.move
		}
		if best > alpha {
			alpha = best
		}
		if alpha >= beta {
			if stats != nil {
				stats.Cutoffs++
			}
			if cfg.AiEnableKillerMoves {
				recordKiller(ctx, depthFromRoot, cand.move)
			}
			if cfg.AiEnableHistoryMoves {
				recordHistory(ctx, cand.move, depth)
			}
			break
		}
	}
	if math.IsInf(best, -1) {
		return evaluateBoard(state.Board, me, cfg)
	}
	if timedOut(ctx) {
		// A node cut short by the clock holds an unreliable bound.
		return best
	}

	flag := TTExact
	if best <= alphaOrig {
		flag = TTUpper
	} else if best >= betaOrig {
		flag = TTLower
	}
	if tt != nil {
		replaced, overwrote := tt.Store(key, ctx.heuristicHash, depth, best, flag, bestMove)
		if stats != nil {
			stats.TTStores++
			if replaced || overwrote {
				stats.TTOverwrites++
			}
		}
	}
	return best
}

// searchRootAtDepth runs one fixed-depth search over the root moves and
// reports whether it finished within the budget.
func searchRootAtDepth(state *GameState, ctx *minimaxContext, depth int, alpha, beta float64) (Move, float64, bool) {
	stats := ctx.settings.Stats
	key := state.Hash
	var pvMove *Move
	tt := ctx.settings.TT
	if tt != nil {
		if entry, ok := tt.Probe(key, ctx.heuristicHash); ok && entry.BestMove.IsValid() {
			pv := entry.BestMove
			pvMove = &pv
		}
	}
	candidates := orderSearchMoves(state, ctx, 0, pvMove)
	if len(candidates) == 0 {
		return Move{Col: -1, Row: -1}, 0, false
	}
	alphaOrig := alpha
	best := math.Inf(-1)
	bestMove := candidates[0].move
	for _, cand := range candidates {
		if timedOut(ctx) {
			return bestMove, best, false
		}
		rec, ok := applyDrop(state, cand.move.Col)
		if !ok {
			continue
		}
		score := -negamax(state, ctx, depth-1, 1, -beta, -alpha, true)
		undoDrop(state, rec)
		if score > best {
			best = score
			bestMove = cand.move
		}
		if best > alpha {
			alpha = best
		}
	}
	if timedOut(ctx) {
		return bestMove, best, false
	}
	if tt != nil {
		// An aspiration miss leaves only a bound, and storing it as
		// exact would survive the widened re-search at equal depth.
		flag := TTExact
		if best <= alphaOrig {
			flag = TTUpper
		} else if best >= beta {
			flag = TTLower
		}
		replaced, overwrote := tt.Store(key, ctx.heuristicHash, depth, best, flag, bestMove)
		if stats != nil {
			stats.TTStores++
			if replaced || overwrote {
				stats.TTOverwrites++
			}
		}
	}
	return bestMove, best, true
}

// searchBestMove is the iterative-deepening driver. It deepens from
// AiMinDepth until the depth or time budget runs out, keeping the last
// completed depth's move. Aspiration re-searches on a full window when
// the narrow one fails.
func searchBestMove(state GameState, settings AIScoreSettings) (Move, float64, error) {
	if state.Status != StatusRunning {
		return Move{Col: -1, Row: -1}, 0, ErrGameNotRunning
	}
	if len(legalMoves(state.Board)) == 0 {
		return Move{Col: -1, Row: -1}, 0, ErrNoLegalMoves
	}
	cfg := settings.Config
	if cfg == (Config{}) {
		cfg = GetConfig()
		settings.Config = cfg
	}
	if settings.Depth < 1 {
		settings.Depth = cfg.AiDepth
	}
	if settings.Depth < 1 {
		settings.Depth = 1
	}
	maxDepth := settings.Depth
	if cfg.AiMaxDepth > 0 && maxDepth > cfg.AiMaxDepth && !settings.DirectDepthOnly {
		maxDepth = cfg.AiMaxDepth
	}
	minDepth := cfg.AiMinDepth
	if minDepth < 1 {
		minDepth = 1
	}
	if minDepth > maxDepth {
		minDepth = maxDepth
	}
	if settings.DirectDepthOnly {
		minDepth = maxDepth
	}

	working := state.Clone()
	if working.Hash == 0 {
		working.recomputeHash()
	}
	ctx := &minimaxContext{
		settings:      settings,
		start:         time.Now(),
		heuristicHash: heuristicHashFromConfig(cfg),
	}
	if settings.TimeBudgetMs > 0 {
		ctx.deadline = ctx.start.Add(time.Duration(settings.TimeBudgetMs) * time.Millisecond)
		ctx.hasDeadline = true
	}
	if cfg.AiEnableKillerMoves {
		ctx.killers = make([][2]Move, maxDepth+2)
		for i := range ctx.killers {
			ctx.killers[i] = [2]Move{{Col: -1, Row: -1}, {Col: -1, Row: -1}}
		}
	}
	if cfg.AiEnableHistoryMoves {
		ctx.history = make([]int, BoardCols)
	}
	if settings.Stats != nil && settings.Stats.Start.IsZero() {
		settings.Stats.Start = ctx.start
	}

	if cfg.AiQuickWinExit {
		if wins := findImmediateWinColumns(working.Board, DiscFromPlayer(working.ToMove)); len(wins) > 0 {
			col := wins[0]
			move := Move{Col: col, Row: getDropRow(working.Board, col)}
			if settings.Stats != nil {
				settings.Stats.CompletedDepths = 1
			}
			return move, winScore, nil
		}
	}

	bestMove := Move{Col: -1, Row: -1}
	bestScore := 0.0
	haveBest := false
	for depth := minDepth; depth <= maxDepth; depth++ {
		if timedOut(ctx) && haveBest {
			break
		}
		depthStart := time.Now()
		alpha := math.Inf(-1)
		beta := math.Inf(1)
		if cfg.AiEnableAspiration && haveBest && cfg.AiAspWindow > 0 {
			alpha = bestScore - cfg.AiAspWindow
			beta = bestScore + cfg.AiAspWindow
		}
		move, score, completed := searchRootAtDepth(&working, ctx, depth, alpha, beta)
		if completed && cfg.AiEnableAspiration && (score <= alpha || score >= beta) && !math.IsInf(alpha, -1) {
			move, score, completed = searchRootAtDepth(&working, ctx, depth, math.Inf(-1), math.Inf(1))
		}
		if !completed {
			if !haveBest && move.IsValid() {
				bestMove = move
				bestScore = score
				haveBest = true
			}
			break
		}
		bestMove = move
		bestScore = score
		haveBest = true
		if settings.Stats != nil {
			settings.Stats.CompletedDepths = depth
			settings.Stats.DepthDurations = append(settings.Stats.DepthDurations, time.Since(depthStart))
		}
		if settings.OnDepthComplete != nil {
			settings.OnDepthComplete(move, depth, score)
		}
		if score >= winScore/2 || score <= -winScore/2 {
			break
		}
	}
	if !haveBest {
		ordered := orderedMoves(working.Board, DiscFromPlayer(working.ToMove))
		bestMove = ordered[0].move
		bestScore = 0
	}
	return bestMove, bestScore, nil
}
