package main

import (
	"time"
)

type Game struct {
	settings   GameSettings
	rules      Rules
	state      GameState
	history    MoveHistory
	redSeat    Player
	yellowSeat Player
	hintAI     *AIPlayer
	hintHash   uint64
	turnStart  time.Time
}

func NewGame(settings GameSettings) Game {
	g := Game{}
	g.Reset(settings)
	return g
}

func (g *Game) Reset(settings GameSettings) {
	g.stopHintSearch(nil)
	g.stopEngines()
	g.settings = settings
	g.rules = NewRules(settings)
	g.state.Reset(settings)
	g.history.Clear()
	g.fillSeats()
	g.turnStart = time.Now()
}

func (g *Game) Start() {
	if g.state.Status == StatusNotStarted {
		g.state.Status = StatusRunning
		g.turnStart = time.Now()
	}
}

func (g *Game) State() GameState {
	return g.state.Clone()
}

func (g *Game) History() MoveHistory {
	return g.history
}

func (g *Game) Settings() GameSettings {
	return g.settings
}

func (g *Game) TurnStartedAtMs() int64 {
	if g.turnStart.IsZero() {
		return 0
	}
	return g.turnStart.UnixMilli()
}

// TryApplyMove drops a disc for the side to move. Only the column
// matters; the row is recomputed here so a stale client row can never
// place a floating disc.
func (g *Game) TryApplyMove(move Move) (bool, string) {
	return g.applyMove(move, nil)
}

func (g *Game) applyMove(move Move, decision *Decision) (bool, string) {
	if g.state.Status != StatusRunning {
		return false, "game not running"
	}
	player := g.seatToMove()
	isAiMove := player != nil && !player.IsHuman()
	if ok, reason := g.rules.IsLegalDefault(g.state, move); !ok {
		g.state.LastMessage = "Illegal move: " + reason
		return false, g.state.LastMessage
	}
	g.stopHintSearch(nil)
	g.state.LastMessage = ""
	elapsedMs := float64(time.Since(g.turnStart).Milliseconds())
	mover := g.state.ToMove
	rec, ok := applyDrop(&g.state, move.Col)
	if !ok {
		return false, "column full"
	}
	if g.state.Status == StatusRedWon || g.state.Status == StatusYellowWon {
		if line, found := g.rules.FindWinningLine(g.state.Board, DiscFromPlayer(mover)); found {
			g.state.WinningLine = line
		}
	}
	entry := HistoryEntry{Move: rec.move, Player: mover, ElapsedMs: elapsedMs, IsAi: isAiMove}
	if decision != nil {
		entry.Depth = decision.Depth
		entry.Source = string(decision.Source)
	}
	g.history.Push(entry)
	g.turnStart = time.Now()
	return true, ""
}

// Tick advances the game by at most one move: a buffered human move or
// a finished AI decision. It also drives the hint engine on human turns
// and reports whether a move was applied.
func (g *Game) Tick(hintsEnabled bool, hintSink func(hintPayload)) bool {
	if g.state.Status != StatusRunning {
		g.stopHintSearch(hintSink)
		return false
	}
	player := g.seatToMove()
	if player == nil {
		g.stopHintSearch(hintSink)
		return false
	}
	if player.IsHuman() {
		if hintsEnabled && hintSink != nil {
			g.startHintSearch(hintSink)
		} else {
			g.stopHintSearch(hintSink)
		}
		if human, ok := player.(*HumanPlayer); ok {
			if move, queued := human.TakeQueuedMove(); queued {
				applied, _ := g.applyMove(move, nil)
				return applied
			}
		}
		return false
	}
	g.stopHintSearch(hintSink)
	if ai, ok := player.(*AIPlayer); ok {
		if ai.HasMoveReady() {
			move, decision, ok := ai.TakeMove()
			if !ok {
				return false
			}
			applied, _ := g.applyMove(move, &decision)
			return applied
		}
		if !ai.IsThinking() {
			var sink func(HintUpdate)
			if hintsEnabled && hintSink != nil {
				nextDisc := discToInt(DiscFromPlayer(g.state.ToMove))
				sink = func(update HintUpdate) {
					hintSink(hintPayloadFromUpdate(update, nextDisc))
				}
			}
			ai.StartThinking(g.state.Clone(), sink)
		}
		return false
	}
	move := player.ChooseMove(g.state.Clone(), g.rules)
	applied, _ := g.applyMove(move, nil)
	return applied
}

func (g *Game) SubmitHumanMove(move Move) bool {
	human, ok := g.seatToMove().(*HumanPlayer)
	if !ok {
		return false
	}
	human.QueueMove(move)
	return true
}

func (g *Game) CurrentPlayerIsHuman() bool {
	player := g.seatToMove()
	return player != nil && player.IsHuman()
}

func (g *Game) seatToMove() Player {
	return g.seatFor(g.state.ToMove)
}

func (g *Game) seatFor(color PlayerColor) Player {
	if color == PlayerRed {
		return g.redSeat
	}
	return g.yellowSeat
}

// fillSeats builds fresh players, which also gives every AI a fresh
// engine and table so no lines carry over from the previous game.
func (g *Game) fillSeats() {
	engineConfig := engineConfigForSettings(GetConfig(), g.settings)
	if g.settings.RedType == PlayerHuman {
		g.redSeat = NewHumanPlayer()
	} else {
		g.redSeat = NewAIPlayer(engineConfig)
	}
	if g.settings.YellowType == PlayerHuman {
		g.yellowSeat = NewHumanPlayer()
	} else {
		g.yellowSeat = NewAIPlayer(engineConfig)
	}
}

func (g *Game) stopEngines() {
	if ai, ok := g.redSeat.(*AIPlayer); ok {
		ai.StopThinking()
	}
	if ai, ok := g.yellowSeat.(*AIPlayer); ok {
		ai.StopThinking()
	}
}

func (g *Game) AiThinking() bool {
	ai, ok := g.seatToMove().(*AIPlayer)
	return ok && ai.IsThinking()
}

func (g *Game) ResetForConfigChange() {
	g.stopHintSearch(nil)
	config := GetConfig()
	engineConfig := engineConfigForSettings(config, g.settings)
	if ai, ok := g.redSeat.(*AIPlayer); ok {
		ai.OnConfigChange(engineConfig)
	}
	if ai, ok := g.yellowSeat.(*AIPlayer); ok {
		ai.OnConfigChange(engineConfig)
	}
	if g.hintAI != nil {
		g.hintAI.OnConfigChange(hintEngineConfig(config))
	}
	g.hintHash = 0
}

// hintEngineConfig derives the suggestion engine's tunables: always
// plain minimax, capped by the hint depth and budget so suggestions
// never cost a full turn's think time.
func hintEngineConfig(base Config) Config {
	base.AiMode = AiModeMinimax
	if base.HintDepth > 0 {
		base.AiDepth = base.HintDepth
		base.AiMaxDepth = base.HintDepth
	}
	if base.HintBudgetMs > 0 {
		base.AiTimeBudgetMs = base.HintBudgetMs
	}
	return base
}

// startHintSearch runs the suggestion engine for the human on turn. The
// position hash dedups restarts, so polling ticks reuse the search that
// is already running for this board.
func (g *Game) startHintSearch(hintSink func(hintPayload)) {
	if g.hintAI == nil {
		g.hintAI = NewAIPlayer(hintEngineConfig(GetConfig()))
	}
	state := g.state.Clone()
	if state.Hash == 0 {
		state.recomputeHash()
	}
	if g.hintHash == state.Hash && (g.hintAI.IsThinking() || g.hintAI.HasMoveReady()) {
		return
	}
	g.hintAI.StopThinking()
	g.hintHash = state.Hash
	nextDisc := discToInt(DiscFromPlayer(state.ToMove))
	g.hintAI.StartThinking(state, func(update HintUpdate) {
		hintSink(hintPayloadFromUpdate(update, nextDisc))
	})
}

func (g *Game) stopHintSearch(hintSink func(hintPayload)) {
	g.hintHash = 0
	if g.hintAI != nil {
		g.hintAI.StopThinking()
	}
	if hintSink != nil {
		hintSink(hintPayload{Active: false})
	}
}
