package main

import (
	"sync"
	"sync/atomic"
)

// HintUpdate is one progress report from a thinking engine: the best
// move so far, emitted per completed depth and once more when the
// decision is final.
type HintUpdate struct {
	Move   Move
	Depth  int
	Score  float64
	Source DecisionSource
	Final  bool
}

// AIPlayer wraps an AIEngine behind the player interface. The game loop
// polls it: StartThinking launches a worker, HasMoveReady flips when
// the decision landed, TakeMove collects it. Only one worker runs at a
// time.
type AIPlayer struct {
	engine *AIEngine

	moveMu       sync.Mutex
	readyMove    Move
	lastDecision Decision

	workerDone chan struct{}
	busy       atomic.Bool
	ready      atomic.Bool
	stopFlag   atomic.Bool
}

func NewAIPlayer(config Config) *AIPlayer {
	return &AIPlayer{engine: NewAIEngine(config)}
}

func (a *AIPlayer) IsHuman() bool { return false }

func (a *AIPlayer) Engine() *AIEngine { return a.engine }

// ChooseMove decides synchronously. The game loop prefers the async
// path; this exists for direct callers and tests.
func (a *AIPlayer) ChooseMove(state GameState, rules Rules) Move {
	decision, err := a.engine.BestMove(state.Clone(), decideOptions{})
	if err != nil {
		return Move{Col: -1, Row: -1}
	}
	a.moveMu.Lock()
	a.lastDecision = decision
	a.moveMu.Unlock()
	return decision.Move
}

// StartThinking kicks off a background decide on a private copy of the
// state. A non-nil sink receives per-depth progress and the final
// decision; it is called from the worker goroutine.
func (a *AIPlayer) StartThinking(state GameState, sink func(HintUpdate)) {
	if a.busy.Load() {
		return
	}
	a.WaitIdle()
	a.busy.Store(true)
	a.ready.Store(false)
	a.stopFlag.Store(false)

	working := state.Clone()
	done := make(chan struct{})
	a.workerDone = done
	go func() {
		defer close(done)
		opts := decideOptions{
			shouldStop: func() bool { return a.stopFlag.Load() },
		}
		if sink != nil {
			opts.onDepth = func(move Move, depth int, score float64) {
				sink(HintUpdate{Move: move, Depth: depth, Score: score, Source: SourceMinimax})
			}
		}
		decision, err := a.engine.BestMove(working, opts)
		if err != nil || a.stopFlag.Load() {
			a.busy.Store(false)
			return
		}
		a.moveMu.Lock()
		a.readyMove = decision.Move
		a.lastDecision = decision
		a.moveMu.Unlock()
		if sink != nil {
			sink(HintUpdate{Move: decision.Move, Depth: decision.Depth, Score: decision.Score, Source: decision.Source, Final: true})
		}
		a.ready.Store(true)
		a.busy.Store(false)
	}()
}

func (a *AIPlayer) IsThinking() bool { return a.busy.Load() }

func (a *AIPlayer) HasMoveReady() bool { return a.ready.Load() }

// TakeMove hands over the finished decision and clears the ready flag.
func (a *AIPlayer) TakeMove() (Move, Decision, bool) {
	if !a.ready.Load() {
		return Move{Col: -1, Row: -1}, Decision{}, false
	}
	a.moveMu.Lock()
	move := a.readyMove
	decision := a.lastDecision
	a.moveMu.Unlock()
	a.ready.Store(false)
	return move, decision, true
}

// StopThinking asks the worker to abandon the search. The worker exits
// without publishing a move.
func (a *AIPlayer) StopThinking() {
	a.stopFlag.Store(true)
}

// WaitIdle blocks until no worker is running. Shutdown and settings
// changes use it so an old search never writes into a reconfigured
// engine.
func (a *AIPlayer) WaitIdle() {
	if a.workerDone != nil {
		<-a.workerDone
	}
}

// OnConfigChange stops any running search and applies new tunables.
func (a *AIPlayer) OnConfigChange(config Config) {
	a.StopThinking()
	a.WaitIdle()
	a.ready.Store(false)
	a.engine.SetConfig(config)
}

func (a *AIPlayer) LastDecision() Decision {
	a.moveMu.Lock()
	defer a.moveMu.Unlock()
	return a.lastDecision
}
