package main

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// GameController serializes all access to one game. Reads share an
// RLock so status polls and websocket pushes never queue behind each
// other; only moves, ticks and settings changes take the write lock.
type GameController struct {
	mu            sync.RWMutex
	id            string
	createdAt     time.Time
	game          Game
	hintEnabled   func() bool
	hintPublisher func(hintPayload)
}

func NewGameController(id string, settings GameSettings) *GameController {
	gc := &GameController{id: id, createdAt: time.Now(), game: NewGame(settings)}
	log.Debug().
		Str("game", id).
		Str("engine_mode", settings.EngineMode).
		Uint64("heuristic_fingerprint", heuristicHashFromConfig(GetConfig())).
		Msg("game created")
	return gc
}

func (gc *GameController) ID() string { return gc.id }

func (gc *GameController) CreatedAt() time.Time { return gc.createdAt }

func (gc *GameController) SetHintPublisher(enabled func() bool, publisher func(hintPayload)) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.hintEnabled = enabled
	gc.hintPublisher = func(payload hintPayload) {
		payload.GameID = gc.id
		publisher(payload)
	}
}

func (gc *GameController) ApplyHumanMove(move Move) (bool, string) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	if !gc.game.CurrentPlayerIsHuman() {
		return false, "not human turn"
	}
	return gc.game.TryApplyMove(move)
}

func (gc *GameController) Tick() bool {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	hintsOn := false
	if gc.hintEnabled != nil {
		hintsOn = gc.hintEnabled()
	}
	applied := gc.game.Tick(hintsOn, gc.hintPublisher)
	if applied {
		if entry, ok := gc.game.History().Last(); ok && entry.IsAi {
			if player, isAI := gc.game.seatFor(entry.Player).(*AIPlayer); isAI {
				logDecision(gc.id, entry.Player, player.LastDecision())
			}
		}
	}
	return applied
}

func (gc *GameController) State() GameState {
	gc.mu.RLock()
	defer gc.mu.RUnlock()
	return gc.game.State()
}

func (gc *GameController) Settings() GameSettings {
	gc.mu.RLock()
	defer gc.mu.RUnlock()
	return gc.game.Settings()
}

func (gc *GameController) History() MoveHistory {
	gc.mu.RLock()
	defer gc.mu.RUnlock()
	return gc.game.History()
}

func (gc *GameController) CurrentTurnStartedAtMs() int64 {
	gc.mu.RLock()
	defer gc.mu.RUnlock()
	return gc.game.TurnStartedAtMs()
}

func (gc *GameController) LatestHistoryEntry() (HistoryEntry, bool) {
	gc.mu.RLock()
	defer gc.mu.RUnlock()
	return gc.game.History().Last()
}

func (gc *GameController) AiThinking() bool {
	gc.mu.RLock()
	defer gc.mu.RUnlock()
	return gc.game.AiThinking()
}

func (gc *GameController) Reset(settings GameSettings) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.game.Reset(settings)
}

func (gc *GameController) StartGame(settings GameSettings) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.game.Reset(settings)
	gc.game.Start()
}

// UpdateSettings swaps players without touching the board when reset is
// false, so a running game can flip a seat between human and AI.
func (gc *GameController) UpdateSettings(update GameSettings, reset bool) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	if reset {
		gc.game.Reset(update)
		gc.game.Start()
		return
	}
	gc.game.stopEngines()
	gc.game.settings = update
	gc.game.rules = NewRules(update)
	gc.game.fillSeats()
}

func (gc *GameController) ResetForConfigChange() {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.game.ResetForConfigChange()
}

// Shutdown stops every search the controller owns. The registry calls
// it before dropping a game.
func (gc *GameController) Shutdown() {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	gc.game.stopHintSearch(nil)
	gc.game.stopEngines()
}
