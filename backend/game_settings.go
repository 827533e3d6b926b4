package main

// PlayerType selects whether a seat is driven by a person or an engine.
type PlayerType int

const (
	PlayerHuman PlayerType = iota
	PlayerAI
)

// GameSettings is the per-game setup. Engine tunables live in Config;
// EngineMode, TimeBudgetMs and Seed here override the global values for
// one game when set. Without a per-game seed, two ai_vs_ai games with
// the same config replay move for move.
type GameSettings struct {
	RedType      PlayerType `json:"-"`
	YellowType   PlayerType `json:"-"`
	RedStarts    bool       `json:"red_starts"`
	EngineMode   string     `json:"engine_mode"`
	TimeBudgetMs int        `json:"time_budget_ms"`
	Seed         int64      `json:"seed"`
}

func DefaultGameSettings() GameSettings {
	return GameSettings{
		RedType:    PlayerHuman,
		YellowType: PlayerAI,
		RedStarts:  true,
	}
}

// engineConfigForSettings folds the per-game overrides into the global
// config an AI player is built from.
func engineConfigForSettings(base Config, settings GameSettings) Config {
	if settings.EngineMode != "" {
		base.AiMode = settings.EngineMode
	}
	if settings.TimeBudgetMs > 0 {
		base.AiTimeBudgetMs = settings.TimeBudgetMs
	}
	if settings.Seed != 0 {
		base.AiRandomSeed = settings.Seed
	}
	return base
}
