package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// setupLogging routes the global logger through a console writer.
// Engines never log; everything below the HTTP layer reports through
// counters that these helpers turn into events.
func setupLogging() {
	zerolog.DurationFieldUnit = time.Millisecond
	level := zerolog.InfoLevel
	if os.Getenv("CONNECT4_DEBUG") != "" {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}

// logDecision emits one event per applied AI move, with the search
// counters that explain it.
func logDecision(gameID string, player PlayerColor, decision Decision) {
	if !GetConfig().AiLogSearchStats {
		return
	}
	evt := log.Info().
		Str("game", gameID).
		Int("disc", discToInt(DiscFromPlayer(player))).
		Str("source", string(decision.Source)).
		Int("col", decision.Move.Col).
		Int("row", decision.Move.Row).
		Float64("score", decision.Score).
		Dur("elapsed", decision.Elapsed)
	if decision.Search.Nodes > 0 {
		search := decision.Search
		evt = evt.
			Int("depth", decision.Depth).
			Int64("nodes", search.Nodes).
			Int64("cutoffs", search.Cutoffs).
			Int64("null_cutoffs", search.NullCutoffs)
		if search.TTProbes > 0 {
			evt = evt.Float64("tt_hit_rate", float64(search.TTHits)/float64(search.TTProbes))
		}
		if elapsed := decision.Elapsed.Seconds(); elapsed > 0 {
			evt = evt.Float64("nps", float64(search.Nodes)/elapsed)
		}
	}
	if decision.Playouts.Simulations > 0 {
		evt = evt.
			Int("simulations", decision.Playouts.Simulations).
			Int("tree_size", decision.Playouts.TreeSize).
			Int64("playout_plies", decision.Playouts.PlayoutPlies)
	}
	evt.Msg("ai move decided")
}
