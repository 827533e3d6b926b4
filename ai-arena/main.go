package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// arena drives engine-vs-engine matches through the backend's REST API
// and tallies the outcomes. It never talks to the engine directly, so a
// run measures the whole serving stack under move load.
type arena struct {
	client       *http.Client
	baseURL      string
	pollInterval time.Duration
	gameTimeout  time.Duration
}

type gameSettingsPayload struct {
	Mode         string `json:"mode"`
	EngineMode   string `json:"engine_mode,omitempty"`
	TimeBudgetMs int    `json:"time_budget_ms,omitempty"`
	Seed         int64  `json:"seed,omitempty"`
	RedStarts    bool   `json:"red_starts"`
}

type createGamePayload struct {
	Settings gameSettingsPayload `json:"settings"`
}

type historyEntry struct {
	Disc      int     `json:"disc"`
	ElapsedMs float64 `json:"elapsed_ms"`
	IsAi      bool    `json:"is_ai"`
	Source    string  `json:"source,omitempty"`
}

type gameStatus struct {
	ID      string         `json:"id"`
	Status  string         `json:"status"`
	Winner  int            `json:"winner"`
	History []historyEntry `json:"history"`
}

// winner -1 marks a match that hit the per-game timeout.
type matchResult struct {
	winner     int
	redStarted bool
	plies      int
	aiMoves    int
	thinkMs    float64
	duration   time.Duration
	sources    map[string]int
}

func main() {
	backend := flag.String("backend", "http://localhost:8080", "backend base URL")
	games := flag.Int("games", 16, "matches to play")
	parallel := flag.Int("parallel", 2, "matches in flight at once")
	mode := flag.String("mode", "blend", "engine mode for both seats (minimax, mcts, blend)")
	budgetMs := flag.Int("budget-ms", 150, "per-move time budget")
	pollMs := flag.Int("poll-ms", 100, "status poll interval")
	timeout := flag.Duration("timeout", 2*time.Minute, "per-match timeout")
	seed := flag.Int64("seed", time.Now().UnixNano(), "base seed; match i plays with seed+i")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	a := &arena{
		client:       &http.Client{Timeout: 10 * time.Second},
		baseURL:      strings.TrimRight(*backend, "/"),
		pollInterval: time.Duration(*pollMs) * time.Millisecond,
		gameTimeout:  *timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("backend", a.baseURL).
		Int("games", *games).
		Int("parallel", *parallel).
		Str("mode", *mode).
		Int("budget_ms", *budgetMs).
		Int64("seed", *seed).
		Msg("arena starting")

	var mu sync.Mutex
	results := make([]matchResult, 0, *games)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(*parallel)
	for i := 0; i < *games; i++ {
		match := i
		g.Go(func() error {
			settings := gameSettingsPayload{
				Mode:         "ai_vs_ai",
				EngineMode:   *mode,
				TimeBudgetMs: *budgetMs,
				Seed:         *seed + int64(match),
				RedStarts:    match%2 == 0,
			}
			result, err := a.playMatch(ctx, settings)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				log.Error().Err(err).Int("match", match).Msg("match failed")
				return err
			}
			log.Info().
				Int("match", match).
				Int("winner", result.winner).
				Int("plies", result.plies).
				Float64("avg_think_ms", result.thinkMs).
				Dur("duration", result.duration).
				Msg("match finished")
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	runErr := g.Wait()

	redWins, yellowWins, draws, timeouts, firstMoverWins := 0, 0, 0, 0, 0
	totalPlies, totalAiMoves := 0, 0
	totalThinkMs := 0.0
	var totalDuration time.Duration
	sources := map[string]int{}
	for _, r := range results {
		switch r.winner {
		case 1:
			redWins++
			if r.redStarted {
				firstMoverWins++
			}
		case 2:
			yellowWins++
			if !r.redStarted {
				firstMoverWins++
			}
		case 0:
			draws++
		default:
			timeouts++
		}
		totalPlies += r.plies
		totalAiMoves += r.aiMoves
		totalThinkMs += r.thinkMs * float64(r.aiMoves)
		totalDuration += r.duration
		for source, count := range r.sources {
			sources[source] += count
		}
	}
	summary := log.Info().
		Int("played", len(results)).
		Int("red_wins", redWins).
		Int("yellow_wins", yellowWins).
		Int("draws", draws).
		Int("timeouts", timeouts).
		Int("first_mover_wins", firstMoverWins)
	if len(results) > 0 {
		summary = summary.
			Float64("avg_plies", float64(totalPlies)/float64(len(results))).
			Dur("avg_game", totalDuration/time.Duration(len(results)))
	}
	if totalAiMoves > 0 {
		summary = summary.Float64("avg_think_ms", totalThinkMs/float64(totalAiMoves))
	}
	for source, count := range sources {
		summary = summary.Int("moves_"+source, count)
	}
	summary.Msg("arena complete")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		os.Exit(1)
	}
}

// playMatch creates one ai_vs_ai game, polls it to completion and tears
// it down. A timed-out game still yields a result so one stuck match
// cannot sink the whole run.
func (a *arena) playMatch(ctx context.Context, settings gameSettingsPayload) (matchResult, error) {
	start := time.Now()
	var created gameStatus
	if err := a.postJSON(ctx, "/api/games", createGamePayload{Settings: settings}, &created); err != nil {
		return matchResult{}, fmt.Errorf("create game: %w", err)
	}
	defer a.deleteGame(created.ID)

	deadline := time.Now().Add(a.gameTimeout)
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()
	var status gameStatus
	for {
		select {
		case <-ctx.Done():
			return matchResult{}, ctx.Err()
		case <-ticker.C:
		}
		if err := a.getJSON(ctx, "/api/games/"+created.ID, &status); err != nil {
			return matchResult{}, fmt.Errorf("poll game %s: %w", created.ID, err)
		}
		if status.Status != "running" && status.Status != "not_started" {
			break
		}
		if time.Now().After(deadline) {
			log.Warn().Str("game", created.ID).Int("plies", len(status.History)).Msg("match timed out")
			return matchResult{
				winner:     -1,
				redStarted: settings.RedStarts,
				plies:      len(status.History),
				duration:   time.Since(start),
			}, nil
		}
	}

	result := matchResult{
		winner:     status.Winner,
		redStarted: settings.RedStarts,
		plies:      len(status.History),
		duration:   time.Since(start),
		sources:    map[string]int{},
	}
	thinkTotal := 0.0
	for _, entry := range status.History {
		if !entry.IsAi {
			continue
		}
		result.aiMoves++
		thinkTotal += entry.ElapsedMs
		if entry.Source != "" {
			result.sources[entry.Source]++
		}
	}
	if result.aiMoves > 0 {
		result.thinkMs = thinkTotal / float64(result.aiMoves)
	}
	return result, nil
}

func (a *arena) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, out)
}

func (a *arena) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return err
	}
	return a.do(req, out)
}

func (a *arena) do(req *http.Request, out any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// deleteGame runs on its own context so cleanup still happens when the
// run is being canceled.
func (a *arena) deleteGame(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, a.baseURL+"/api/games/"+id, nil)
	if err != nil {
		return
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}
