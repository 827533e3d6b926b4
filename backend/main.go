package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentGames = 64

type gameResponse struct {
	ID              string            `json:"id"`
	Board           [][]int           `json:"board"`
	NextDisc        int               `json:"next_disc"`
	Winner          int               `json:"winner"`
	Status          string            `json:"status"`
	AiThinking      bool              `json:"ai_thinking"`
	WinningLine     []Move            `json:"winning_line"`
	History         []historyEntryDTO `json:"history"`
	Settings        gameSettingsDTO   `json:"settings"`
	TurnStartedAtMs int64             `json:"turn_started_at_ms"`
	CreatedAtMs     int64             `json:"created_at_ms"`
}

type gameSettingsDTO struct {
	Mode         string `json:"mode"`
	HumanDisc    int    `json:"human_disc"`
	EngineMode   string `json:"engine_mode,omitempty"`
	TimeBudgetMs int    `json:"time_budget_ms,omitempty"`
	Seed         int64  `json:"seed,omitempty"`
	RedStarts    bool   `json:"red_starts"`
}

type historyEntryDTO struct {
	Col       int     `json:"col"`
	Row       int     `json:"row"`
	Disc      int     `json:"disc"`
	ElapsedMs float64 `json:"elapsed_ms"`
	IsAi      bool    `json:"is_ai"`
	Depth     int     `json:"depth,omitempty"`
	Source    string  `json:"source,omitempty"`
}

type gameSummaryDTO struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Mode        string `json:"mode"`
	Moves       int    `json:"moves"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

type createGameRequest struct {
	Settings *gameSettingsDTO `json:"settings"`
}

type moveRequest struct {
	Col int `json:"col"`
}

type updateSettingsRequest struct {
	Settings gameSettingsDTO `json:"settings"`
	Reset    bool            `json:"reset"`
}

type hintMoveDTO struct {
	Col      int     `json:"col"`
	Row      int     `json:"row"`
	Priority int     `json:"priority"`
	Winning  bool    `json:"winning"`
	Blocking bool    `json:"blocking"`
	Eval     float64 `json:"eval"`
}

type hintResponse struct {
	BestCol int           `json:"best_col"`
	BestRow int           `json:"best_row"`
	Depth   int           `json:"depth"`
	Score   float64       `json:"score"`
	Source  string        `json:"source"`
	Moves   []hintMoveDTO `json:"moves"`
}

type analyzeRequest struct {
	Board  [][]int `json:"board"`
	Disc   int     `json:"disc"`
	TimeMs int     `json:"time_ms"`
	Mode   string  `json:"mode"`
}

type analyzeResponse struct {
	Col         int     `json:"col"`
	Row         int     `json:"row"`
	Score       float64 `json:"score"`
	Source      string  `json:"source"`
	Depth       int     `json:"depth"`
	Simulations int     `json:"simulations"`
	ElapsedMs   int64   `json:"elapsed_ms"`
}

type ttCacheStatusResponse struct {
	Count    int     `json:"count"`
	Capacity int     `json:"capacity"`
	Usage    float64 `json:"usage"`
	Full     bool    `json:"full"`
}

func main() {
	setupLogging()

	registry := NewGameRegistry(maxConcurrentGames)
	queue := NewAnalysisQueue(GetConfig())
	hub := NewHub()
	hintHub := NewHintHub()
	analyticsHub := NewAnalyticsHub()
	queue.SetHub(analyticsHub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx.Done())
	go hintHub.Run(ctx.Done())
	go analyticsHub.Run(ctx.Done())
	queue.Start(ctx.Done())

	go runTickLoop(ctx, registry, hub)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/api/games", func(w http.ResponseWriter, r *http.Request) {
		var payload createGameRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		settings := DefaultGameSettings()
		if payload.Settings != nil {
			var err error
			settings, err = settingsFromDTO(*payload.Settings, settings)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
		}
		gc := registry.Create(settings)
		if gc == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "game limit reached"})
			return
		}
		gc.SetHintPublisher(
			func() bool { return hintHub.HasClients() && GetConfig().HintsEnabled },
			hintHub.Publish,
		)
		writeJSON(w, http.StatusCreated, gameResponseFrom(gc))
	})

	r.Get("/api/games", func(w http.ResponseWriter, r *http.Request) {
		controllers := registry.List()
		games := make([]gameSummaryDTO, 0, len(controllers))
		for _, gc := range controllers {
			games = append(games, gameSummaryFrom(gc))
		}
		writeJSON(w, http.StatusOK, map[string]any{"games": games})
	})

	r.Get("/api/games/{id}", func(w http.ResponseWriter, r *http.Request) {
		gc, ok := registry.Get(chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": ErrGameNotFound.Error()})
			return
		}
		writeJSON(w, http.StatusOK, gameResponseFrom(gc))
	})

	r.Delete("/api/games/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !registry.Delete(id) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": ErrGameNotFound.Error()})
			return
		}
		hub.broadcastRemoved <- removedPayload{GameID: id}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
	})

	r.Post("/api/games/{id}/moves", func(w http.ResponseWriter, r *http.Request) {
		gc, ok := registry.Get(chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": ErrGameNotFound.Error()})
			return
		}
		var payload moveRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		applied, errMsg := gc.ApplyHumanMove(Move{Col: payload.Col, Row: -1})
		if !applied {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
			return
		}
		prewarmAfterMove(queue, gc)
		if entry, ok := gc.LatestHistoryEntry(); ok {
			hub.broadcastHistory <- historyPayload{GameID: gc.ID(), History: []historyEntryDTO{historyEntryToDTO(entry)}}
		}
		status := gameResponseFrom(gc)
		hub.broadcastStatus <- status
		writeJSON(w, http.StatusOK, status)
	})

	r.Put("/api/games/{id}/settings", func(w http.ResponseWriter, r *http.Request) {
		gc, ok := registry.Get(chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": ErrGameNotFound.Error()})
			return
		}
		var payload updateSettingsRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		settings, err := settingsFromDTO(payload.Settings, gc.Settings())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		gc.UpdateSettings(settings, payload.Reset)
		status := gameResponseFrom(gc)
		hub.broadcastStatus <- status
		writeJSON(w, http.StatusOK, status)
	})

	r.Get("/api/games/{id}/hint", func(w http.ResponseWriter, r *http.Request) {
		config := GetConfig()
		if !config.HintsEnabled {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "hints disabled"})
			return
		}
		gc, ok := registry.Get(chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": ErrGameNotFound.Error()})
			return
		}
		state := gc.State()
		if state.Status != StatusRunning {
			writeJSON(w, http.StatusConflict, map[string]string{"error": ErrGameNotRunning.Error()})
			return
		}
		me := DiscFromPlayer(state.ToMove)
		candidates := orderedMoves(state.Board, me)
		moves := make([]hintMoveDTO, 0, len(candidates))
		for _, candidate := range candidates {
			state.Board.Set(candidate.move.Col, candidate.move.Row, me)
			eval := evaluateBoard(state.Board, me, config)
			state.Board.Remove(candidate.move.Col, candidate.move.Row)
			moves = append(moves, hintMoveDTO{
				Col:      candidate.move.Col,
				Row:      candidate.move.Row,
				Priority: candidate.priority,
				Winning:  candidate.winning,
				Blocking: candidate.blocking,
				Eval:     eval,
			})
		}
		decision, err := queue.AnalyzeSync(r.Context(), state, analysisParams{
			BudgetMs: config.HintBudgetMs,
			Mode:     AiModeMinimax,
			Depth:    config.HintDepth,
		})
		if err != nil {
			writeJSON(w, analysisErrorStatus(err), map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, hintResponse{
			BestCol: decision.Move.Col,
			BestRow: decision.Move.Row,
			Depth:   decision.Depth,
			Score:   decision.Score,
			Source:  string(decision.Source),
			Moves:   moves,
		})
	})

	r.Get("/api/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, GetConfig())
	})

	r.Put("/api/config", func(w http.ResponseWriter, r *http.Request) {
		var payload Config
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		if !validEngineMode(payload.AiMode) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown ai_mode"})
			return
		}
		configStore.Update(payload)
		config := GetConfig()
		queue.Engine().SetConfig(config)
		registry.ResetAllForConfigChange()
		hub.broadcastSettings <- settingsPayload{Config: config}
		writeJSON(w, http.StatusOK, config)
	})

	r.Post("/api/analyze", func(w http.ResponseWriter, r *http.Request) {
		var payload analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		board, err := BoardFromCells(payload.Board)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		state, err := gameStateForAnalysis(board, intToDisc(payload.Disc))
		if err != nil {
			writeJSON(w, analysisErrorStatus(err), map[string]string{"error": err.Error()})
			return
		}
		config := GetConfig()
		mode := payload.Mode
		if mode == "" {
			mode = config.AiMode
		}
		if !validEngineMode(mode) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown mode"})
			return
		}
		budget := payload.TimeMs
		if budget <= 0 {
			budget = config.AiTimeBudgetMs
		}
		decision, err := queue.AnalyzeSync(r.Context(), state, analysisParams{BudgetMs: budget, Mode: mode})
		if err != nil {
			writeJSON(w, analysisErrorStatus(err), map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, analyzeResponse{
			Col:         decision.Move.Col,
			Row:         decision.Move.Row,
			Score:       decision.Score,
			Source:      string(decision.Source),
			Depth:       decision.Depth,
			Simulations: decision.Simulations,
			ElapsedMs:   decision.Elapsed.Milliseconds(),
		})
	})

	r.Get("/api/analysis/queue", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, queue.Snapshot(GetConfig().AiAnalyticsTopBoards))
	})

	r.Get("/api/cache/tt", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ttCacheStatus(queue.Engine().Table()))
	})

	r.Delete("/api/cache/tt", func(w http.ResponseWriter, r *http.Request) {
		queue.Engine().ClearTable()
		writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
	})

	r.Get("/ws/games/{id}", func(w http.ResponseWriter, r *http.Request) {
		gc, ok := registry.Get(chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": ErrGameNotFound.Error()})
			return
		}
		serveGameWS(hub, gc, w, r)
	})
	r.Get("/ws/hints", func(w http.ResponseWriter, r *http.Request) {
		serveHintWS(hintHub, w, r)
	})
	r.Get("/ws/analytics", func(w http.ResponseWriter, r *http.Request) {
		serveAnalyticsWS(analyticsHub, queue, w, r)
	})

	addr := os.Getenv("CONNECT4_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{Addr: addr, Handler: r}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	log.Info().Str("addr", addr).Msg("backend listening")
	group, groupCtx := errgroup.WithContext(sigCtx)
	group.Go(func() error {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		if sigCtx.Err() != nil {
			log.Info().Msg("shutdown signal received")
		}
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("graceful shutdown failed")
			return server.Close()
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
	}

	cancel()
	registry.Shutdown()
}

const gameTickInterval = 50 * time.Millisecond

// runTickLoop advances every live game on a fixed cadence. Each tick
// drains queued human moves and finished engine turns, then pushes the
// resulting history entry and status to that game's subscribers.
func runTickLoop(ctx context.Context, registry *GameRegistry, hub *Hub) {
	ticker := time.NewTicker(gameTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, gc := range registry.TickAll() {
				if entry, ok := gc.LatestHistoryEntry(); ok {
					hub.broadcastHistory <- historyPayload{GameID: gc.ID(), History: []historyEntryDTO{historyEntryToDTO(entry)}}
				}
				hub.broadcastStatus <- gameResponseFrom(gc)
			}
		case <-ctx.Done():
			return
		}
	}
}

// prewarmAfterMove queues the position the AI is about to face so the
// shared table already holds its line when the turn engine probes it.
func prewarmAfterMove(queue *AnalysisQueue, gc *GameController) {
	config := GetConfig()
	if !config.AiQueueEnabled {
		return
	}
	state := gc.State()
	if state.Status != StatusRunning {
		return
	}
	_ = queue.Prewarm(state, analysisParams{Mode: AiModeMinimax, Depth: config.AiQueueTargetDepth})
}

func serveGameWS(hub *Hub, gc *GameController, w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sub := hub.Subscribe(gc.ID())
	pushStatus := func() {
		sub.push(wsMessage{Type: "status", Payload: mustMarshal(gameResponseFrom(gc))})
	}
	pushStatus()

	go func() {
		defer conn.Close()
		_ = runWSWritePump(conn, sub.send)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			hub.Unsubscribe(sub)
			return
		}
		var msg wsMessage
		if json.Unmarshal(raw, &msg) != nil || msg.Type != "request_status" {
			continue
		}
		pushStatus()
	}
}

func gameResponseFrom(gc *GameController) gameResponse {
	state := gc.State()
	return gameResponse{
		ID:              gc.ID(),
		Board:           boardGrid(state.Board),
		NextDisc:        discToInt(DiscFromPlayer(state.ToMove)),
		Winner:          winnerFromStatus(state.Status),
		Status:          statusToString(state.Status),
		AiThinking:      gc.AiThinking(),
		WinningLine:     append([]Move(nil), state.WinningLine...),
		History:         historyToDTO(gc.History()),
		Settings:        settingsToDTO(gc.Settings()),
		TurnStartedAtMs: gc.CurrentTurnStartedAtMs(),
		CreatedAtMs:     gc.CreatedAt().UnixMilli(),
	}
}

func gameSummaryFrom(gc *GameController) gameSummaryDTO {
	state := gc.State()
	return gameSummaryDTO{
		ID:          gc.ID(),
		Status:      statusToString(state.Status),
		Mode:        settingsToDTO(gc.Settings()).Mode,
		Moves:       gc.History().Size(),
		CreatedAtMs: gc.CreatedAt().UnixMilli(),
	}
}

// settingsFromDTO folds a client settings payload over a base. An empty
// mode keeps the base untouched; any other mode makes the payload
// authoritative for seats, start order and engine overrides, with
// human_disc picking the human's side in ai_vs_human games.
func settingsFromDTO(dto gameSettingsDTO, base GameSettings) (GameSettings, error) {
	settings := base
	switch dto.Mode {
	case "":
		return settings, nil
	case "ai_vs_ai":
		settings.RedType = PlayerAI
		settings.YellowType = PlayerAI
	case "human_vs_human":
		settings.RedType = PlayerHuman
		settings.YellowType = PlayerHuman
	case "ai_vs_human":
		if dto.HumanDisc == 2 {
			settings.RedType = PlayerAI
			settings.YellowType = PlayerHuman
		} else {
			settings.RedType = PlayerHuman
			settings.YellowType = PlayerAI
		}
	default:
		return GameSettings{}, errors.New("unknown mode")
	}
	if !validEngineMode(dto.EngineMode) {
		return GameSettings{}, errors.New("unknown engine_mode")
	}
	settings.EngineMode = dto.EngineMode
	settings.TimeBudgetMs = dto.TimeBudgetMs
	settings.Seed = dto.Seed
	settings.RedStarts = dto.RedStarts
	return settings, nil
}

func settingsToDTO(settings GameSettings) gameSettingsDTO {
	mode := "ai_vs_human"
	if settings.RedType == PlayerAI && settings.YellowType == PlayerAI {
		mode = "ai_vs_ai"
	} else if settings.RedType == PlayerHuman && settings.YellowType == PlayerHuman {
		mode = "human_vs_human"
	}
	humanDisc := 0
	if settings.RedType == PlayerHuman {
		humanDisc = 1
	} else if settings.YellowType == PlayerHuman {
		humanDisc = 2
	}
	return gameSettingsDTO{
		Mode:         mode,
		HumanDisc:    humanDisc,
		EngineMode:   settings.EngineMode,
		TimeBudgetMs: settings.TimeBudgetMs,
		Seed:         settings.Seed,
		RedStarts:    settings.RedStarts,
	}
}

func validEngineMode(mode string) bool {
	switch mode {
	case "", AiModeMinimax, AiModeMcts, AiModeBlend:
		return true
	}
	return false
}

// analysisErrorStatus maps engine sentinels onto HTTP statuses so REST
// callers can tell a bad request from a busy or stopped backend.
func analysisErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidDisc), errors.Is(err, ErrInvalidBoard):
		return http.StatusBadRequest
	case errors.Is(err, ErrGameNotRunning), errors.Is(err, ErrNoLegalMoves):
		return http.StatusConflict
	case errors.Is(err, ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrQueueStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func discToInt(disc Disc) int {
	switch disc {
	case DiscRed:
		return 1
	case DiscYellow:
		return 2
	default:
		return 0
	}
}

func intToDisc(value int) Disc {
	switch value {
	case 1:
		return DiscRed
	case 2:
		return DiscYellow
	default:
		return DiscNone
	}
}

var winnerCodes = map[GameStatus]int{
	StatusRedWon:    1,
	StatusYellowWon: 2,
}

func winnerFromStatus(status GameStatus) int {
	return winnerCodes[status]
}

var statusNames = map[GameStatus]string{
	StatusNotStarted: "not_started",
	StatusRunning:    "running",
	StatusRedWon:     "red_won",
	StatusYellowWon:  "yellow_won",
	StatusDraw:       "draw",
}

func statusToString(status GameStatus) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return "running"
}

func historyToDTO(history MoveHistory) []historyEntryDTO {
	result := make([]historyEntryDTO, history.Size())
	for i, entry := range history.All() {
		result[i] = historyEntryToDTO(entry)
	}
	return result
}

func historyEntryToDTO(entry HistoryEntry) historyEntryDTO {
	return historyEntryDTO{
		Col:       entry.Move.Col,
		Row:       entry.Move.Row,
		Disc:      discToInt(DiscFromPlayer(entry.Player)),
		ElapsedMs: entry.ElapsedMs,
		IsAi:      entry.IsAi,
		Depth:     entry.Depth,
		Source:    entry.Source,
	}
}

func ttCacheStatus(tt *TranspositionTable) ttCacheStatusResponse {
	if tt == nil {
		return ttCacheStatusResponse{}
	}
	count := tt.Count()
	capacity := tt.Capacity()
	usage := 0.0
	full := false
	if capacity > 0 {
		usage = float64(count) / float64(capacity)
		full = count >= capacity
	}
	return ttCacheStatusResponse{
		Count:    count,
		Capacity: capacity,
		Usage:    usage,
		Full:     full,
	}
}

// mustMarshal is reserved for payload types this package owns; a
// marshal failure on one of those is a programming error.
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Panic().Err(err).Msg("marshal failed")
	}
	return data
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Debug().Err(err).Msg("response encode failed")
	}
}
