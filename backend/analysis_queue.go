package main

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// analysisParams tunes one queued search. Zero values fall back to the
// engine config.
type analysisParams struct {
	BudgetMs int
	Mode     string
	Depth    int
}

type analysisOutcome struct {
	decision Decision
	err      error
}

// analysisTask is one queued position. done is nil for prewarm tasks;
// interactive tasks carry a buffered channel the worker answers on.
type analysisTask struct {
	state   GameState
	params  analysisParams
	created time.Time
	done    chan analysisOutcome
}

// AnalysisQueue serializes ad-hoc searches through one worker and one
// private engine, so analysis requests never race each other or a game
// engine over a shared table. Prewarm requests are deduplicated by
// position hash and dropped when the queue is full; interactive
// requests jump the line.
type AnalysisQueue struct {
	mu        sync.Mutex
	tasks     []analysisTask
	prewarmed map[uint64]struct{}
	engine    *AIEngine
	hub       *AnalyticsHub
	limit     int
	stopped   bool
	activeID  string
	activeAt  int64
}

const analysisQueuePollInterval = 150 * time.Millisecond

func NewAnalysisQueue(config Config) *AnalysisQueue {
	limit := config.AiQueueLimit
	if limit <= 0 {
		limit = DefaultConfig().AiQueueLimit
	}
	queue := &AnalysisQueue{
		prewarmed: make(map[uint64]struct{}),
		engine:    NewAIEngine(config),
		limit:     limit,
	}
	log.Debug().
		Uint64("heuristic_fingerprint", queue.engine.HeuristicFingerprint()).
		Int("limit", limit).
		Msg("analysis queue ready")
	return queue
}

func (q *AnalysisQueue) SetHub(hub *AnalyticsHub) {
	q.mu.Lock()
	q.hub = hub
	q.mu.Unlock()
}

func (q *AnalysisQueue) Engine() *AIEngine {
	return q.engine
}

// Start launches the worker. It runs until done closes, then fails all
// waiters that are still queued.
func (q *AnalysisQueue) Start(done <-chan struct{}) {
	go q.worker(done)
}

// Prewarm queues a position so its lines are already in the analysis
// table when a hint or analyze call arrives. Duplicate positions and
// full queues are dropped with an error the caller may ignore.
func (q *AnalysisQueue) Prewarm(state GameState, params analysisParams) error {
	if state.Hash == 0 {
		state.recomputeHash()
	}
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrQueueStopped
	}
	if _, dup := q.prewarmed[state.Hash]; dup {
		q.mu.Unlock()
		return nil
	}
	if len(q.tasks) >= q.limit {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.prewarmed[state.Hash] = struct{}{}
	q.tasks = append(q.tasks, analysisTask{state: state.Clone(), params: params, created: time.Now()})
	total := len(q.tasks)
	hub := q.hub
	q.mu.Unlock()
	publishQueueEvent(hub, "task_queued", positionID(state.Hash), total)
	return nil
}

// AnalyzeSync runs one search through the worker and waits for the
// outcome or the caller's context.
func (q *AnalysisQueue) AnalyzeSync(ctx context.Context, state GameState, params analysisParams) (Decision, error) {
	if state.Hash == 0 {
		state.recomputeHash()
	}
	task := analysisTask{
		state:   state.Clone(),
		params:  params,
		created: time.Now(),
		done:    make(chan analysisOutcome, 1),
	}
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return Decision{}, ErrQueueStopped
	}
	q.tasks = append([]analysisTask{task}, q.tasks...)
	total := len(q.tasks)
	hub := q.hub
	q.mu.Unlock()
	publishQueueEvent(hub, "task_queued", positionID(state.Hash), total)
	select {
	case outcome := <-task.done:
		return outcome.decision, outcome.err
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
}

func (q *AnalysisQueue) pop() (analysisTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return analysisTask{}, false
	}
	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	if task.done == nil {
		delete(q.prewarmed, task.state.Hash)
	}
	q.activeID = positionID(task.state.Hash)
	q.activeAt = time.Now().UnixMilli()
	return task, true
}

func (q *AnalysisQueue) worker(done <-chan struct{}) {
	for {
		select {
		case <-done:
			q.shutdown()
			return
		default:
		}
		task, ok := q.pop()
		if !ok {
			select {
			case <-done:
				q.shutdown()
				return
			case <-time.After(analysisQueuePollInterval):
			}
			continue
		}
		q.mu.Lock()
		hub := q.hub
		total := len(q.tasks)
		q.mu.Unlock()
		publishQueueEvent(hub, "task_started", q.activeID, total)
		opts := decideOptions{
			budgetMs: task.params.BudgetMs,
			mode:     task.params.Mode,
			depth:    task.params.Depth,
		}
		decision, err := q.engine.BestMove(task.state, opts)
		if task.done != nil {
			task.done <- analysisOutcome{decision: decision, err: err}
		}
		q.mu.Lock()
		activeID := q.activeID
		q.activeID = ""
		q.activeAt = 0
		total = len(q.tasks)
		q.mu.Unlock()
		publishQueueEvent(hub, "task_done", activeID, total)
	}
}

// shutdown marks the queue stopped and fails every waiter still queued.
func (q *AnalysisQueue) shutdown() {
	q.mu.Lock()
	q.stopped = true
	pending := q.tasks
	q.tasks = nil
	q.prewarmed = make(map[uint64]struct{})
	q.mu.Unlock()
	for _, task := range pending {
		if task.done != nil {
			task.done <- analysisOutcome{err: ErrQueueStopped}
		}
	}
}

func (q *AnalysisQueue) TotalQueued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := len(q.tasks)
	if q.activeID != "" {
		total++
	}
	return total
}

// Snapshot lists the active search and the waiting tasks, capped by the
// analytics board limit.
func (q *AnalysisQueue) Snapshot(limit int) queueSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	snapshot := queueSnapshot{TotalInQueue: len(q.tasks)}
	if q.activeID != "" {
		snapshot.TotalInQueue++
		snapshot.Queue = append(snapshot.Queue, queueEntryDTO{
			ID:                  q.activeID,
			Analyzing:           true,
			AnalysisStartedAtMs: q.activeAt,
		})
	}
	for _, task := range q.tasks {
		if limit > 0 && len(snapshot.Queue) >= limit {
			break
		}
		snapshot.Queue = append(snapshot.Queue, queueEntryDTO{
			ID:          positionID(task.state.Hash),
			Board:       boardGrid(task.state.Board),
			NextDisc:    discToInt(DiscFromPlayer(task.state.ToMove)),
			Mode:        task.params.Mode,
			BudgetMs:    task.params.BudgetMs,
			Depth:       task.params.Depth,
			Interactive: task.done != nil,
			EnqueuedAt:  task.created.UnixMilli(),
		})
	}
	return snapshot
}
