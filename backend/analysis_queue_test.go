package main

import (
	"context"
	"errors"
	"testing"
	"time"
)

func queueTestConfig() Config {
	config := DefaultConfig()
	config.AiLogSearchStats = false
	config.AiTimeBudgetMs = 0
	return config
}

// queueStates returns three positions with distinct hashes.
func queueStates() [3]GameState {
	first := runningState(true)

	second := runningState(true)
	second.Board.Set(0, 5, DiscRed)
	second.ToMove = PlayerYellow
	second.recomputeHash()

	third := runningState(true)
	third.Board.Set(0, 5, DiscRed)
	third.Board.Set(1, 5, DiscYellow)
	third.recomputeHash()

	return [3]GameState{first, second, third}
}

func TestAnalysisQueueAnalyzeSyncReturnsDecision(t *testing.T) {
	queue := NewAnalysisQueue(queueTestConfig())
	done := make(chan struct{})
	queue.Start(done)
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	decision, err := queue.AnalyzeSync(ctx, runningState(true), analysisParams{Mode: AiModeMinimax, Depth: 3})
	if err != nil {
		t.Fatalf("expected a decision, got %v", err)
	}
	if decision.Move.Col < 0 || decision.Move.Col >= BoardCols {
		t.Fatalf("expected a legal column, got %d", decision.Move.Col)
	}
	if decision.Source != SourceMinimax {
		t.Fatalf("expected a minimax decision, got %s", decision.Source)
	}
	if queue.Engine().Table().Count() == 0 {
		t.Fatalf("expected the analysis table to hold the searched lines")
	}
}

func TestAnalysisQueueAnalyzeSyncHonorsContext(t *testing.T) {
	queue := NewAnalysisQueue(queueTestConfig())

	// No worker is running, so only the context can end the wait.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := queue.AnalyzeSync(ctx, runningState(true), analysisParams{Mode: AiModeMinimax, Depth: 2})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAnalysisQueuePrewarmDedupAndLimit(t *testing.T) {
	config := queueTestConfig()
	config.AiQueueLimit = 2
	queue := NewAnalysisQueue(config)
	states := queueStates()
	params := analysisParams{Mode: AiModeMinimax, Depth: 2, BudgetMs: 10}

	if err := queue.Prewarm(states[0], params); err != nil {
		t.Fatalf("expected the first prewarm to queue, got %v", err)
	}
	if err := queue.Prewarm(states[0], params); err != nil {
		t.Fatalf("expected the duplicate prewarm to be dropped silently, got %v", err)
	}
	if queue.TotalQueued() != 1 {
		t.Fatalf("expected the duplicate to not take a slot, got %d queued", queue.TotalQueued())
	}
	if err := queue.Prewarm(states[1], params); err != nil {
		t.Fatalf("expected the second position to queue, got %v", err)
	}
	if err := queue.Prewarm(states[2], params); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull at the limit, got %v", err)
	}
}

func TestAnalysisQueuePrewarmWarmsTable(t *testing.T) {
	queue := NewAnalysisQueue(queueTestConfig())
	done := make(chan struct{})
	queue.Start(done)
	defer close(done)

	if err := queue.Prewarm(runningState(true), analysisParams{Mode: AiModeMinimax, Depth: 3}); err != nil {
		t.Fatalf("expected the prewarm to queue, got %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for queue.Engine().Table().Count() == 0 || queue.TotalQueued() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected the prewarm search to fill the table")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAnalysisQueueStopFailsNewWork(t *testing.T) {
	queue := NewAnalysisQueue(queueTestConfig())
	done := make(chan struct{})
	queue.Start(done)
	close(done)

	state := runningState(true)
	params := analysisParams{Mode: AiModeMinimax, Depth: 2, BudgetMs: 10}
	deadline := time.Now().Add(5 * time.Second)
	for !errors.Is(queue.Prewarm(state, params), ErrQueueStopped) {
		if time.Now().After(deadline) {
			t.Fatalf("expected the stopped queue to reject prewarms")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := queue.AnalyzeSync(context.Background(), state, params); !errors.Is(err, ErrQueueStopped) {
		t.Fatalf("expected ErrQueueStopped, got %v", err)
	}
}

func TestAnalysisQueueSnapshotListsQueuedBoards(t *testing.T) {
	config := queueTestConfig()
	config.AiQueueLimit = 8
	queue := NewAnalysisQueue(config)
	states := queueStates()
	params := analysisParams{Mode: AiModeMinimax, Depth: 3, BudgetMs: 40}

	for i := 0; i < 2; i++ {
		if err := queue.Prewarm(states[i], params); err != nil {
			t.Fatalf("expected prewarm %d to queue, got %v", i, err)
		}
	}

	snapshot := queue.Snapshot(10)
	if snapshot.TotalInQueue != 2 || len(snapshot.Queue) != 2 {
		t.Fatalf("expected two queued boards, got total=%d listed=%d", snapshot.TotalInQueue, len(snapshot.Queue))
	}
	entry := snapshot.Queue[0]
	if entry.Analyzing || entry.Interactive {
		t.Fatalf("expected a waiting prewarm entry, got %+v", entry)
	}
	if entry.ID == "" || entry.EnqueuedAt <= 0 {
		t.Fatalf("expected an id and enqueue time, got %+v", entry)
	}
	if len(entry.Board) != BoardRows || len(entry.Board[0]) != BoardCols {
		t.Fatalf("expected a full board grid, got %dx%d", len(entry.Board), len(entry.Board[0]))
	}
	if entry.Mode != AiModeMinimax || entry.BudgetMs != 40 || entry.Depth != 3 {
		t.Fatalf("expected the queued params to be echoed, got %+v", entry)
	}
	if entry.NextDisc != 1 && entry.NextDisc != 2 {
		t.Fatalf("expected a next disc, got %d", entry.NextDisc)
	}

	capped := queue.Snapshot(1)
	if len(capped.Queue) != 1 || capped.TotalInQueue != 2 {
		t.Fatalf("expected the cap to trim the listing only, got listed=%d total=%d", len(capped.Queue), capped.TotalInQueue)
	}
}
