package main

import "errors"

var (
	// ErrInvalidBoard flags a board payload with bad dimensions or cell
	// values. Callers fail fast instead of searching garbage positions.
	ErrInvalidBoard = errors.New("invalid board")

	// ErrNoLegalMoves signals that a decision was requested for a
	// position with zero playable columns.
	ErrNoLegalMoves = errors.New("no legal moves")

	// ErrGameNotRunning rejects decisions and moves on finished or
	// unstarted games.
	ErrGameNotRunning = errors.New("game not running")

	// ErrGameNotFound is returned by the registry for unknown game ids.
	ErrGameNotFound = errors.New("game not found")

	// ErrInvalidDisc rejects decision requests for a disc that is
	// neither red nor yellow.
	ErrInvalidDisc = errors.New("invalid disc")

	// ErrColumnFull rejects a drop into a column whose top cell is
	// already occupied.
	ErrColumnFull = errors.New("column full")

	// ErrQueueFull is returned when the analysis queue is at capacity.
	ErrQueueFull = errors.New("analysis queue full")

	// ErrQueueStopped is returned when a request arrives after the
	// analysis worker shut down.
	ErrQueueStopped = errors.New("analysis queue stopped")
)
