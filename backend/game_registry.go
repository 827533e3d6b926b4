package main

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// GameRegistry owns every live game, keyed by a server-assigned uuid.
// Controllers do their own locking; the registry lock only guards the
// map.
type GameRegistry struct {
	mu    sync.RWMutex
	games map[string]*GameController
	limit int
}

func NewGameRegistry(limit int) *GameRegistry {
	return &GameRegistry{games: make(map[string]*GameController), limit: limit}
}

// Create builds a started game and registers it. It returns nil when
// the registry is at its game limit.
func (r *GameRegistry) Create(settings GameSettings) *GameController {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limit > 0 && len(r.games) >= r.limit {
		return nil
	}
	id := uuid.NewString()
	gc := NewGameController(id, settings)
	gc.StartGame(settings)
	r.games[id] = gc
	return gc
}

func (r *GameRegistry) Get(id string) (*GameController, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gc, ok := r.games[id]
	return gc, ok
}

// Delete unregisters the game and stops its searches. The bool reports
// whether the id existed.
func (r *GameRegistry) Delete(id string) bool {
	r.mu.Lock()
	gc, ok := r.games[id]
	if ok {
		delete(r.games, id)
	}
	r.mu.Unlock()
	if ok {
		gc.Shutdown()
	}
	return ok
}

// List returns the controllers ordered by creation time so the games
// index is stable across calls.
func (r *GameRegistry) List() []*GameController {
	r.mu.RLock()
	out := make([]*GameController, 0, len(r.games))
	for _, gc := range r.games {
		out = append(out, gc)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].createdAt.Before(out[j].createdAt)
		}
		return out[i].id < out[j].id
	})
	return out
}

func (r *GameRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// TickAll advances every game one step and returns the controllers that
// applied a move, so the caller can broadcast just those.
func (r *GameRegistry) TickAll() []*GameController {
	r.mu.RLock()
	snapshot := make([]*GameController, 0, len(r.games))
	for _, gc := range r.games {
		snapshot = append(snapshot, gc)
	}
	r.mu.RUnlock()
	var moved []*GameController
	for _, gc := range snapshot {
		if gc.Tick() {
			moved = append(moved, gc)
		}
	}
	return moved
}

// ResetAllForConfigChange pushes new global tunables into every live
// game's engines.
func (r *GameRegistry) ResetAllForConfigChange() {
	for _, gc := range r.List() {
		gc.ResetForConfigChange()
	}
}

// Shutdown stops every game's searches. Used on server exit.
func (r *GameRegistry) Shutdown() {
	for _, gc := range r.List() {
		gc.Shutdown()
	}
}
