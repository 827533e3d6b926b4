package main

import (
	"math"
	"math/rand"
	"time"
)

// MCTSStats accumulates counters across one Monte-Carlo search. Like
// SearchStats, the search only counts; the owning layer logs.
type MCTSStats struct {
	Simulations  int
	Expansions   int
	TreeSize     int
	PlayoutPlies int64
	RootVisits   [BoardCols]int
}

const mctsNoParent = -1

// playoutSoftmaxScale divides priority gaps before exponentiation, so a
// win (1000) still towers over a center move (800) at temperature 1
// without rounding everything else to zero.
const playoutSoftmaxScale = 100.0

// mctsNode is one tree position. Nodes live in a flat arena owned by
// the tree and refer to each other by index, never by pointer, so
// growing the arena cannot dangle a reference. moveCol is the drop that
// produced this node; -1 at the root.
type mctsNode struct {
	state    GameState
	parent   int32
	moveCol  int
	visits   int
	wins     float64
	children []int32
}

type mctsTree struct {
	nodes       []mctsNode
	rng         *rand.Rand
	exploration float64
	temperature float64
	expandAfter int
	maxPlies    int
	stats       *MCTSStats
}

func newMCTSTree(root GameState, config Config, rng *rand.Rand, stats *MCTSStats) *mctsTree {
	defaults := DefaultConfig()
	exploration := config.MctsExploration
	if exploration <= 0 {
		exploration = defaults.MctsExploration
	}
	temperature := config.MctsPlayoutTemp
	if temperature <= 0 {
		temperature = defaults.MctsPlayoutTemp
	}
	maxPlies := config.MctsMaxPlayoutPlies
	if maxPlies <= 0 {
		maxPlies = defaults.MctsMaxPlayoutPlies
	}
	expandAfter := config.MctsExpandThresh
	if expandAfter < 0 {
		expandAfter = 0
	}
	tree := &mctsTree{
		nodes:       make([]mctsNode, 0, 4096),
		rng:         rng,
		exploration: exploration,
		temperature: temperature,
		expandAfter: expandAfter,
		maxPlies:    maxPlies,
		stats:       stats,
	}
	tree.nodes = append(tree.nodes, mctsNode{state: root.Clone(), parent: mctsNoParent, moveCol: -1})
	return tree
}

func winnerDisc(status GameStatus) Disc {
	switch status {
	case StatusRedWon:
		return DiscRed
	case StatusYellowWon:
		return DiscYellow
	default:
		return DiscNone
	}
}

// selectLeaf walks down from the root through fully explored nodes by
// UCT value and stops at a terminal node, a node with no children, or a
// node that still has an unvisited child.
func (t *mctsTree) selectLeaf() int {
	idx := 0
	for {
		node := &t.nodes[idx]
		if node.state.Status != StatusRunning || len(node.children) == 0 {
			return idx
		}
		if t.firstUnvisitedChild(idx) != mctsNoParent {
			return idx
		}
		idx = t.bestUCTChild(idx)
	}
}

func (t *mctsTree) firstUnvisitedChild(idx int) int {
	for _, child := range t.nodes[idx].children {
		if t.nodes[child].visits == 0 {
			return int(child)
		}
	}
	return mctsNoParent
}

// bestUCTChild assumes every child has at least one visit. Win rates
// are stored from the perspective of the player who moved into the
// child, which is exactly the side choosing here. Ties keep the first
// candidate, and children are created in ascending column order.
func (t *mctsTree) bestUCTChild(idx int) int {
	node := &t.nodes[idx]
	logParent := math.Log(float64(node.visits))
	best := int(node.children[0])
	bestValue := math.Inf(-1)
	for _, child := range node.children {
		c := &t.nodes[child]
		value := c.wins/float64(c.visits) + t.exploration*math.Sqrt(logParent/float64(c.visits))
		if value > bestValue {
			bestValue = value
			best = int(child)
		}
	}
	return best
}

// expand creates one child per legal column. Appending can reallocate
// the arena, so the parent is only touched by index.
func (t *mctsTree) expand(idx int) {
	cols := legalMoves(t.nodes[idx].state.Board)
	if len(cols) == 0 {
		return
	}
	children := make([]int32, 0, len(cols))
	for _, col := range cols {
		child := t.nodes[idx].state.Clone()
		if _, ok := applyDrop(&child, col); !ok {
			continue
		}
		t.nodes = append(t.nodes, mctsNode{state: child, parent: int32(idx), moveCol: col})
		children = append(children, int32(len(t.nodes)-1))
	}
	t.nodes[idx].children = children
	if t.stats != nil {
		t.stats.Expansions++
	}
}

// playoutColumn picks a column for the simulation policy: softmax over
// the move-order priorities, so wins and blocks dominate but playouts
// stay varied. A near-zero temperature degenerates to greedy play.
func (t *mctsTree) playoutColumn(board Board, mover Disc) (int, bool) {
	cols := legalMoves(board)
	if len(cols) == 0 {
		return 0, false
	}
	if len(cols) == 1 {
		return cols[0], true
	}
	opp := otherDisc(mover)
	priorities := make([]int, len(cols))
	maxPriority := math.MinInt
	for i, col := range cols {
		p := centerPriority(col)
		if moveWinsImmediately(board, col, mover) {
			p = prioWin
		} else if moveWinsImmediately(board, col, opp) {
			p = prioBlockWin
		}
		priorities[i] = p
		if p > maxPriority {
			maxPriority = p
		}
	}
	if t.temperature <= 0.01 {
		for i, p := range priorities {
			if p == maxPriority {
				return cols[i], true
			}
		}
	}
	scale := t.temperature * playoutSoftmaxScale
	weights := make([]float64, len(cols))
	total := 0.0
	for i, p := range priorities {
		w := math.Exp(float64(p-maxPriority) / scale)
		weights[i] = w
		total += w
	}
	r := t.rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return cols[i], true
		}
	}
	return cols[len(cols)-1], true
}

// playout simulates from the given position until the game ends or the
// ply valve trips, and returns the winning disc (DiscNone for a draw or
// a truncated line).
func (t *mctsTree) playout(start GameState) Disc {
	sim := start.Clone()
	for ply := 0; ply < t.maxPlies; ply++ {
		if sim.Status != StatusRunning {
			return winnerDisc(sim.Status)
		}
		col, ok := t.playoutColumn(sim.Board, DiscFromPlayer(sim.ToMove))
		if !ok {
			return DiscNone
		}
		if _, ok := applyDrop(&sim, col); !ok {
			return DiscNone
		}
		if t.stats != nil {
			t.stats.PlayoutPlies++
		}
	}
	return winnerDisc(sim.Status)
}

// backpropagate bumps visit counts up the path and credits a win at
// every node the winning side moved into. Draws and truncated playouts
// count half for both sides.
func (t *mctsTree) backpropagate(idx int, winner Disc) {
	for idx != mctsNoParent {
		node := &t.nodes[idx]
		node.visits++
		if winner == DiscNone {
			node.wins += 0.5
		} else if DiscFromPlayer(otherPlayer(node.state.ToMove)) == winner {
			node.wins++
		}
		idx = int(node.parent)
	}
}

// iterate runs one full select, expand, playout, backpropagate cycle.
func (t *mctsTree) iterate() {
	idx := t.selectLeaf()
	node := &t.nodes[idx]
	if node.state.Status != StatusRunning {
		t.backpropagate(idx, winnerDisc(node.state.Status))
		if t.stats != nil {
			t.stats.Simulations++
		}
		return
	}
	if len(node.children) == 0 {
		if node.visits >= t.expandAfter {
			t.expand(idx)
			if children := t.nodes[idx].children; len(children) > 0 {
				idx = int(children[0])
			}
		}
	} else if unvisited := t.firstUnvisitedChild(idx); unvisited != mctsNoParent {
		idx = unvisited
	}
	winner := t.playout(t.nodes[idx].state)
	t.backpropagate(idx, winner)
	if t.stats != nil {
		t.stats.Simulations++
	}
}

// runMCTS searches the position for the side to move and returns the
// robust child: the root move with the most visits, lowest column on a
// tie. The second return is that child's observed win rate. It returns
// ok=false only when the root has no legal children.
//
// The caller supplies the random source, so a fixed seed replays the
// identical tree. With no deadline and no simulation cap a default cap
// keeps the loop finite.
func runMCTS(state GameState, config Config, rng *rand.Rand, budget time.Duration, shouldStop func() bool, stats *MCTSStats) (Move, float64, bool) {
	if state.Status != StatusRunning {
		return Move{Col: -1, Row: -1}, 0, false
	}
	tree := newMCTSTree(state, config, rng, stats)
	tree.expand(0)
	rootChildren := tree.nodes[0].children
	if len(rootChildren) == 0 {
		return Move{Col: -1, Row: -1}, 0, false
	}

	maxSims := config.MctsMaxSimulations
	hasDeadline := budget > 0
	deadline := time.Now().Add(budget)
	if !hasDeadline && maxSims <= 0 {
		maxSims = 2000
	}
	for sims := 0; maxSims <= 0 || sims < maxSims; sims++ {
		if hasDeadline && time.Now().After(deadline) {
			break
		}
		if shouldStop != nil && shouldStop() {
			break
		}
		tree.iterate()
	}

	bestIdx := int(rootChildren[0])
	for _, child := range rootChildren[1:] {
		if tree.nodes[child].visits > tree.nodes[bestIdx].visits {
			bestIdx = int(child)
		}
	}
	if stats != nil {
		stats.TreeSize = len(tree.nodes)
		for _, child := range rootChildren {
			node := &tree.nodes[child]
			if node.moveCol >= 0 && node.moveCol < BoardCols {
				stats.RootVisits[node.moveCol] = node.visits
			}
		}
	}
	best := &tree.nodes[bestIdx]
	winRate := 0.0
	if best.visits > 0 {
		winRate = best.wins / float64(best.visits)
	}
	return best.state.LastMove, winRate, true
}
