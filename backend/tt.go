package main

import (
	"math"
	"math/bits"
	"sort"
	"sync"
	"sync/atomic"
)

// TTFlag records how a stored score relates to the true value of the
// position: exact, a lower bound after a fail-high, or an upper bound
// after a fail-low.
// TTFlag says whether a stored score is exact or a bound left by a
// search cutoff.
type TTFlag uint8

const (
	TTExact TTFlag = iota // full-window score
	TTLower               // fail high, true score is at least this
	TTUpper               // fail low, true score is at most this
)

// Entries untouched for this many generations lose their seniority and
// may be refreshed by a same-depth, same-flag store.
const ttVeryOldGenerations = 8

// TTEntry is one cached search result. Fingerprint names the evaluator
// weights the score was computed under; probes running with different
// weights treat the slot as a miss. Stamp holds the generation the
// entry was last written or probed in.
type TTEntry struct {
	Key         uint64
	Fingerprint uint64
	Depth       int
	Score       int32
	Flag        TTFlag
	BestMove    Move
	Hits        uint32
	Stamp       uint32
	Valid       bool
}

func (e TTEntry) ScoreFloat() float64 {
	return float64(e.Score)
}

// ttShard owns a contiguous run of buckets together with the lock that
// guards them, so concurrent searches contend only when their keys land
// in the same shard.
type ttShard struct {
	mu    sync.Mutex
	slots []TTEntry
}

// TranspositionTable caches alpha-beta results between searches. The
// bucket array is split across shards; Probe and Store lock a single
// shard while Count, Clear and snapshots walk all of them in turn.
type TranspositionTable struct {
	shards     []ttShard
	bucketMask uint64
	localMask  uint64
	shardBits  uint
	ways       int
	gen        atomic.Uint32
}

// NewTranspositionTable builds a table with size buckets of the given
// slot count. Size is rounded up to a power of two so keys map to
// buckets with a mask.
func NewTranspositionTable(size uint64, buckets int) *TranspositionTable {
	if buckets <= 0 {
		buckets = 2
	}
	if size < 1 {
		size = 1
	}
	size = ceilPowerOfTwo(size)

	shardCount := uint64(64)
	if size < shardCount {
		shardCount = size
	}
	perShard := size / shardCount

	tt := &TranspositionTable{
		shards:     make([]ttShard, shardCount),
		bucketMask: size - 1,
		localMask:  perShard - 1,
		shardBits:  uint(bits.TrailingZeros64(perShard)),
		ways:       buckets,
	}
	for i := range tt.shards {
		tt.shards[i].slots = make([]TTEntry, perShard*uint64(buckets))
	}
	tt.gen.Store(1)
	return tt
}

// locate resolves a key to its shard and to the first slot of its
// bucket inside that shard.
func (tt *TranspositionTable) locate(key uint64) (*ttShard, int) {
	bucket := key & tt.bucketMask
	shard := &tt.shards[bucket>>tt.shardBits]
	return shard, int(bucket&tt.localMask) * tt.ways
}

// NextGeneration advances the aging clock. Zero is reserved for "never
// stamped", so a wrapped counter lands on one.
func (tt *TranspositionTable) NextGeneration() {
	if tt.gen.Add(1) == 0 {
		tt.gen.CompareAndSwap(0, 1)
	}
}

func (tt *TranspositionTable) Generation() uint32 {
	return tt.generationNow()
}

func (tt *TranspositionTable) generationNow() uint32 {
	for {
		if g := tt.gen.Load(); g != 0 {
			return g
		}
		tt.gen.CompareAndSwap(0, 1)
	}
}

// Clear drops every entry and restarts the aging clock.
func (tt *TranspositionTable) Clear() {
	for i := range tt.shards {
		shard := &tt.shards[i]
		shard.mu.Lock()
		for j := range shard.slots {
			shard.slots[j] = TTEntry{}
		}
		shard.mu.Unlock()
	}
	tt.gen.Store(1)
}

// Probe looks the key up under the given evaluator fingerprint. A hit
// bumps the entry's traffic counter and refreshes its stamp.
func (tt *TranspositionTable) Probe(key uint64, fingerprint uint64) (TTEntry, bool) {
	shard, base := tt.locate(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	for i := base; i < base+tt.ways; i++ {
		slot := &shard.slots[i]
		if !slot.Valid || slot.Key != key || slot.Fingerprint != fingerprint {
			continue
		}
		slot.Hits++
		slot.Stamp = tt.generationNow()
		return *slot, true
	}
	return TTEntry{}, false
}

// Store writes a search result. It reports (replaced, overwrote):
// overwrote means the same position was refreshed in place, replaced
// means a different position was evicted from a full bucket. A store
// that loses to every occupant reports neither.
func (tt *TranspositionTable) Store(key uint64, fingerprint uint64, depth int, value float64, flag TTFlag, best Move) (replaced bool, overwrote bool) {
	shard, base := tt.locate(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	gen := tt.generationNow()
	fresh := TTEntry{
		Key:         key,
		Fingerprint: fingerprint,
		Depth:       depth,
		Score:       roundScore(value),
		Flag:        flag,
		BestMove:    best,
		Stamp:       gen,
		Valid:       true,
	}

	free := -1
	victim := -1
	victimClaim := claimNone
	victimAge := uint32(0)
	for i := base; i < base+tt.ways; i++ {
		slot := &shard.slots[i]
		if !slot.Valid {
			if free < 0 {
				free = i
			}
			continue
		}
		if slot.Key == key && slot.Fingerprint == fingerprint {
			if claimAgainst(*slot, depth, flag, gen) == claimNone {
				return false, false
			}
			*slot = fresh
			return false, true
		}
		claim := claimAgainst(*slot, depth, flag, gen)
		if claim == claimNone {
			continue
		}
		if age := gen - slot.Stamp; claim > victimClaim || (claim == victimClaim && age > victimAge) {
			victim = i
			victimClaim = claim
			victimAge = age
		}
	}

	if free >= 0 {
		shard.slots[free] = fresh
		return false, false
	}
	if victim < 0 {
		return false, false
	}
	shard.slots[victim] = fresh
	return true, false
}

// DeleteByKey drops every entry cached for the key, whatever
// fingerprint it was written under.
func (tt *TranspositionTable) DeleteByKey(key uint64) bool {
	shard, base := tt.locate(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	found := false
	for i := base; i < base+tt.ways; i++ {
		if shard.slots[i].Valid && shard.slots[i].Key == key {
			shard.slots[i] = TTEntry{}
			found = true
		}
	}
	return found
}

// TopEntriesByHits returns one page of live entries ordered by probe
// traffic, plus the total number of live entries.
func (tt *TranspositionTable) TopEntriesByHits(offset int, limit int) ([]TTEntry, int) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	live := tt.collectLive()
	sort.Slice(live, func(i, j int) bool {
		a, b := live[i], live[j]
		switch {
		case a.Hits != b.Hits:
			return a.Hits > b.Hits
		case a.Depth != b.Depth:
			return a.Depth > b.Depth
		case a.Stamp != b.Stamp:
			return a.Stamp > b.Stamp
		}
		return a.Key < b.Key
	})
	total := len(live)
	if offset >= total {
		return []TTEntry{}, total
	}
	if end := offset + limit; end < total {
		live = live[:end]
	}
	return live[offset:], total
}

func (tt *TranspositionTable) collectLive() []TTEntry {
	var live []TTEntry
	for i := range tt.shards {
		shard := &tt.shards[i]
		shard.mu.Lock()
		for j := range shard.slots {
			if shard.slots[j].Valid {
				live = append(live, shard.slots[j])
			}
		}
		shard.mu.Unlock()
	}
	return live
}

func (tt *TranspositionTable) Count() int {
	total := 0
	for i := range tt.shards {
		shard := &tt.shards[i]
		shard.mu.Lock()
		for j := range shard.slots {
			if shard.slots[j].Valid {
				total++
			}
		}
		shard.mu.Unlock()
	}
	return total
}

func (tt *TranspositionTable) Capacity() int {
	if tt == nil {
		return 0
	}
	total := 0
	for i := range tt.shards {
		total += len(tt.shards[i].slots)
	}
	return total
}

// ttClaim ranks an incoming store's right to take over an occupied
// slot. Higher claims win; age breaks ties.
type ttClaim int

const (
	claimNone ttClaim = iota
	claimStale
	claimExactness
	claimDeeper
)

// claimAgainst compares the incoming store with a live slot. A deeper
// search always wins; at equal depth an exact score displaces a bound,
// and an entry idle for ttVeryOldGenerations may be refreshed even by
// an equal store.
func claimAgainst(slot TTEntry, depth int, flag TTFlag, gen uint32) ttClaim {
	switch {
	case depth > slot.Depth:
		return claimDeeper
	case depth != slot.Depth:
		return claimNone
	case flag == TTExact && slot.Flag != TTExact:
		return claimExactness
	case flag == slot.Flag && gen-slot.Stamp >= ttVeryOldGenerations:
		return claimStale
	default:
		return claimNone
	}
}

// roundScore narrows a search score to the stored int32, rounding to
// the nearest integer and clamping at the type bounds.
func roundScore(value float64) int32 {
	r := math.Round(value)
	switch {
	case r >= math.MaxInt32:
		return math.MaxInt32
	case r <= math.MinInt32:
		return math.MinInt32
	}
	return int32(r)
}

func ceilPowerOfTwo(v uint64) uint64 {
	if v&(v-1) == 0 {
		return v
	}
	return 1 << bits.Len64(v)
}
