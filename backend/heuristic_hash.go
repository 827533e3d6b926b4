package main

import "math"

const (
	fnv64Offset uint64 = 1469598103934665603
	fnv64Prime  uint64 = 1099511628211
)

// resolvedHeuristicConfig fills zero-valued weights from the defaults
// so a partial config payload never silently flattens the evaluator.
func resolvedHeuristicConfig(config Config) HeuristicConfig {
	defaults := DefaultConfig().Heuristics
	heuristics := config.Heuristics
	if heuristics == (HeuristicConfig{}) {
		return defaults
	}
	if heuristics.WindowFour == 0 {
		heuristics.WindowFour = defaults.WindowFour
	}
	if heuristics.WindowThree == 0 {
		heuristics.WindowThree = defaults.WindowThree
	}
	if heuristics.WindowTwo == 0 {
		heuristics.WindowTwo = defaults.WindowTwo
	}
	if heuristics.CenterWeight == 0 {
		heuristics.CenterWeight = defaults.CenterWeight
	}
	return heuristics
}

// heuristicHash fingerprints the evaluator weights with FNV-1a over
// their raw float bits. Transposition entries are tagged with it so
// scores computed under old weights are never served after a config
// change.
func heuristicHash(config HeuristicConfig) uint64 {
	weights := [...]float64{
		config.WindowFour,
		config.WindowThree,
		config.WindowTwo,
		config.CenterWeight,
	}
	hash := fnv64Offset
	for _, weight := range weights {
		raw := math.Float64bits(weight)
		for shift := 0; shift < 64; shift += 8 {
			hash ^= uint64(byte(raw >> shift))
			hash *= fnv64Prime
		}
	}
	return hash
}

func heuristicHashFromConfig(config Config) uint64 {
	return heuristicHash(resolvedHeuristicConfig(config))
}
