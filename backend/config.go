package main

import "sync"

// Config carries every tunable the engine and serving layer expose.
// Values travel as JSON through GET/PUT /api/config.
type Config struct {
	AiMode               string  `json:"ai_mode"`
	AiDepth              int     `json:"ai_depth"`
	AiMinDepth           int     `json:"ai_min_depth"`
	AiMaxDepth           int     `json:"ai_max_depth"`
	AiTimeBudgetMs       int     `json:"ai_time_budget_ms"`
	AiMinimaxTimeShare   float64 `json:"ai_minimax_time_share"`
	AiForcedWinThreshold float64 `json:"ai_forced_win_threshold"`
	AiRandomSeed         int64   `json:"ai_random_seed"`
	AiQuickWinExit       bool    `json:"ai_quick_win_exit"`
	AiEnableKillerMoves  bool    `json:"ai_enable_killer_moves"`
	AiEnableHistoryMoves bool    `json:"ai_enable_history_moves"`
	AiHistoryMax         int     `json:"ai_history_max"`
	AiEnableNullMove     bool    `json:"ai_enable_null_move"`
	AiNullMoveReduction  int     `json:"ai_null_move_reduction"`
	AiNullMoveMinDepth   int     `json:"ai_null_move_min_depth"`
	AiEnableAspiration   bool    `json:"ai_enable_aspiration"`
	AiAspWindow          float64 `json:"ai_asp_window"`
	AiTtSize             int     `json:"ai_tt_size"`
	AiTtBuckets          int     `json:"ai_tt_buckets"`
	AiLogSearchStats     bool    `json:"ai_log_search_stats"`

	MctsExploration     float64 `json:"mcts_exploration"`
	MctsExpandThresh    int     `json:"mcts_expand_threshold"`
	MctsMaxSimulations  int     `json:"mcts_max_simulations"`
	MctsMaxPlayoutPlies int     `json:"mcts_max_playout_plies"`
	MctsPlayoutTemp     float64 `json:"mcts_playout_temp"`

	AiQueueEnabled       bool `json:"ai_queue_enabled"`
	AiQueueTargetDepth   int  `json:"ai_queue_target_depth"`
	AiQueueLimit         int  `json:"ai_queue_limit"`
	AiAnalyticsTopBoards int  `json:"ai_analytics_top_boards"`

	HintsEnabled bool `json:"hints_enabled"`
	HintDepth    int  `json:"hint_depth"`
	HintBudgetMs int  `json:"hint_budget_ms"`

	Heuristics HeuristicConfig `json:"heuristics"`
}

// HeuristicConfig weights the static evaluator. A window is any four
// aligned cells; a window holding discs of both colors scores zero.
type HeuristicConfig struct {
	WindowFour   float64 `json:"window_four"`
	WindowThree  float64 `json:"window_three"`
	WindowTwo    float64 `json:"window_two"`
	CenterWeight float64 `json:"center_weight"`
}

func DefaultConfig() Config {
	return Config{
		AiMode:               AiModeBlend,
		AiDepth:              10,
		AiMinDepth:           1,
		AiMaxDepth:           12,
		AiTimeBudgetMs:       500,
		AiMinimaxTimeShare:   0.5,
		AiForcedWinThreshold: winScore / 2,
		AiRandomSeed:         1,
		AiQuickWinExit:       true,
		AiEnableKillerMoves:  true,
		AiEnableHistoryMoves: true,
		AiHistoryMax:         10000,
		AiEnableNullMove:     true,
		AiNullMoveReduction:  3,
		AiNullMoveMinDepth:   5,
		AiEnableAspiration:   true,
		AiAspWindow:          50.0,
		AiTtSize:             1 << 20,
		AiTtBuckets:          4,
		AiLogSearchStats:     true,

		MctsExploration:     1.41421356,
		MctsExpandThresh:    0,
		MctsMaxSimulations:  0,
		MctsMaxPlayoutPlies: BoardCells,
		MctsPlayoutTemp:     1.0,

		AiQueueEnabled:       true,
		AiQueueTargetDepth:   14,
		AiQueueLimit:         64,
		AiAnalyticsTopBoards: 10,

		HintsEnabled: true,
		HintDepth:    8,
		HintBudgetMs: 200,

		Heuristics: HeuristicConfig{
			WindowFour:   100.0,
			WindowThree:  5.0,
			WindowTwo:    2.0,
			CenterWeight: 3.0,
		},
	}
}

const (
	AiModeMinimax = "minimax"
	AiModeMcts    = "mcts"
	AiModeBlend   = "blend"
)

type ConfigStore struct {
	mu     sync.RWMutex
	config Config
}

func NewConfigStore(config Config) *ConfigStore {
	return &ConfigStore{config: config}
}

func (s *ConfigStore) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func (s *ConfigStore) Update(config Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = config
}

var configStore = NewConfigStore(DefaultConfig())

func GetConfig() Config {
	return configStore.Get()
}
