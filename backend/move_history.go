package main

// HistoryEntry records one applied move along with who played it and
// how the decision was made.
type HistoryEntry struct {
	Move      Move
	Player    PlayerColor
	ElapsedMs float64
	IsAi      bool
	Depth     int
	Source    string
}

// MoveHistory is the ordered log of applied moves for one game.
type MoveHistory []HistoryEntry

func (h *MoveHistory) Push(entry HistoryEntry) {
	*h = append(*h, entry)
}

func (h *MoveHistory) Clear() {
	*h = nil
}

func (h MoveHistory) Size() int {
	return len(h)
}

// All returns a copy so callers can hold the entries across later
// moves.
func (h MoveHistory) All() []HistoryEntry {
	return append([]HistoryEntry(nil), h...)
}

func (h MoveHistory) Last() (HistoryEntry, bool) {
	if len(h) == 0 {
		return HistoryEntry{}, false
	}
	return h[len(h)-1], true
}
