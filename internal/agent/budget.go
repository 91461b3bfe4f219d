package agent

// DefaultMaxToolCalls is the per-turn ceiling on executed tool calls.
const DefaultMaxToolCalls = 20

// TurnBudget bounds how many tool calls a single turn may execute, so
// a model stuck requesting tools cannot loop forever.
type TurnBudget struct {
	limit int
	used  int
}

// NewTurnBudget creates a budget with the given ceiling. Zero or
// negative limits fall back to the default.
func NewTurnBudget(limit int) *TurnBudget {
	if limit <= 0 {
		limit = DefaultMaxToolCalls
	}
	return &TurnBudget{limit: limit}
}

// Spend records n executed tool calls.
func (b *TurnBudget) Spend(n int) {
	b.used += n
}

// Used returns the number of tool calls spent so far.
func (b *TurnBudget) Used() int {
	return b.used
}

// Exhausted reports whether the ceiling has been reached.
func (b *TurnBudget) Exhausted() bool {
	return b.used >= b.limit
}
