package events

// StrategyEvent is emitted when an allocator changes course. Action is
// "lp_failure" or "waterfill_fallback".
type StrategyEvent struct {
	Strategy string
	Action   string
	Err      error
}
