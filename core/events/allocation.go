package events

import "time"

// AllocationEvent is published after every allocation.
type AllocationEvent struct {
	// Source is "row" or "population".
	Source       string
	Strategy     string
	BudgetKW     float64
	AllocTotalKW float64
	UnmetKW      float64
	Duration     time.Duration
}

// PopulationEvent is published after a population lookup.
type PopulationEvent struct {
	Dataset    string
	Year       int
	Population float64
	Cached     bool
	Err        error
}
