package offload

import (
	"fmt"
	"math"

	"github.com/kilianp07/offload/core/model"
)

// metTolerance is the unmet budget still reported as fully met.
const metTolerance = 1e-6

// Summarize renders one line per class in display order and a total line.
func Summarize(res model.AllocationResult) (lines []string, total string) {
	lines = make([]string, 0, model.NumClasses)
	for _, c := range model.DisplayOrder {
		a, capKW := res.AllocKW[c], res.CapacitiesKW[c]
		pct := 0.0
		if capKW > 0 {
			pct = math.Min(100, a/capKW*100)
		}
		lines = append(lines, fmt.Sprintf("%s: %.1f kW (%.1f%% of capacity used)", c.Label(), a, pct))
	}
	if res.UnmetKW <= metTolerance {
		total = fmt.Sprintf("Total: %.1f kW ✓", res.AllocTotalKW)
	} else {
		total = fmt.Sprintf("Total: %.1f kW (unmet: %.1f kW)", res.AllocTotalKW, res.UnmetKW)
	}
	return lines, total
}

// Summary is Summarize on the unrounded result.
func (r RowResult) Summary() ([]string, string) { return Summarize(r.Result) }
