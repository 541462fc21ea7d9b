package scoring

import (
	"github.com/kilianp07/offload/core/model"
)

// NumFeatures is the length of a feature vector: the budget followed by
// count, average power and availability for each class in model order.
const NumFeatures = 1 + 3*model.NumClasses

// FeatureNames returns the column names expected by scoring artifacts.
func FeatureNames() []string {
	names := make([]string, 0, NumFeatures)
	names = append(names, "P_offload_kw")
	for _, c := range model.Classes {
		n := c.String()
		names = append(names, n+"_count", n+"_avg_w", n+"_avail")
	}
	return names
}

// Features lays out req as the fixed-order feature vector.
func Features(req model.AllocationRequest) []float64 {
	x := make([]float64, NumFeatures)
	x[0] = req.BudgetKW
	for i, d := range req.Devices {
		x[1+3*i] = float64(d.Count)
		x[2+3*i] = d.AvgPowerW
		x[3+3*i] = d.Availability
	}
	return x
}
