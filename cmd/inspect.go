package cmd

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kilianp07/offload/core/scoring"
	"github.com/kilianp07/offload/pkg/export"
)

var inspectExport string

var inspectCmd = &cobra.Command{
	Use:   "inspect <artifact.json>",
	Short: "Validate a scoring artifact and print its summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(args[0], inspectExport, cmd.OutOrStdout())
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectExport, "export", "", "write the decoded artifact as JSON to this file")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(path, exportPath string, w io.Writer) error {
	a, err := scoring.ReadArtifact(path)
	if err != nil {
		return err
	}
	status := "ok"
	if err := a.Validate(); err != nil {
		status = err.Error()
	}
	fmt.Fprintf(w, "model_type: %s\n", a.ModelType)
	fmt.Fprintf(w, "features:   %d\n", len(a.FeatureNames))
	fmt.Fprintf(w, "outputs:    %d\n", len(a.Intercepts))
	fmt.Fprintf(w, "valid:      %s\n", status)
	for i, row := range a.Coefficients {
		if j := largestAbs(row); j >= 0 && j < len(a.FeatureNames) {
			fmt.Fprintf(w, "output %d: intercept %.4f, strongest %s (%.4f)\n", i, at(a.Intercepts, i), a.FeatureNames[j], row[j])
		}
	}
	if len(a.FeatureImportances) == len(a.FeatureNames) {
		order := make([]int, len(a.FeatureImportances))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(x, y int) bool {
			return a.FeatureImportances[order[x]] > a.FeatureImportances[order[y]]
		})
		fmt.Fprintln(w, "feature importances:")
		for _, i := range order {
			fmt.Fprintf(w, "  %-22s %.4f\n", a.FeatureNames[i], a.FeatureImportances[i])
		}
	}
	keys := make([]string, 0, len(a.Metrics))
	for k := range a.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "metric %s: %.4f\n", k, a.Metrics[k])
	}
	if exportPath == "" {
		return nil
	}
	f, err := os.Create(exportPath)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := export.WriteJSON(f, a); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func largestAbs(row []float64) int {
	best := -1
	for i, v := range row {
		if best < 0 || math.Abs(v) > math.Abs(row[best]) {
			best = i
		}
	}
	return best
}

func at(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}
