package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/offload/api/allocate"
	"github.com/kilianp07/offload/config"
	"github.com/kilianp07/offload/core/allocation"
	"github.com/kilianp07/offload/core/model"
	"github.com/kilianp07/offload/core/offload"
	"github.com/kilianp07/offload/core/scoring"
	"github.com/kilianp07/offload/infra/logger"
	"github.com/kilianp07/offload/pkg/export"
)

type allocateOptions struct {
	population float64
	signals    float64
	budget     float64
	unit       string
	seed       uint64
	seeded     bool
	rowFile    string
	format     string
}

var allocOpts allocateOptions

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Run a single allocation and print the result",
	Example: `  offload allocate --population 12000 --signals 40 --budget 500 --seed 7
  offload allocate --row row.json --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		allocOpts.seeded = cmd.Flags().Changed("seed")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return runAllocate(cmd.Context(), cfg, allocOpts, cmd.OutOrStdout())
	},
}

func init() {
	f := allocateCmd.Flags()
	f.Float64Var(&allocOpts.population, "population", 0, "population of the area")
	f.Float64Var(&allocOpts.signals, "signals", 0, "traffic light count")
	f.Float64Var(&allocOpts.budget, "budget", 0, "power to offload")
	f.StringVar(&allocOpts.unit, "unit", string(model.UnitKW), "budget unit (kw or w)")
	f.Uint64Var(&allocOpts.seed, "seed", 0, "sampler seed")
	f.StringVar(&allocOpts.rowFile, "row", "", "JSON row file with explicit per class attributes")
	f.StringVar(&allocOpts.format, "format", "text", "output format: text, json, csv or html")
	rootCmd.AddCommand(allocateCmd)
}

func runAllocate(ctx context.Context, cfg *config.Config, o allocateOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	scorer, err := scoring.New(cfg.Scoring)
	if err != nil {
		return fmt.Errorf("scorer: %w", err)
	}
	alloc, err := allocation.New(cfg.Allocation)
	if err != nil {
		return fmt.Errorf("allocator: %w", err)
	}
	opts := []offload.Option{offload.WithLogger(logger.New("allocate"))}
	if cfg.Sampling.Seed != nil {
		opts = append(opts, offload.WithSeed(*cfg.Sampling.Seed))
	}
	svc := offload.NewService(scorer, alloc, opts...)
	defer svc.Close()

	var (
		payload any
		result  model.AllocationResult
	)
	if o.rowFile != "" {
		row, err := readRow(o.rowFile)
		if err != nil {
			return err
		}
		res, err := svc.AllocateRow(ctx, row)
		if err != nil {
			return err
		}
		payload, result = res, res.Result
	} else {
		if err := offload.ValidateBudget(o.budget); err != nil {
			return err
		}
		in := offload.PopulationInput{
			Population:  o.population,
			SignalCount: o.signals,
			Budget:      o.budget,
			Unit:        model.BudgetUnit(o.unit),
		}
		if o.seeded {
			seed := o.seed
			in.Seed = &seed
		}
		res, err := svc.AllocateByPopulation(ctx, in)
		if err != nil {
			return err
		}
		payload, result = res, res.Result
	}
	return render(w, o.format, payload, result)
}

func readRow(path string) (offload.RowInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return offload.RowInput{}, fmt.Errorf("open row: %w", err)
	}
	defer f.Close()
	return allocate.DecodeRow(f)
}

func render(w io.Writer, format string, payload any, res model.AllocationResult) error {
	switch format {
	case "json":
		return export.WriteJSON(w, payload)
	case "csv":
		return export.WriteCSV(w, res)
	case "html":
		return export.ChartHTML(w, res, "")
	case "text", "":
		lines, total := offload.Summarize(res)
		for _, l := range lines {
			if _, err := fmt.Fprintln(w, l); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintln(w, total)
		return err
	default:
		return errors.New("unknown format " + format)
	}
}
