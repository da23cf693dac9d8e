package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/cat-engine/backend/internal/cat"
	"github.com/cat-engine/backend/internal/itembank"
	"github.com/cat-engine/backend/internal/simulate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run simulated examinees through adaptive sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		thetas, _ := cmd.Flags().GetFloat64Slice("theta")
		runs, _ := cmd.Flags().GetInt("runs")
		workers, _ := cmd.Flags().GetInt("workers")
		seed, _ := cmd.Flags().GetInt64("seed")
		asJSON, _ := cmd.Flags().GetBool("json")

		if runs <= 0 {
			return fmt.Errorf("--runs must be positive, got %d", runs)
		}

		bank, err := itembank.Open(cmd.Context(), cfg.ItemBank)
		if err != nil {
			return fmt.Errorf("open item bank: %w", err)
		}
		engine, err := cat.NewEngine(bank, cat.WithLogger(log), cat.WithStopOptions(cfg.Stop))
		if err != nil {
			return err
		}

		var all []float64
		for _, th := range thetas {
			for i := 0; i < runs; i++ {
				all = append(all, th)
			}
		}
		log.Info("starting simulation", zap.Int("sessions", len(all)), zap.Int("workers", workers))

		results, err := simulate.RunMany(cmd.Context(), engine, all, workers, seed, cfg.Stop)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		printSummary(results)
		return nil
	},
}

func printSummary(results []simulate.Result) {
	byTheta := map[float64][]simulate.Result{}
	for _, r := range results {
		byTheta[r.TrueTheta] = append(byTheta[r.TrueTheta], r)
	}
	keys := make([]float64, 0, len(byTheta))
	for k := range byTheta {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	fmt.Printf("%8s  %5s  %8s  %8s  %8s\n", "theta", "runs", "items", "bias", "rmse")
	for _, k := range keys {
		s := simulate.Summarize(byTheta[k])
		fmt.Printf("%8.2f  %5d  %8.2f  %8.3f  %8.3f\n", k, s.Runs, s.MeanItems, s.MeanBias, s.RMSE)
	}

	total := simulate.Summarize(results)
	fmt.Printf("\nSessions: %d  mean items: %.2f  rmse: %.3f\n", total.Runs, total.MeanItems, total.RMSE)
	reasons := make([]string, 0, len(total.Reasons))
	for r := range total.Reasons {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Printf("  %-22s %d\n", r, total.Reasons[cat.StopReason(r)])
	}
}

func init() {
	simulateCmd.Flags().Float64Slice("theta", []float64{0}, "True abilities to simulate (comma separated)")
	simulateCmd.Flags().Int("runs", 1, "Sessions per true ability")
	simulateCmd.Flags().Int("workers", 4, "Parallel sessions")
	simulateCmd.Flags().Int64("seed", 1, "Base random seed")
	simulateCmd.Flags().Bool("json", false, "Print full transcripts as JSON")
}
