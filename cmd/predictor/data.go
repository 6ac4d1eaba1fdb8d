package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/purchaseml/purchase-predictor/pkg/data"
)

func newDataCmd() *cobra.Command {
	var (
		samples int
		seed    int64
		out     string
	)

	cmd := &cobra.Command{
		Use:   "data",
		Short: "Generate the synthetic purchase dataset",
		Long: `Generate synthetic labeled purchase records and write them as CSV.
The label follows a noisy propensity model over price, rating, and
purchase history, so a classifier has a real signal to learn.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("samples") {
				samples = cfg.Training.Samples
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Training.Seed
			}
			if !cmd.Flags().Changed("out") {
				out = cfg.Training.DataPath
			}
			return runData(samples, seed, out)
		},
	}

	cmd.Flags().IntVar(&samples, "samples", 0, "Number of records to generate (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default from config)")
	cmd.Flags().StringVar(&out, "out", "", "Output CSV path (default from config)")

	return cmd
}

func runData(samples int, seed int64, out string) error {
	if samples <= 0 {
		return fmt.Errorf("samples must be positive, got %d", samples)
	}

	records := data.Generate(samples, seed)
	if err := data.WriteCSV(out, records); err != nil {
		return err
	}

	positives := 0
	for _, r := range records {
		positives += r.Label
	}

	fmt.Fprintf(os.Stdout, "Wrote %d records to %s\n", len(records), out)
	fmt.Fprintf(os.Stdout, "  Purchase rate: %.1f%%\n", 100*float64(positives)/float64(len(records)))
	fmt.Fprintf(os.Stdout, "  Categories:    %d\n", len(data.Categories))
	return nil
}
