// Package main provides the predictor CLI: dataset generation, model
// training and registration, deployment orchestration, local serving, and
// deployment directory management.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/purchaseml/purchase-predictor/pkg/config"
)

var (
	version = "dev"

	// Global flags
	configFile string
	envFile    string
	verbose    bool
)

func loadConfig() (*config.Config, error) {
	return config.Load(configFile, envFile)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "predictor",
		Short: "Purchase predictor training and deployment pipeline",
		Long: `predictor runs the purchase prediction pipeline end to end:

generate synthetic purchase data, train and evaluate the classifier,
register model versions, deploy to a serving platform with bounded
retries, serve predictions locally, and manage the deployment directory
and its archives.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Environment file loaded before config parsing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newDataCmd())
	rootCmd.AddCommand(newTrainCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newDeployCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newServerCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the predictor version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stdout, "predictor %s\n", version)
		},
	}
}
