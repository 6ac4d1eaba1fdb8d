package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/purchaseml/purchase-predictor/pkg/archive"
	"github.com/purchaseml/purchase-predictor/pkg/model"
	"github.com/purchaseml/purchase-predictor/pkg/platform"
	"github.com/purchaseml/purchase-predictor/pkg/registry"
	"github.com/purchaseml/purchase-predictor/pkg/serving"
)

func newServeCmd() *cobra.Command {
	var (
		addr      string
		modelPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions locally over HTTP",
		Long: `Serve predictions from a model artifact over HTTP. By default the
model is read from the current deployment directory, falling back to the
configured training output when nothing has been deployed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Serving.Addr
			}
			if !cmd.Flags().Changed("model") {
				modelPath, err = resolveServedModel(cfg.Server.Dir, cfg.Training.ModelPath)
				if err != nil {
					return err
				}
			}
			return runServe(addr, modelPath)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&modelPath, "model", "", "Model artifact path (default: current deployment)")

	return cmd
}

// resolveServedModel prefers the currently deployed model artifact over
// the training output.
func resolveServedModel(serverDir, trainingModelPath string) (string, error) {
	store, err := archive.NewStore(serverDir)
	if err != nil {
		return "", err
	}
	info, err := store.Current()
	if err != nil {
		return "", err
	}
	if info != nil {
		deployed := filepath.Join(serverDir, platform.ModelFileName)
		if _, err := os.Stat(deployed); err == nil {
			return deployed, nil
		}
	}
	return trainingModelPath, nil
}

func runServe(addr, modelPath string) error {
	m, err := model.Load(modelPath)
	if err != nil {
		return err
	}

	version := "unregistered"
	if info, err := registry.ReadInfo(defaultInfoPath); err == nil {
		version = info.Reference()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := serving.NewServer(m, serving.WithModelVersion(version))
	return server.Serve(ctx, addr)
}
