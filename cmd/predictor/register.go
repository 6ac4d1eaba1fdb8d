package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/purchaseml/purchase-predictor/pkg/model"
	"github.com/purchaseml/purchase-predictor/pkg/registry"
)

// defaultInfoPath is the registration hand-off file consumed by deploy.
const defaultInfoPath = "registration_info.yaml"

func newRegisterCmd() *cobra.Command {
	var (
		name        string
		modelPath   string
		infoPath    string
		description string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register the trained model in the model registry",
		Long: `Register a trained model artifact as a new version in the registry.
Versions are assigned automatically, one greater than the latest for the
name. The registration record is also written to a hand-off file that the
deploy stage reads.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("model") {
				modelPath = cfg.Training.ModelPath
			}
			return runRegister(cfg.Registry.Path, name, modelPath, infoPath, description)
		},
	}

	cmd.Flags().StringVar(&name, "name", "purchase-predictor", "Registered model name")
	cmd.Flags().StringVar(&modelPath, "model", "", "Model artifact path (default from config)")
	cmd.Flags().StringVar(&infoPath, "info", defaultInfoPath, "Registration hand-off file to write")
	cmd.Flags().StringVar(&description, "description", "", "Model description")

	return cmd
}

func runRegister(registryPath, name, modelPath, infoPath, description string) error {
	m, err := model.Load(modelPath)
	if err != nil {
		return err
	}

	store, err := registry.Open(registryPath)
	if err != nil {
		return err
	}

	registered, err := store.Register(&registry.RegisteredModel{
		Name:         name,
		ArtifactPath: modelPath,
		ModelType:    m.Type,
		Accuracy:     m.Metrics.Accuracy,
		Description:  description,
	})
	if err != nil {
		return err
	}

	info := &registry.Info{
		ModelName:    registered.Name,
		ModelVersion: registered.Version,
		ArtifactPath: registered.ArtifactPath,
		ModelType:    registered.ModelType,
		Accuracy:     registered.Accuracy,
		RegisteredAt: registered.RegisteredAt,
	}
	if err := registry.WriteInfo(infoPath, info); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Registered %s\n", registered.Reference())
	fmt.Fprintf(os.Stdout, "  Accuracy: %.3f\n", registered.Accuracy)
	fmt.Fprintf(os.Stdout, "  Artifact: %s\n", registered.ArtifactPath)
	fmt.Fprintf(os.Stdout, "  Hand-off: %s\n", infoPath)
	return nil
}
