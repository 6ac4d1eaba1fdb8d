package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/purchaseml/purchase-predictor/pkg/data"
	"github.com/purchaseml/purchase-predictor/pkg/model"
)

func newTrainCmd() *cobra.Command {
	var (
		dataPath  string
		modelPath string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train and evaluate the purchase classifier",
		Long: `Train a logistic regression classifier on the generated dataset.
The data is split into stratified train and test sets; the fitted
preprocessor, classifier parameters, and test metrics are saved together
as one model artifact.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("data") {
				dataPath = cfg.Training.DataPath
			}
			if !cmd.Flags().Changed("model") {
				modelPath = cfg.Training.ModelPath
			}
			return runTrain(cfg.Training.TestFraction, cfg.Training.Seed,
				model.TrainConfig{LearningRate: cfg.Training.LearningRate, Epochs: cfg.Training.Epochs},
				dataPath, modelPath)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Training data CSV path (default from config)")
	cmd.Flags().StringVar(&modelPath, "model", "", "Output model artifact path (default from config)")

	return cmd
}

func runTrain(testFraction float64, seed int64, trainCfg model.TrainConfig, dataPath, modelPath string) error {
	records, err := data.ReadCSV(dataPath)
	if err != nil {
		return err
	}

	trainSet, testSet := data.Split(records, testFraction, seed)
	if len(trainSet) == 0 || len(testSet) == 0 {
		return fmt.Errorf("dataset %s too small to split (%d records)", dataPath, len(records))
	}

	pre := model.NewPreprocessor()
	pre.Fit(trainSet)

	trainX, trainY, err := pre.TransformAll(trainSet)
	if err != nil {
		return err
	}
	testX, testY, err := pre.TransformAll(testSet)
	if err != nil {
		return err
	}

	clf, err := model.Train(trainX, trainY, trainCfg)
	if err != nil {
		return err
	}

	metrics, err := clf.Evaluate(testX, testY)
	if err != nil {
		return err
	}

	m := &model.Model{
		Type:         model.TypeLogisticRegression,
		Classifier:   clf,
		Preprocessor: pre,
		Metrics:      metrics,
		TrainedAt:    time.Now(),
	}
	if err := m.Save(modelPath); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Trained on %d records, evaluated on %d\n", len(trainSet), len(testSet))
	fmt.Fprintf(os.Stdout, "  Accuracy: %.3f\n", metrics.Accuracy)
	fmt.Fprintf(os.Stdout, "  TP/TN/FP/FN: %d/%d/%d/%d\n",
		metrics.TruePositives, metrics.TrueNegatives, metrics.FalsePositives, metrics.FalseNegatives)
	fmt.Fprintf(os.Stdout, "  Model saved to %s\n", modelPath)
	return nil
}
