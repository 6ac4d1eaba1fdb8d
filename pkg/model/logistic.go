package model

import (
	"errors"
	"fmt"
	"math"
)

// TrainConfig controls gradient-descent training.
type TrainConfig struct {
	LearningRate float64 // Default 0.1.
	Epochs       int     // Default 500.
}

// DefaultTrainConfig returns the training defaults.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{LearningRate: 0.1, Epochs: 500}
}

// Classifier is a binary logistic regression model over standardized
// features. Means and Stds capture the training-set standardization so
// scoring applies the identical transform.
type Classifier struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Means   []float64 `json:"means"`
	Stds    []float64 `json:"stds"`
}

// Metrics summarizes held-out evaluation.
type Metrics struct {
	Accuracy       float64 `json:"accuracy"`
	TruePositives  int     `json:"true_positives"`
	TrueNegatives  int     `json:"true_negatives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
}

// Train fits a classifier with full-batch gradient descent.
func Train(features [][]float64, labels []int, cfg TrainConfig) (*Classifier, error) {
	if len(features) == 0 {
		return nil, errors.New("train: empty feature matrix")
	}
	if len(features) != len(labels) {
		return nil, fmt.Errorf("train: %d feature rows but %d labels", len(features), len(labels))
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.1
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = 500
	}

	dim := len(features[0])
	for i, x := range features {
		if len(x) != dim {
			return nil, fmt.Errorf("train: row %d has %d features, want %d", i, len(x), dim)
		}
	}

	c := &Classifier{
		Weights: make([]float64, dim),
		Means:   make([]float64, dim),
		Stds:    make([]float64, dim),
	}
	c.fitScaler(features)

	n := float64(len(features))
	scaled := make([][]float64, len(features))
	for i, x := range features {
		scaled[i] = c.scale(x)
	}

	gradW := make([]float64, dim)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for j := range gradW {
			gradW[j] = 0
		}
		gradB := 0.0
		for i, x := range scaled {
			err := sigmoid(dot(c.Weights, x)+c.Bias) - float64(labels[i])
			for j := range gradW {
				gradW[j] += err * x[j]
			}
			gradB += err
		}
		for j := range c.Weights {
			c.Weights[j] -= cfg.LearningRate * gradW[j] / n
		}
		c.Bias -= cfg.LearningRate * gradB / n
	}
	return c, nil
}

// PredictProba returns the purchase probability for one raw feature
// vector.
func (c *Classifier) PredictProba(x []float64) (float64, error) {
	if len(x) != len(c.Weights) {
		return 0, fmt.Errorf("predict: %d features, want %d", len(x), len(c.Weights))
	}
	return sigmoid(dot(c.Weights, c.scale(x)) + c.Bias), nil
}

// Predict returns the class label under a 0.5 threshold.
func (c *Classifier) Predict(x []float64) (int, error) {
	p, err := c.PredictProba(x)
	if err != nil {
		return 0, err
	}
	if p >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

// Evaluate computes accuracy and confusion counts over a labeled set.
func (c *Classifier) Evaluate(features [][]float64, labels []int) (Metrics, error) {
	var m Metrics
	if len(features) != len(labels) {
		return m, fmt.Errorf("evaluate: %d feature rows but %d labels", len(features), len(labels))
	}
	for i, x := range features {
		pred, err := c.Predict(x)
		if err != nil {
			return m, err
		}
		switch {
		case pred == 1 && labels[i] == 1:
			m.TruePositives++
		case pred == 0 && labels[i] == 0:
			m.TrueNegatives++
		case pred == 1 && labels[i] == 0:
			m.FalsePositives++
		default:
			m.FalseNegatives++
		}
	}
	if total := len(labels); total > 0 {
		m.Accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}
	return m, nil
}

func (c *Classifier) fitScaler(features [][]float64) {
	n := float64(len(features))
	for _, x := range features {
		for j, v := range x {
			c.Means[j] += v
		}
	}
	for j := range c.Means {
		c.Means[j] /= n
	}
	for _, x := range features {
		for j, v := range x {
			d := v - c.Means[j]
			c.Stds[j] += d * d
		}
	}
	for j := range c.Stds {
		c.Stds[j] = math.Sqrt(c.Stds[j] / n)
		if c.Stds[j] == 0 {
			c.Stds[j] = 1
		}
	}
}

func (c *Classifier) scale(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - c.Means[j]) / c.Stds[j]
	}
	return out
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
