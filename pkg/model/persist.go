package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TypeLogisticRegression is the only classifier type currently supported.
const TypeLogisticRegression = "logistic_regression"

// Model is the persisted training artifact: classifier parameters plus the
// fitted preprocessor, so scoring applies exactly the training-time
// transform.
type Model struct {
	Type         string        `json:"model_type"`
	Classifier   *Classifier   `json:"classifier"`
	Preprocessor *Preprocessor `json:"preprocessor"`
	Metrics      Metrics       `json:"metrics"`
	TrainedAt    time.Time     `json:"trained_at"`
}

// Save writes the model artifact as JSON, creating parent directories.
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating model dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling model: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("installing %s: %w", path, err)
	}
	return nil
}

// Load reads a model artifact previously written by Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model %s: %w", path, err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing model %s: %w", path, err)
	}
	if m.Classifier == nil || m.Preprocessor == nil {
		return nil, fmt.Errorf("model %s: missing classifier or preprocessor", path)
	}
	return &m, nil
}
