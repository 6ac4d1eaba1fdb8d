// Package registry implements a local model registry: a sqlite-backed
// store of registered model versions, plus the registration_info.yaml
// hand-off file consumed by the deployment pipeline stage.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrModelNotFound is returned when no registration matches the query.
var ErrModelNotFound = errors.New("model not found in registry")

// Store provides database operations for registered models.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store over an existing gorm DB handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open opens (creating if needed) the sqlite registry at path and runs
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("registry: creating dir for %s: %w", path, err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("registry: opening %s: %w", path, err)
	}
	store := NewStore(db)
	if err := store.AutoMigrate(); err != nil {
		return nil, err
	}
	return store, nil
}

// AutoMigrate creates or updates the registered_models table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&RegisteredModel{}); err != nil {
		return fmt.Errorf("registry: migrate: %w", err)
	}
	return nil
}

// Register records a new version of the named model. The version is
// assigned inside a transaction: one greater than the current maximum for
// the name, starting at 1.
func (s *Store) Register(m *RegisteredModel) (*RegisteredModel, error) {
	if m.Name == "" {
		return nil, errors.New("registry: model name is required")
	}
	if m.ArtifactPath == "" {
		return nil, errors.New("registry: artifact path is required")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.RegisteredAt.IsZero() {
		m.RegisteredAt = time.Now()
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var maxVersion int
		row := tx.Model(&RegisteredModel{}).
			Where("name = ?", m.Name).
			Select("COALESCE(MAX(version), 0)").
			Row()
		if err := row.Scan(&maxVersion); err != nil {
			return fmt.Errorf("scanning max version: %w", err)
		}
		m.Version = maxVersion + 1
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("creating registration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("registry: register %s: %w", m.Name, err)
	}
	return m, nil
}

// Get returns a specific registered version.
func (s *Store) Get(name string, version int) (*RegisteredModel, error) {
	var m RegisteredModel
	err := s.db.Where("name = ? AND version = ?", name, version).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s v%d", ErrModelNotFound, name, version)
	}
	if err != nil {
		return nil, fmt.Errorf("registry: get %s v%d: %w", name, version, err)
	}
	return &m, nil
}

// Latest returns the most recently registered version of the named model.
func (s *Store) Latest(name string) (*RegisteredModel, error) {
	var m RegisteredModel
	err := s.db.Where("name = ?", name).Order("version DESC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("registry: latest %s: %w", name, err)
	}
	return &m, nil
}

// List returns all versions of the named model, newest first. An empty
// name lists every registration.
func (s *Store) List(name string) ([]RegisteredModel, error) {
	q := s.db.Order("name ASC, version DESC")
	if name != "" {
		q = q.Where("name = ?", name)
	}
	var models []RegisteredModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("registry: list: %w", err)
	}
	return models, nil
}

// Reference composes the opaque "name:version" model identifier.
func Reference(name string, version int) string {
	return name + ":" + strconv.Itoa(version)
}

// Info is the registration_info.yaml record handed from the register
// stage to the deploy stage.
type Info struct {
	ModelName    string    `yaml:"model_name"`
	ModelVersion int       `yaml:"model_version"`
	ArtifactPath string    `yaml:"artifact_path"`
	ModelType    string    `yaml:"model_type"`
	Accuracy     float64   `yaml:"accuracy"`
	RegisteredAt time.Time `yaml:"registered_at"`
}

// Reference returns the "name:version" identifier for the registration.
func (i *Info) Reference() string {
	return Reference(i.ModelName, i.ModelVersion)
}

// WriteInfo persists the registration hand-off file.
func WriteInfo(path string, info *Info) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("registry: creating dir for %s: %w", path, err)
	}
	data, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("registry: marshaling info: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("registry: writing %s: %w", path, err)
	}
	return nil
}

// ReadInfo loads a registration hand-off file written by WriteInfo.
func ReadInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: reading %s (run the register stage first): %w", path, err)
	}
	var info Info
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("registry: parsing %s: %w", path, err)
	}
	return &info, nil
}
