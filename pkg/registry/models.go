package registry

import (
	"time"
)

// RegisteredModel is the GORM model for one registered model version.
// Versions are assigned by the store, monotonically increasing per model
// name.
type RegisteredModel struct {
	ID           string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Name         string    `gorm:"column:name;uniqueIndex:idx_model_name_version,priority:1;not null"`
	Version      int       `gorm:"column:version;uniqueIndex:idx_model_name_version,priority:2;not null"`
	ArtifactPath string    `gorm:"column:artifact_path;not null"`
	ModelType    string    `gorm:"column:model_type"`
	Accuracy     float64   `gorm:"column:accuracy"`
	Description  string    `gorm:"column:description"`
	RegisteredAt time.Time `gorm:"column:registered_at;not null"`
}

// TableName returns the GORM table name.
func (RegisteredModel) TableName() string { return "registered_models" }

// Reference returns the opaque "name:version" identifier embedded into
// deployment resource specifications.
func (m *RegisteredModel) Reference() string {
	return Reference(m.Name, m.Version)
}
