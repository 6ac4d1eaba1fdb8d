package archive

import (
	"time"
)

// Artifact is a single file in a deployment artifact set. Name is the file
// name inside the current slot; SourcePath is where the file was copied
// from, recorded in metadata so every artifact set keeps an immutable
// source reference.
type Artifact struct {
	Name       string
	SourcePath string
}

// ArtifactSet is the bundle of files needed to serve a model version:
// scoring module, preprocessing module, and any auxiliary metadata files.
type ArtifactSet struct {
	Files []Artifact
}

// DeploymentInfo is the metadata record persisted as deployment_info.json
// in the current slot, and (with an archival reason) as archive_info.json
// inside each archive entry.
type DeploymentInfo struct {
	DeployedAt      time.Time         `json:"deployed_at"`
	DeploymentFiles []string          `json:"deployment_files"`
	SourceInfo      map[string]string `json:"source_info"`
	DeploymentType  string            `json:"deployment_type"`
	ArchiveLocation string            `json:"archive_location,omitempty"`

	// Names of the remote resources serving this artifact set. Empty for
	// local deployments that never created remote resources.
	EndpointName   string `json:"endpoint_name,omitempty"`
	DeploymentName string `json:"deployment_name,omitempty"`

	// Populated on archive entries only.
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// Entry is a named, timestamped snapshot of a previously deployed artifact
// set. Entries are write-once: the store never mutates or overwrites one.
type Entry struct {
	// Name is the archive directory name, e.g. "2025-10-06_14-30-15"
	// (plus a "-2", "-3" disambiguator on timestamp collision).
	Name string

	// Path is the absolute directory of the snapshot.
	Path string

	// CreatedAt is the snapshot creation time parsed from Name.
	CreatedAt time.Time

	// Info is the archive_info.json record, if readable.
	Info *DeploymentInfo
}
