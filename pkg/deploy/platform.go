package deploy

import (
	"context"
)

// Names pairs the endpoint and deployment resource names used by one
// attempt. Both are regenerated per attempt so retries never collide with
// the leftovers of a failed attempt.
type Names struct {
	Endpoint   string `json:"endpoint"`
	Deployment string `json:"deployment"`
}

// State is a remote resource's provisioning state as reported by the
// platform.
type State string

const (
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// EnvironmentSpec describes the serving runtime.
type EnvironmentSpec struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// ComputeSpec describes instance sizing for the deployment.
type ComputeSpec struct {
	InstanceType  string `json:"instance_type"`
	InstanceCount int    `json:"instance_count"`
}

// RequestSettings mirror the platform's per-deployment request limits.
type RequestSettings struct {
	TimeoutMS      int `json:"request_timeout_ms"`
	MaxConcurrent  int `json:"max_concurrent_requests_per_instance"`
	MaxQueueWaitMS int `json:"max_queue_wait_ms"`
}

// ResourceSpec is the full specification submitted to the platform's
// create-or-update operation.
type ResourceSpec struct {
	Names          Names             `json:"names"`
	ModelReference string            `json:"model_reference"`
	CodeDir        string            `json:"code_dir"`
	ScoringModule  string            `json:"scoring_module"`
	Environment    EnvironmentSpec   `json:"environment"`
	Compute        ComputeSpec       `json:"compute"`
	Request        RequestSettings   `json:"request,omitempty"`
	Tags           map[string]string `json:"tags,omitempty"`
}

// PlatformClient is the remote serving platform's resource API. The
// orchestrator treats it as fallible; Delete must be idempotent (deleting
// a resource that does not exist is not an error).
type PlatformClient interface {
	// CreateOrUpdate submits the resource specification and returns an
	// opaque handle for polling.
	CreateOrUpdate(ctx context.Context, spec ResourceSpec) (handle string, err error)

	// GetState reports the provisioning state for a handle, plus the
	// platform's diagnostic payload when the state is failed.
	GetState(ctx context.Context, handle string) (State, string, error)

	// Delete removes the named resources, if they exist.
	Delete(ctx context.Context, names Names) error
}
