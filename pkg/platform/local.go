package platform

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/purchaseml/purchase-predictor/pkg/deploy"
	"github.com/purchaseml/purchase-predictor/pkg/model"
)

// LocalBackend implements deploy.PlatformClient without a remote platform.
// CreateOrUpdate validates that the referenced model artifact actually
// loads; the operation is terminal as soon as it is polled. It lets the
// full orchestration path (naming, retries, archival, promotion) run
// against the local serving mode.
type LocalBackend struct {
	mu         sync.Mutex
	operations map[string]error // operation id -> load result
}

// NewLocalBackend creates an empty local backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{operations: map[string]error{}}
}

// ModelFileName is the model artifact inside a deployment's code dir.
const ModelFileName = "model.json"

// CreateOrUpdate loads the model artifact under spec.CodeDir to prove the
// deployment would serve, and records the outcome under a fresh operation
// id.
func (b *LocalBackend) CreateOrUpdate(_ context.Context, spec deploy.ResourceSpec) (string, error) {
	if spec.CodeDir == "" {
		return "", fmt.Errorf("local deployment requires a model artifact path")
	}
	_, loadErr := model.Load(filepath.Join(spec.CodeDir, ModelFileName))

	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	b.operations[id] = loadErr
	return id, nil
}

// GetState reports the recorded outcome for an operation id.
func (b *LocalBackend) GetState(_ context.Context, handle string) (deploy.State, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	loadErr, ok := b.operations[handle]
	if !ok {
		return "", "", fmt.Errorf("unknown operation %q", handle)
	}
	if loadErr != nil {
		return deploy.StateFailed, fmt.Sprintf("loading model artifact: %v", loadErr), nil
	}
	return deploy.StateSucceeded, "", nil
}

// Delete is a no-op; local deployments hold no remote resources.
func (b *LocalBackend) Delete(context.Context, deploy.Names) error {
	return nil
}
