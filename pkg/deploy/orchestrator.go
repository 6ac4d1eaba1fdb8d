// Package deploy implements the deployment orchestration core: bounded
// retry attempts against a serving platform, cleanup between failures,
// and promotion of the served artifact set through the archive store.
package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/purchaseml/purchase-predictor/pkg/archive"
	"github.com/purchaseml/purchase-predictor/pkg/naming"
)

// OrchestratorState tracks the orchestrator's position in its run.
type OrchestratorState string

const (
	StateIdle       OrchestratorState = "idle"
	StateArchiving  OrchestratorState = "archiving"
	StateNaming     OrchestratorState = "naming"
	StateAttempting OrchestratorState = "attempting"
	StateRetrying   OrchestratorState = "retrying"
	StateDone       OrchestratorState = "done"
)

const (
	// DefaultMaxAttempts bounds the retry loop.
	DefaultMaxAttempts = 3

	// DefaultAttemptTimeout bounds one create-and-poll cycle. Managed
	// endpoint provisioning routinely takes many minutes.
	DefaultAttemptTimeout = 20 * time.Minute

	// DefaultRetryDelay is the fixed wait between attempts; the platform
	// needs time to release a failed endpoint before a retry.
	DefaultRetryDelay = 5 * time.Minute
)

// Request configures one orchestration run.
type Request struct {
	// EndpointBase and DeploymentBase seed name generation; the actual
	// resource names are unique per attempt.
	EndpointBase   string
	DeploymentBase string

	// Spec is the resource template; Names is filled per attempt.
	Spec ResourceSpec

	// Artifacts is promoted into the archive store's current slot on
	// success.
	Artifacts archive.ArtifactSet

	// DeploymentType tags the persisted deployment record, e.g.
	// "managed_endpoint", "container_instance", "local".
	DeploymentType string

	MaxAttempts    int           // Default DefaultMaxAttempts.
	AttemptTimeout time.Duration // Default DefaultAttemptTimeout.
}

// Orchestrator drives the deployment state machine:
//
//	Idle → Archiving → Naming → Attempting → (Succeeded | Retrying → Attempting | Exhausted)
//
// One run is a single logical flow; concurrent runs against the same
// archive root are the caller's responsibility to prevent.
type Orchestrator struct {
	store   *archive.Store
	client  PlatformClient
	attempt *Attempt
	namer   *naming.Generator
	backoff BackoffPolicy
	logger  *slog.Logger

	state OrchestratorState
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithBackoff replaces the default fixed-delay policy.
func WithBackoff(policy BackoffPolicy) OrchestratorOption {
	return func(o *Orchestrator) { o.backoff = policy }
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithNameGenerator replaces the default name generator.
func WithNameGenerator(g *naming.Generator) OrchestratorOption {
	return func(o *Orchestrator) { o.namer = g }
}

// WithAttemptOptions forwards options to the inner attempt runner.
func WithAttemptOptions(opts ...AttemptOption) OrchestratorOption {
	return func(o *Orchestrator) {
		o.attempt = NewAttempt(o.client, opts...)
	}
}

// NewOrchestrator creates an orchestrator over the given archive store
// and platform client.
func NewOrchestrator(store *archive.Store, client PlatformClient, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		client:  client,
		namer:   naming.New(),
		backoff: FixedBackoff{Interval: DefaultRetryDelay},
		logger:  slog.Default(),
		state:   StateIdle,
	}
	o.attempt = NewAttempt(client, WithAttemptLogger(o.logger))
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the orchestrator's current state.
func (o *Orchestrator) State() OrchestratorState { return o.state }

// Deploy runs the full orchestration. On success the returned session is
// terminal with status succeeded and the new artifacts are promoted to
// the current slot. On failure the session carries every attempt record
// and the error is one of ErrArchivalFailed, ErrDeploymentFailed,
// ErrCancelled, ErrPromotionFailed, or naming.ErrNameTooShort.
func (o *Orchestrator) Deploy(ctx context.Context, req Request) (*Session, error) {
	if req.MaxAttempts <= 0 {
		req.MaxAttempts = DefaultMaxAttempts
	}
	if req.AttemptTimeout <= 0 {
		req.AttemptTimeout = DefaultAttemptTimeout
	}

	session := &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	o.logger.Info("starting deployment session",
		"session", session.ID,
		"endpointBase", req.EndpointBase,
		"maxAttempts", req.MaxAttempts)

	// Archive before anything touches the platform: the snapshot must
	// never reflect a partially-deployed state, and a failed archive
	// blocks the whole session.
	o.state = StateArchiving
	entry, err := o.store.ArchiveCurrent(fmt.Sprintf("pre-deployment session %s", session.ID))
	if err != nil {
		o.finish(session, SessionFailed)
		return session, fmt.Errorf("%w: %v", ErrArchivalFailed, err)
	}
	if entry != nil {
		session.ArchiveRef = entry.Name
	}

	for index := 0; index < req.MaxAttempts; index++ {
		if err := ctx.Err(); err != nil {
			return o.cancel(ctx, session)
		}

		o.state = StateNaming
		names, err := o.generateNames(req, index)
		if err != nil {
			// A base name that cannot fit the platform ceiling is a
			// configuration problem; it does not consume an attempt.
			o.finish(session, SessionFailed)
			return session, err
		}

		o.state = StateAttempting
		record := o.attempt.Run(ctx, index, req.Spec, names, req.AttemptTimeout)
		session.Attempts = append(session.Attempts, record)

		if record.Status == AttemptSucceeded {
			return o.succeed(session, req, names, entry)
		}
		if ctx.Err() != nil {
			return o.cancel(ctx, session)
		}

		if index+1 == req.MaxAttempts {
			break
		}

		o.state = StateRetrying
		o.cleanup(ctx, names)

		delay := o.backoff.Delay(index)
		o.logger.Info("waiting before retry",
			"session", session.ID,
			"attempt", index,
			"delay", delay.String())
		select {
		case <-ctx.Done():
			return o.cancel(ctx, session)
		case <-time.After(delay):
		}
	}

	o.finish(session, SessionFailed)
	last := session.LastAttempt()
	return session, fmt.Errorf("%w after %d attempts: %s", ErrDeploymentFailed, len(session.Attempts), last.Error)
}

func (o *Orchestrator) generateNames(req Request, index int) (Names, error) {
	endpoint, err := o.namer.Generate(req.EndpointBase, naming.KindEndpoint, index)
	if err != nil {
		return Names{}, fmt.Errorf("generating endpoint name: %w", err)
	}
	deployment, err := o.namer.Generate(req.DeploymentBase, naming.KindDeployment, index)
	if err != nil {
		return Names{}, fmt.Errorf("generating deployment name: %w", err)
	}
	return Names{Endpoint: endpoint, Deployment: deployment}, nil
}

func (o *Orchestrator) succeed(session *Session, req Request, names Names, entry *archive.Entry) (*Session, error) {
	info := archive.DeploymentInfo{
		DeploymentType: req.DeploymentType,
		EndpointName:   names.Endpoint,
		DeploymentName: names.Deployment,
	}
	if entry != nil {
		info.ArchiveLocation = entry.Path
	}
	if err := o.store.Promote(req.Artifacts, info); err != nil {
		// The remote deployment is live but the local record is not;
		// surface this loudly rather than pretending the session failed
		// remotely.
		o.finish(session, SessionFailed)
		return session, fmt.Errorf("%w: %v", ErrPromotionFailed, err)
	}

	session.Names = names
	o.finish(session, SessionSucceeded)
	o.logger.Info("deployment session succeeded",
		"session", session.ID,
		"endpoint", names.Endpoint,
		"deployment", names.Deployment,
		"attempts", len(session.Attempts),
		"elapsed", session.Elapsed().String())
	return session, nil
}

func (o *Orchestrator) cancel(ctx context.Context, session *Session) (*Session, error) {
	if last := session.LastAttempt(); last != nil {
		// The platform may have half-created resources for the last
		// attempt; try to remove them without blocking cancellation on
		// the caller's dead context.
		cleanupCtx, done := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer done()
		o.cleanup(cleanupCtx, last.Names)
	}
	o.finish(session, SessionCancelled)
	o.logger.Warn("deployment session cancelled",
		"session", session.ID,
		"attempts", len(session.Attempts))
	return session, fmt.Errorf("%w: %v", ErrCancelled, context.Cause(ctx))
}

// cleanup deletes a failed attempt's remote resources. Best effort: the
// resource may already be gone, and the next attempt uses fresh names
// either way.
func (o *Orchestrator) cleanup(ctx context.Context, names Names) {
	if err := o.client.Delete(ctx, names); err != nil {
		o.logger.Warn("cleanup of failed deployment resources did not succeed",
			"endpoint", names.Endpoint,
			"deployment", names.Deployment,
			"error", err)
	}
}

func (o *Orchestrator) finish(session *Session, status SessionStatus) {
	session.Status = status
	session.FinishedAt = time.Now()
	o.state = StateDone
}
