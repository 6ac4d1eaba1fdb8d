package deploy

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const defaultPollInterval = 10 * time.Second

// Attempt runs a single try at creating or updating the remote serving
// resources: submit the specification, then poll until a terminal state
// or the timeout. It performs no cleanup of its own — that is the
// orchestrator's job — so its only side effect is the one create-or-update
// call, which keeps it trivial to test against a mock platform.
type Attempt struct {
	client       PlatformClient
	logger       *slog.Logger
	pollInterval time.Duration
}

// AttemptOption configures an Attempt.
type AttemptOption func(*Attempt)

// WithPollInterval overrides the state polling interval.
func WithPollInterval(d time.Duration) AttemptOption {
	return func(a *Attempt) { a.pollInterval = d }
}

// WithAttemptLogger sets the attempt logger.
func WithAttemptLogger(logger *slog.Logger) AttemptOption {
	return func(a *Attempt) { a.logger = logger }
}

// NewAttempt creates an attempt runner over the given platform client.
func NewAttempt(client PlatformClient, opts ...AttemptOption) *Attempt {
	a := &Attempt{
		client:       client,
		logger:       slog.Default(),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes one bounded attempt and returns its finalized record.
// Exceeding the timeout is reported exactly like a remote failure, with
// "deadline exceeded" as the error detail, so the orchestrator's
// retry/cleanup handling is uniform.
func (a *Attempt) Run(ctx context.Context, index int, spec ResourceSpec, names Names, timeout time.Duration) AttemptRecord {
	record := AttemptRecord{
		Index:     index,
		Names:     names,
		StartedAt: time.Now(),
	}
	spec.Names = names

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a.logger.Info("submitting deployment attempt",
		"attempt", index,
		"endpoint", names.Endpoint,
		"deployment", names.Deployment,
		"model", spec.ModelReference)

	handle, err := a.client.CreateOrUpdate(ctx, spec)
	if err != nil {
		return a.finalize(record, AttemptFailed, attemptErrorDetail(ctx, err))
	}

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		state, diagnostic, err := a.client.GetState(ctx, handle)
		if err != nil {
			return a.finalize(record, AttemptFailed, attemptErrorDetail(ctx, err))
		}
		switch state {
		case StateSucceeded:
			return a.finalize(record, AttemptSucceeded, "")
		case StateFailed:
			if diagnostic == "" {
				diagnostic = "platform reported failure without diagnostic"
			}
			return a.finalize(record, AttemptFailed, diagnostic)
		}

		select {
		case <-ctx.Done():
			return a.finalize(record, AttemptFailed, attemptErrorDetail(ctx, ctx.Err()))
		case <-ticker.C:
		}
	}
}

func (a *Attempt) finalize(record AttemptRecord, status AttemptStatus, detail string) AttemptRecord {
	record.FinishedAt = time.Now()
	record.Status = status
	record.Error = detail

	if status == AttemptSucceeded {
		a.logger.Info("deployment attempt succeeded",
			"attempt", record.Index,
			"endpoint", record.Names.Endpoint,
			"elapsed", record.Duration().String())
	} else {
		a.logger.Warn("deployment attempt failed",
			"attempt", record.Index,
			"endpoint", record.Names.Endpoint,
			"error", detail)
	}
	return record
}

// attemptErrorDetail maps a timed-out attempt to the fixed "deadline
// exceeded" detail; other errors pass through.
func attemptErrorDetail(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "deadline exceeded"
	}
	return err.Error()
}
