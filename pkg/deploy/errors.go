package deploy

import (
	"errors"
)

// Error taxonomy for an orchestration run. ErrArchivalFailed and the
// naming package's ErrNameTooShort are fatal and abort without consuming
// a retry attempt; attempt-level failures are recoverable up to
// maxAttempts; cleanup failures are logged and never escalated.
var (
	// ErrArchivalFailed wraps an archive I/O error encountered before
	// any remote call was made. The session carries zero attempts.
	ErrArchivalFailed = errors.New("archiving current deployment failed")

	// ErrDeploymentFailed is returned when every attempt failed. The
	// returned Session carries the full attempt history for diagnosis.
	ErrDeploymentFailed = errors.New("deployment failed after exhausting all attempts")

	// ErrCancelled is returned when the caller's context fires
	// mid-session. Distinct from ErrDeploymentFailed.
	ErrCancelled = errors.New("deployment cancelled")

	// ErrPromotionFailed is returned when the remote deployment succeeded
	// but installing its artifacts into the current slot did not. The
	// remote resources are live; only the local record is out of date.
	ErrPromotionFailed = errors.New("promoting deployed artifacts failed")
)
