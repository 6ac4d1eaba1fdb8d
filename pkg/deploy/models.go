package deploy

import (
	"time"
)

// AttemptStatus is the terminal status of one deployment attempt.
type AttemptStatus string

const (
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptFailed    AttemptStatus = "failed"
)

// AttemptRecord is the outcome of a single deployment attempt. It is
// created when the attempt starts and finalized exactly once when the
// attempt reaches a terminal state; afterwards it is never mutated.
type AttemptRecord struct {
	Index      int           `json:"index"`
	Names      Names         `json:"names"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Status     AttemptStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
}

// Duration returns the attempt's wall time.
func (r *AttemptRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SessionStatus is the terminal status of an orchestration run.
type SessionStatus string

const (
	SessionSucceeded SessionStatus = "succeeded"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

// Session aggregates one orchestration run: every attempt record, the
// final resource names actually deployed (which may differ from the
// configured base names), and a pointer to the archive entry snapshotted
// before the run.
type Session struct {
	ID         string          `json:"id"`
	Status     SessionStatus   `json:"status"`
	Attempts   []AttemptRecord `json:"attempts"`
	Names      Names           `json:"names"`
	ArchiveRef string          `json:"archive_ref,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Elapsed returns the session's wall time.
func (s *Session) Elapsed() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// LastAttempt returns the most recent attempt record, or nil before the
// first attempt completes.
func (s *Session) LastAttempt() *AttemptRecord {
	if len(s.Attempts) == 0 {
		return nil
	}
	return &s.Attempts[len(s.Attempts)-1]
}
