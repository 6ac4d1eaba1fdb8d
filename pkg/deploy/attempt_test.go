package deploy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPlatform walks through a fixed sequence of states on successive
// GetState calls.
type scriptedPlatform struct {
	mu     sync.Mutex
	states []State
	calls  int
	spec   ResourceSpec
}

func (p *scriptedPlatform) CreateOrUpdate(_ context.Context, spec ResourceSpec) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spec = spec
	return "handle", nil
}

func (p *scriptedPlatform) GetState(context.Context, string) (State, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := p.states[min(p.calls, len(p.states)-1)]
	p.calls++
	diagnostic := ""
	if state == StateFailed {
		diagnostic = "resource quota exhausted"
	}
	return state, diagnostic, nil
}

func (p *scriptedPlatform) Delete(context.Context, Names) error { return nil }

func TestAttemptPollsUntilSucceeded(t *testing.T) {
	platform := &scriptedPlatform{states: []State{StateRunning, StateRunning, StateSucceeded}}
	a := NewAttempt(platform, WithPollInterval(time.Millisecond))

	names := Names{Endpoint: "ep-1", Deployment: "dep-1"}
	record := a.Run(context.Background(), 0, ResourceSpec{ModelReference: "m:1"}, names, time.Second)

	assert.Equal(t, AttemptSucceeded, record.Status)
	assert.Empty(t, record.Error)
	assert.Equal(t, names, record.Names)
	assert.GreaterOrEqual(t, platform.calls, 3)

	// The submitted spec carries the attempt's names.
	assert.Equal(t, names, platform.spec.Names)
}

func TestAttemptReportsPlatformDiagnostic(t *testing.T) {
	platform := &scriptedPlatform{states: []State{StateRunning, StateFailed}}
	a := NewAttempt(platform, WithPollInterval(time.Millisecond))

	record := a.Run(context.Background(), 1, ResourceSpec{}, Names{Endpoint: "ep"}, time.Second)
	assert.Equal(t, AttemptFailed, record.Status)
	assert.Equal(t, "resource quota exhausted", record.Error)
	assert.Equal(t, 1, record.Index)
}

func TestAttemptTimesOutWhileRunning(t *testing.T) {
	platform := &scriptedPlatform{states: []State{StateRunning}}
	a := NewAttempt(platform, WithPollInterval(time.Millisecond))

	record := a.Run(context.Background(), 0, ResourceSpec{}, Names{}, 20*time.Millisecond)
	assert.Equal(t, AttemptFailed, record.Status)
	assert.Equal(t, "deadline exceeded", record.Error)
	require.False(t, record.FinishedAt.IsZero())
	assert.GreaterOrEqual(t, record.Duration(), time.Duration(0))
}
