package deploy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedBackoff(t *testing.T) {
	b := FixedBackoff{Interval: 5 * time.Minute}
	assert.Equal(t, 5*time.Minute, b.Delay(0))
	assert.Equal(t, 5*time.Minute, b.Delay(7))
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff{Initial: time.Second, Factor: 2, Max: 5 * time.Second}
	assert.Equal(t, time.Second, b.Delay(0))
	assert.Equal(t, 2*time.Second, b.Delay(1))
	assert.Equal(t, 4*time.Second, b.Delay(2))
	assert.Equal(t, 5*time.Second, b.Delay(3), "capped at Max")
	assert.Equal(t, 5*time.Second, b.Delay(10))
}

func TestExponentialBackoffDefaultsFactor(t *testing.T) {
	b := ExponentialBackoff{Initial: time.Second}
	assert.Equal(t, 2*time.Second, b.Delay(1))
}
