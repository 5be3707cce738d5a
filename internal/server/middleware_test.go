package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterDropsIdleClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newLimiter(1, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"), "burst of one is spent")
	now = now.Add(time.Minute)
	assert.True(t, l.allow("10.0.0.2"))
	assert.Equal(t, 2, l.len())

	// 10.0.0.1 has been idle for a full period, 10.0.0.2 not yet.
	now = now.Add(limiterIdle - time.Minute)
	assert.True(t, l.allow("10.0.0.3"))
	assert.Equal(t, 2, l.len())
	assert.NotContains(t, l.clients, "10.0.0.1")
	assert.Contains(t, l.clients, "10.0.0.2")

	// No sweep until another idle period has passed.
	now = now.Add(limiterIdle / 2)
	l.allow("10.0.0.4")
	assert.Equal(t, 3, l.len())

	now = now.Add(limiterIdle)
	l.allow("10.0.0.5")
	assert.Equal(t, 1, l.len())
}

func TestLimiterKeepsActiveClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newLimiter(100, 10)
	l.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		assert.True(t, l.allow("10.0.0.1"))
		now = now.Add(limiterIdle / 2)
	}
	assert.Equal(t, 1, l.len())
}
