package state

import (
	"testing"

	"github.com/marathon-tools/mongodb-configurator/pkg/api"

	"github.com/stretchr/testify/assert"
)

func TestInitialState(t *testing.T) {
	s := New()
	assert.False(t, s.IsReady())
	assert.True(t, s.IsHealthy())
}

func TestBufferingBoundary(t *testing.T) {
	s := New()
	ev1 := api.ScalingEvent{Host: "a", Port: 1, Action: api.ActionAdd}
	ev2 := api.ScalingEvent{Host: "b", Port: 2, Action: api.ActionAdd}

	assert.True(t, s.BufferIfNotReady(ev1))
	assert.True(t, s.BufferIfNotReady(ev2))
	assert.Equal(t, 2, s.Buffer().Len())

	leftover := s.SetReady()
	assert.Equal(t, []api.ScalingEvent{ev1, ev2}, leftover)
	assert.True(t, s.IsReady())

	assert.False(t, s.BufferIfNotReady(ev1))
	assert.Equal(t, 0, s.Buffer().Len())
}

func TestHealth(t *testing.T) {
	s := New()
	s.SetUnhealthy()
	assert.False(t, s.IsHealthy())
	s.SetUnhealthy()
	assert.False(t, s.IsHealthy())
}
