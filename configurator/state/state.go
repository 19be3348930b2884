// Package state holds the per process flags of the configurator: whether
// live scaling events may be applied and whether the liveness probe passes.
package state

import (
	"sync"

	"github.com/marathon-tools/mongodb-configurator/configurator/events"
	"github.com/marathon-tools/mongodb-configurator/pkg/api"
)

// ControllerState is created at process start and shared by handle with the
// HTTP layer, the bootstrapper and the reconfiguration controller.
// A new ControllerState is not ready and healthy.
type ControllerState struct {
	mu        sync.Mutex
	ready     bool
	unhealthy bool
	buffer    events.Buffer
}

// New returns a ControllerState that is not ready and healthy
func New() *ControllerState {
	return &ControllerState{}
}

// BufferIfNotReady appends ev to the event buffer and returns true if the
// process is not ready. It returns false, leaving the buffer untouched, once
// the process is ready.
func (s *ControllerState) BufferIfNotReady(ev api.ScalingEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return false
	}
	s.buffer.Append(ev)
	return true
}

// Buffer returns the event buffer
func (s *ControllerState) Buffer() *events.Buffer {
	return &s.buffer
}

// SetReady marks the process ready and returns the events that were still
// buffered. No event is buffered after SetReady returns.
func (s *ControllerState) SetReady() []api.ScalingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	return s.buffer.Drain()
}

// IsReady returns true if live events may be applied
func (s *ControllerState) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// SetUnhealthy makes the liveness probe fail. It cannot be undone.
func (s *ControllerState) SetUnhealthy() {
	s.mu.Lock()
	s.unhealthy = true
	s.mu.Unlock()
}

// IsHealthy returns the liveness of the process
func (s *ControllerState) IsHealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.unhealthy
}
