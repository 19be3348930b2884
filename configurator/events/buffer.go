// Package events holds the scaling events received before the configurator
// is ready to apply them.
package events

import (
	"sync"

	"github.com/marathon-tools/mongodb-configurator/pkg/api"
)

// Buffer is an ordered in-memory queue of scaling events. It is safe for
// concurrent use and Append never blocks on a reader.
type Buffer struct {
	mu     sync.Mutex
	events []api.ScalingEvent
}

// Append adds ev at the end of the buffer
func (b *Buffer) Append(ev api.ScalingEvent) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

// Drain removes and returns the buffered events in arrival order
func (b *Buffer) Drain() []api.ScalingEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// Len returns the number of buffered events
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
