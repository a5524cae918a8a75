package cache

import (
	"sync"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// EventCache buffers call state events between roster cycles
type EventCache struct {
	events []types.CallEvent
	mu     sync.RWMutex
}

// NewEventCache creates a new event cache
func NewEventCache() *EventCache {
	return &EventCache{
		events: make([]types.CallEvent, 0, 256),
	}
}

// Add appends an event to the cache
func (c *EventCache) Add(event types.CallEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

// GetAndClear returns all events and clears the cache
func (c *EventCache) GetAndClear() []types.CallEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := c.events
	c.events = make([]types.CallEvent, 0, 256)
	return events
}

// Size returns the current number of cached events
func (c *EventCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}
