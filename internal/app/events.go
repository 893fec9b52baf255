// Package app wires the comparison pipeline together: configuration, the
// pass manifest state, events, and background difference generation.
package app

import (
	"context"
	"sync"

	"artdiff/internal/model"
)

// EventType identifies different pipeline events.
type EventType int

const (
	// EventComparisonCreated carries the new *model.VisualComparison.
	EventComparisonCreated EventType = iota
	// EventDifferenceGenerated carries the generated *model.VisualComparison.
	EventDifferenceGenerated
	// EventGenerateFailed carries a GenerateFailure.
	EventGenerateFailed
	// EventManifestLoaded carries the manifest path.
	EventManifestLoaded
)

// GenerateFailure reports a difference generation that did not complete.
type GenerateFailure struct {
	ComparisonID string
	Err          error
}

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Events is a synchronous event bus. Safe for concurrent use.
type Events struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventListener
}

// NewEvents creates an empty event bus.
func NewEvents() *Events {
	return &Events{listeners: make(map[EventType][]EventListener)}
}

// On registers an event listener for the specified event type.
func (e *Events) On(event EventType, listener EventListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (e *Events) Emit(event EventType, data interface{}) {
	e.mu.RLock()
	listeners := e.listeners[event]
	e.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// ComparisonCreated emits EventComparisonCreated, making Events a
// comparison observer.
func (e *Events) ComparisonCreated(_ context.Context, c *model.VisualComparison) {
	e.Emit(EventComparisonCreated, c)
}
