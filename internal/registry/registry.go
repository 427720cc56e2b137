// Package registry holds the in-memory, registration-ordered sequence of
// handler configs and matches incoming events against them. It is built
// once at startup from configuration and never mutated concurrently with
// reads, so no locking is needed.
package registry

import (
	"github.com/metarelay/metarelay/internal/types"
)

// Registry is an ordered, append-only sequence of handler configs.
type Registry struct {
	handlers []types.HandlerConfig
}

// New builds an empty registry.
func New() *Registry {
	return &Registry{}
}

// Register appends a handler to the registry, preserving registration
// order (which is also match order).
func (r *Registry) Register(h types.HandlerConfig) {
	r.handlers = append(r.handlers, h)
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int { return len(r.handlers) }

// Match returns every enabled handler whose event_type and action both
// equal the event's fields and whose filters all evaluate true, in
// registration order.
func (r *Registry) Match(event *types.Event) []types.HandlerConfig {
	var matches []types.HandlerConfig
	for _, h := range r.handlers {
		if !h.IsEnabled() {
			continue
		}
		if h.Event != event.EventType || h.Action != event.Action {
			continue
		}
		if !EvaluateFilters(h.Filters, event) {
			continue
		}
		matches = append(matches, h)
	}
	return matches
}
