// Package mock provides deterministic test doubles for the engine's
// collaborators: a scripted event source, a manual clock, and a
// recording task bridge.
package mock

import (
	"io"

	"github.com/loomcode/loom"
)

// Source replays a scripted event sequence. Next returns io.EOF after the
// last event, or Err if set.
type Source struct {
	Events []loom.Event
	Err    error

	pos    int
	closed bool
}

var _ loom.EventSource = (*Source)(nil)

// NewSource creates a source replaying events in order.
func NewSource(events ...loom.Event) *Source {
	return &Source{Events: events}
}

// Next returns the next scripted event.
func (s *Source) Next() (loom.Event, error) {
	if s.closed {
		return nil, loom.ErrSourceClosed
	}
	if s.pos >= len(s.Events) {
		if s.Err != nil {
			return nil, s.Err
		}
		return nil, io.EOF
	}
	ev := s.Events[s.pos]
	s.pos++
	return ev, nil
}

// Close marks the source closed.
func (s *Source) Close() error {
	s.closed = true
	return nil
}
