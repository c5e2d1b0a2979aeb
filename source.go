package loom

// EventSource is a pull-based iterator over protocol events produced by a
// backend transport. Next returns io.EOF when the underlying stream ends
// normally and a non-EOF error on transport failure. Events are delivered
// in arrival order; the dispatcher consumes them one at a time.
type EventSource interface {
	Next() (Event, error)
	Close() error
}
