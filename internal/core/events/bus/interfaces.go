package bus

import "time"

// Handler is invoked once per published event. Returned errors are joined and
// handed back to the publisher.
type Handler[E any] func(event E) error

// Subscription represents a registered handler.
// Use Cancel or Bus.Unsubscribe to stop receiving events.
type Subscription interface {
	// ID is a unique identifier for this subscription.
	ID() string
	// IsActive reports whether this subscription is still registered.
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// Observer is notified about deliveries. Observers should return quickly.
type Observer interface {
	OnDelivered(bus string, handlers int, err error, elapsed time.Duration)
}

// Metrics is updated only while at least one observer is registered.
type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}
