package realtime

import "context"

// Subscription is a live bus subscription; Close stops delivery.
type Subscription interface {
	Close() error
}

// Bus is the underlying pub/sub primitive a session channel rides on.
// Delivery is at-most-once, best-effort, in transport order; durable facts
// are persisted separately and never depend on bus delivery.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe starts delivering messages on the named channel to onMsg.
	// onDrop fires once if the transport loses the subscription; the
	// subscription is dead afterwards and must be re-established.
	Subscribe(ctx context.Context, channel string, onMsg func(payload []byte), onDrop func(err error)) (Subscription, error)
	Close() error
}
