// Package broadcast defines the port for pushing real-time governance
// events (confirmation requests, decisions, escalations) to connected
// clients.
package broadcast

import "context"

// Broadcaster fans a typed event out to every connected observer.
// Delivery is best-effort and fire-and-forget: governance outcomes never
// depend on whether anyone was watching.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
