package bus

import (
	"context"

	"github.com/xcorat/araliya/internal/busproto"
)

// Handler is the contract every subsystem implements to receive bus
// dispatch. Prefix must be unique across the registry; the reserved
// namespace "$" may only be published by the router itself.
//
// Non-blocking rule: HandleRequest must either resolve reply
// synchronously for trivial work, or spawn its own goroutine and resolve
// reply from there for I/O-bearing work. It must never block the router
// loop.
type Handler interface {
	// Prefix returns this handler's unique routing prefix.
	Prefix() string
	// HandleRequest processes a request whose method matched this handler's
	// prefix. method is the full method string (e.g. "agents/echo/handle"),
	// not just the suffix, so handlers can perform secondary routing.
	// Implementations must eventually send exactly one Reply on reply.
	HandleRequest(ctx context.Context, method string, payload busproto.Payload, reply busproto.ReplyChan)
	// HandleNotification processes a notification whose method matched this
	// handler's prefix. Default (no-op) behavior is provided by embedding
	// NoopNotificationHandler.
	HandleNotification(ctx context.Context, method string, payload busproto.Payload)
}

// NoopNotificationHandler embeds into a Handler implementation to satisfy
// HandleNotification with a no-op, for handlers that only serve requests.
type NoopNotificationHandler struct{}

// HandleNotification is a no-op. Embed this type to opt out of notification
// handling.
func (NoopNotificationHandler) HandleNotification(context.Context, string, busproto.Payload) {}
