// Package echohandler implements a minimal diagnostic handler: it replies
// with whatever payload it was sent, useful for bootstrap smoke tests and
// liveness probes that want to exercise the full router round trip. The
// bare "echo" method and its "echo/ping" alias behave identically.
package echohandler

import (
	"context"

	"github.com/xcorat/araliya/internal/bus"
	"github.com/xcorat/araliya/internal/busproto"
)

// Prefix is the bus method prefix this handler serves.
const Prefix = "echo"

type handler struct {
	bus.NoopNotificationHandler
}

// New builds the echo bus.Handler.
func New() bus.Handler { return handler{} }

func (handler) Prefix() string { return Prefix }

func (handler) HandleRequest(ctx context.Context, method string, payload busproto.Payload, reply busproto.ReplyChan) {
	switch method {
	case "echo", "echo/ping":
		reply <- busproto.Reply{Payload: payload}
	default:
		reply <- busproto.Reply{Err: busproto.NewMethodNotFound(method)}
	}
}
