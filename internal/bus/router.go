// Package bus implements the supervisor bus router: a single
// bounded inbound queue, a prefix-indexed handler registry, and the Handle
// type every subsystem uses to call request/notify. The router never awaits
// a handler's work; it hands messages off and loops, so a slow or blocked
// handler can never stall routing of unrelated messages.
package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/xcorat/araliya/internal/busproto"
	"github.com/xcorat/araliya/internal/telemetry"
)

// reservedPrefix is the namespace the router itself publishes under
// (currently unused for inbound dispatch, reserved for future use).
const reservedPrefix = "$"

// envelope is what flows through the router's single inbound queue: either
// a Request or a Notification, never both.
type envelope struct {
	req    *busproto.Request
	notify *busproto.Notification
}

// Router owns the bounded inbound queue and the handler registry. Build one
// with NewRouter, register handlers, then Run it as a component.
type Router struct {
	inbox    chan envelope
	handlers map[string]Handler
	logger   telemetry.Logger
	tracer   telemetry.Tracer
}

// Option configures a Router at construction time.
type Option func(*Router)

// WithLogger sets the router's logger. Defaults to a no-op logger.
func WithLogger(l telemetry.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithTracer sets the router's tracer. Defaults to a no-op tracer.
func WithTracer(t telemetry.Tracer) Option {
	return func(r *Router) { r.tracer = t }
}

// NewRouter builds a Router with the given inbound queue capacity and
// registers handlers. Bootstrap fails loudly (returns an error) if two
// handlers claim the same prefix, or if a handler claims the reserved "$"
// namespace.
//
// Construction is deliberately two-phase (NewHandle works against the
// router's inbox before Register is called) because some handlers need a
// bus Handle to build themselves (e.g. the cron service notifies through
// one) yet also need to be registered with the very router that Handle
// points at. Build the router with no handlers, mint Handles, construct
// those handlers, then Register everything before starting Run.
func NewRouter(queueCapacity int, handlers []Handler, opts ...Option) (*Router, error) {
	r := &Router{
		inbox:    make(chan envelope, queueCapacity),
		handlers: make(map[string]Handler, len(handlers)),
		logger:   telemetry.NewNoopLogger(),
		tracer:   telemetry.NewNoopTracer(),
	}
	for _, o := range opts {
		o(r)
	}
	if err := r.Register(handlers...); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds handlers to the registry. Must be called before Run starts
// reading the inbound queue; the registry is treated as immutable once the
// router is running.
func (r *Router) Register(handlers ...Handler) error {
	for _, h := range handlers {
		if h == nil {
			continue
		}
		p := h.Prefix()
		if p == reservedPrefix {
			return fmt.Errorf("handler prefix %q is reserved for the router", p)
		}
		if _, dup := r.handlers[p]; dup {
			return fmt.Errorf("duplicate handler prefix %q", p)
		}
		r.handlers[p] = h
	}
	return nil
}

// ID identifies this component for the component runtime.
func (r *Router) ID() string { return "bus.router" }

// Run is the router's single-task dispatch loop. It owns the inbound queue
// and exits when ctx is canceled, draining nothing further (in-flight
// handlers are responsible for observing ctx themselves).
func (r *Router) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-r.inbox:
			r.dispatch(ctx, env)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, env envelope) {
	if env.req != nil {
		r.dispatchRequest(ctx, env.req)
		return
	}
	r.dispatchNotification(ctx, env.notify)
}

func prefixOf(method string) string {
	if i := strings.IndexByte(method, '/'); i >= 0 {
		return method[:i]
	}
	return method
}

func (r *Router) dispatchRequest(ctx context.Context, req *busproto.Request) {
	ctx, span := r.tracer.Start(ctx, "bus.request")
	defer span.End()
	r.logger.Debug(ctx, "dispatching request", "request_id", req.ID, "method", req.Method)

	h, ok := r.handlers[prefixOf(req.Method)]
	if !ok {
		req.Reply <- busproto.Reply{Err: busproto.NewMethodNotFound(req.Method)}
		r.logger.Debug(ctx, "request completed", "request_id", req.ID, "status", "method_not_found")
		return
	}
	h.HandleRequest(ctx, req.Method, req.Payload, req.Reply)
	r.logger.Debug(ctx, "request handed off", "request_id", req.ID, "status", "dispatched")
}

func (r *Router) dispatchNotification(ctx context.Context, n *busproto.Notification) {
	r.logger.Debug(ctx, "dispatching notification", "method", n.Method)
	h, ok := r.handlers[prefixOf(n.Method)]
	if !ok {
		r.logger.Warn(ctx, "notification for unknown method dropped", "method", n.Method)
		return
	}
	h.HandleNotification(ctx, n.Method, n.Payload)
}

// CallError classifies a failure to complete a bus call, distinct from an
// application-level *busproto.Error returned inside a successful reply.
type CallError struct {
	Kind CallErrorKind
	Err  error
}

func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bus call error (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("bus call error: %s", e.Kind)
}

func (e *CallError) Unwrap() error { return e.Err }

// CallErrorKind enumerates the ways a bus call can fail without ever
// reaching the reply-decision stage.
type CallErrorKind string

const (
	// ErrSendFailed indicates the request could not be enqueued: the caller's
	// context was canceled while the request waited for room in the queue
	// (for instance because the router has stopped reading).
	ErrSendFailed CallErrorKind = "send-failed"
	// ErrRecvFailed indicates the handler dropped the reply channel without
	// sending — the caller observed this by the channel closing (or, here,
	// by the caller's own context expiring while waiting).
	ErrRecvFailed CallErrorKind = "recv-failed"
	// ErrFull indicates a Notification could not be enqueued because the
	// inbound queue is saturated. Never returned for Request, which always
	// blocks instead (back-pressure by design).
	ErrFull CallErrorKind = "full"
)

// Handle is the capability every subsystem is handed: request/notify against
// the bus, nothing else. It is cheap to clone (copies a channel reference).
type Handle struct {
	inbox chan envelope
}

// NewHandle mints a Handle bound to this router's inbound queue. Called once
// per subsystem at bootstrap wiring time.
func NewHandle(r *Router) Handle {
	return Handle{inbox: r.inbox}
}

// Request enqueues a Request with a freshly minted id and awaits exactly one
// reply. Blocks on the bounded queue (requests back-pressure; they are never
// dropped for being "full").
func (h Handle) Request(ctx context.Context, method string, payload busproto.Payload) (busproto.Payload, *busproto.Error, error) {
	reply := make(busproto.ReplyChan, 1)
	req := &busproto.Request{ID: uuid.NewString(), Method: method, Payload: payload, Reply: reply}

	select {
	case h.inbox <- envelope{req: req}:
	case <-ctx.Done():
		return nil, nil, &CallError{Kind: ErrSendFailed, Err: ctx.Err()}
	}

	select {
	case r, ok := <-reply:
		if !ok {
			return nil, nil, &CallError{Kind: ErrRecvFailed, Err: errors.New("reply channel closed without a reply")}
		}
		return r.Payload, r.Err, nil
	case <-ctx.Done():
		return nil, nil, &CallError{Kind: ErrRecvFailed, Err: ctx.Err()}
	}
}

// Notify enqueues a Notification without waiting for any handler. Returns
// ErrFull (wrapped in a *CallError) if the inbound queue is saturated; the
// message is discarded and callers must log, not retry.
func (h Handle) Notify(_ context.Context, method string, payload busproto.Payload) error {
	select {
	case h.inbox <- envelope{notify: &busproto.Notification{Method: method, Payload: payload}}:
		return nil
	default:
		return &CallError{Kind: ErrFull}
	}
}
