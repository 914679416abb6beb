// Package component implements a uniform component lifecycle: a value-typed
// unit with an id and a single-shot Run, and SpawnComponents, which
// schedules a set of components as independent cooperative goroutines and
// aggregates their results fail-fast.
//
// The cancellation idiom is a single shared context cancel function
// observed by every cooperating goroutine: the first component to fail
// cancels its siblings, so a single bad component cannot leave the rest
// running unsupervised.
package component

import (
	"context"
	"sync"

	"github.com/xcorat/araliya/internal/telemetry"
)

// Component is an independently runnable owned unit. Run must be invoked
// exactly once and must either complete its work or observe ctx.Done and
// return nil; it must never block the caller past ctx cancellation.
type Component interface {
	ID() string
	Run(ctx context.Context) error
}

// Handle is the join-handle for a set of spawned components. Wait blocks
// until every component has returned, then yields the first error observed
// from any of them (nil if all returned nil).
type Handle struct {
	done chan struct{}
	mu   sync.Mutex
	err  error
}

// Wait blocks until all components managed by this handle have returned.
func (h *Handle) Wait() error {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// SpawnComponents takes ownership of components, runs each as an
// independent goroutine under a context derived from parent, and returns a
// Handle immediately. When any component returns a non-nil error, every
// sibling's context is canceled so they can begin cooperative shutdown; the
// handle retains the first error observed and logs (but does not retain)
// subsequent ones. If every component returns nil, Wait returns nil.
//
// A panic inside a component is recovered, logged, and treated like any
// other non-nil error for cancellation purposes, but is never itself
// returned from Wait; only the first genuine error return is.
func SpawnComponents(parent context.Context, components []Component, logger telemetry.Logger) *Handle {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{done: make(chan struct{})}

	var wg sync.WaitGroup
	var once sync.Once
	recordFirst := func(err error) {
		if err == nil {
			return
		}
		once.Do(func() {
			h.mu.Lock()
			h.err = err
			h.mu.Unlock()
			cancel()
		})
	}

	for _, c := range components {
		wg.Add(1)
		go func(c Component) {
			defer wg.Done()
			panicked, err := runRecovered(ctx, c, logger)
			if panicked {
				cancel()
				return
			}
			if err != nil {
				logger.Warn(ctx, "component exited with error", "component_id", c.ID(), "error", err.Error())
			}
			recordFirst(err)
		}(c)
	}

	go func() {
		wg.Wait()
		cancel()
		close(h.done)
	}()

	return h
}

func runRecovered(ctx context.Context, c Component, logger telemetry.Logger) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "component panicked", "component_id", c.ID(), "panic", r)
			panicked, err = true, nil
		}
	}()
	return false, c.Run(ctx)
}
