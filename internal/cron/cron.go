// Package cron implements the bus-native cron service: a
// priority-queue timer that accepts schedules over the bus prefix "cron" and
// emits Notifications at the scheduled moments. The priority queue is
// grounded on container/heap (Go's standard idiom for an ordered-by-deadline
// queue); this is the one place in the core where stdlib is the correct
// choice rather than a dependency — the heap *is* the component being
// specified, not a wrapped library concern (see DESIGN.md).
package cron

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xcorat/araliya/internal/bus"
	"github.com/xcorat/araliya/internal/busproto"
	"github.com/xcorat/araliya/internal/telemetry"
)

// Prefix is the bus prefix this service registers under.
const Prefix = "cron"

// State is the cron service's capability-boundary object: it
// privately owns the bus Handle and exposes only "notify the target method"
// to the scheduling loop's internals.
type State struct {
	h bus.Handle
}

// NewState wraps a bus Handle into the cron service's capability object.
func NewState(h bus.Handle) *State { return &State{h: h} }

func (s *State) notify(ctx context.Context, method string, payload busproto.Payload) error {
	return s.h.Notify(ctx, method, payload)
}

// command is sent from the bus handler goroutine into the scheduling loop's
// single command channel; it is the subsystem-local event type
// calls for ("each subsystem may maintain its own mpsc queue").
type command struct {
	kind    commandKind
	reply   busproto.ReplyChan
	sched   busproto.CronSchedule
	cancel  busproto.CronCancel
}

type commandKind int

const (
	cmdSchedule commandKind = iota
	cmdCancel
	cmdList
)

// entry is one live cron registration, keyed in the priority queue by its
// next fire Instant.
type entry struct {
	id       string
	method   string
	spec     busproto.CronSpec
	payload  []byte
	deadline time.Time
	index    int // heap index, maintained by container/heap
}

// entryHeap is a min-heap ordered by deadline.
type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Service is the cron background component: one task that owns the priority
// queue and a secondary id->*entry index for O(1) cancel.
type Service struct {
	state   *State
	cmds    chan command
	logger  telemetry.Logger

	// owned only by Run's goroutine:
	pq    entryHeap
	byID  map[string]*entry
}

// Option configures a Service at construction time.
type Option func(*Service)

// WithLogger sets the service's logger. Defaults to a no-op logger.
func WithLogger(l telemetry.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService builds the cron Service. Register the returned value's bus
// Handler (via Handler()) with the router, and schedule the service itself
// as a component (via the Component() adapter) so it runs its timer loop.
func NewService(state *State, opts ...Option) *Service {
	s := &Service{
		state:  state,
		cmds:   make(chan command, 64),
		logger: telemetry.NewNoopLogger(),
		byID:   make(map[string]*entry),
	}
	for _, o := range opts {
		o(s)
	}
	heap.Init(&s.pq)
	return s
}

// ID identifies this component for the component runtime.
func (s *Service) ID() string { return "cron.service" }

// Run is the scheduling loop: it selects on ctx cancellation, inbound
// commands, and a sleep-until the next deadline. When the queue is empty the
// sleep arm blocks forever so the task idles until a command arrives.
func (s *Service) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		s.resetTimer(timer)
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-s.cmds:
			s.handleCommand(ctx, cmd)
		case <-timer.C:
			s.fireDue(ctx)
		}
	}
}

func (s *Service) resetTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	if len(s.pq) == 0 {
		return // leave stopped; idles until a command arrives
	}
	d := time.Until(s.pq[0].deadline)
	if d < 0 {
		d = 0
	}
	timer.Reset(d)
}

func (s *Service) handleCommand(ctx context.Context, cmd command) {
	switch cmd.kind {
	case cmdSchedule:
		s.handleSchedule(cmd)
	case cmdCancel:
		s.handleCancel(cmd)
	case cmdList:
		s.handleList(cmd)
	}
	_ = ctx
}

func (s *Service) handleSchedule(cmd command) {
	spec := cmd.sched.Spec
	var deadline time.Time
	switch spec.Kind {
	case busproto.CronOnce:
		deadline = unixMsToTime(spec.AtUnixMs)
	case busproto.CronInterval:
		if spec.EverySecs <= 0 {
			cmd.reply <- busproto.Reply{Err: busproto.NewBadRequest("interval spec requires EverySecs > 0")}
			return
		}
		deadline = addSecondsSaturating(time.Now(), spec.EverySecs)
	default:
		cmd.reply <- busproto.Reply{Err: busproto.NewBadRequest("malformed cron spec")}
		return
	}
	deadline = s.nudgeUnique(deadline)

	id := uuid.NewString()
	e := &entry{id: id, method: cmd.sched.TargetMethod, spec: spec, payload: cmd.sched.PayloadJSON, deadline: deadline}
	heap.Push(&s.pq, e)
	s.byID[id] = e

	cmd.reply <- busproto.Reply{Payload: busproto.CronScheduleResult{ScheduleID: id}}
}

// nudgeUnique ensures no two entries share an identical deadline, nudging by
// 1ns per collision so the heap (and any ordered-map-style index) keeps
// unique keys.
func (s *Service) nudgeUnique(deadline time.Time) time.Time {
	taken := make(map[int64]struct{}, len(s.pq))
	for _, e := range s.pq {
		taken[e.deadline.UnixNano()] = struct{}{}
	}
	for {
		if _, exists := taken[deadline.UnixNano()]; !exists {
			return deadline
		}
		deadline = deadline.Add(time.Nanosecond)
	}
}

func (s *Service) handleCancel(cmd command) {
	e, ok := s.byID[cmd.cancel.ScheduleID]
	if !ok {
		cmd.reply <- busproto.Reply{Err: busproto.NewBadRequest(fmt.Sprintf("unknown schedule id %q", cmd.cancel.ScheduleID))}
		return
	}
	heap.Remove(&s.pq, e.index)
	delete(s.byID, e.id)
	cmd.reply <- busproto.Reply{Payload: busproto.Empty{}}
}

func (s *Service) handleList(cmd command) {
	entries := make([]busproto.CronEntryInfo, 0, len(s.pq))
	for _, e := range s.pq {
		entries = append(entries, busproto.CronEntryInfo{
			ID:             e.id,
			Method:         e.method,
			Spec:           e.spec,
			NextFireUnixMs: e.deadline.UnixMilli(),
		})
	}
	cmd.reply <- busproto.Reply{Payload: busproto.CronListResult{Entries: entries}}
}

func (s *Service) fireDue(ctx context.Context) {
	now := time.Now()
	for len(s.pq) > 0 && !s.pq[0].deadline.After(now) {
		e := heap.Pop(&s.pq).(*entry)
		delete(s.byID, e.id)

		if err := s.state.notify(ctx, e.method, busproto.JSONResponse{Data: e.payload}); err != nil {
			// Notifications are lossy by design; the cron
			// service never retries a missed tick.
			s.logger.Warn(ctx, "cron notification dropped", "schedule_id", e.id, "method", e.method, "error", err.Error())
		}

		if e.spec.Kind == busproto.CronInterval {
			e.deadline = s.nudgeUnique(addSecondsSaturating(e.deadline, e.spec.EverySecs))
			heap.Push(&s.pq, e)
			s.byID[e.id] = e
		}
	}
}

// addSecondsSaturating saturates to a far-future instant instead of
// overflowing/panicking on pathological EverySecs values.
func addSecondsSaturating(base time.Time, secs int64) time.Time {
	const maxDuration = time.Duration(1<<63 - 1)
	if secs <= 0 {
		return base
	}
	d := time.Duration(secs) * time.Second
	if secs > int64(maxDuration/time.Second) {
		return base.Add(maxDuration)
	}
	return base.Add(d)
}

func unixMsToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
