package cron

import (
	"context"

	"github.com/xcorat/araliya/internal/bus"
	"github.com/xcorat/araliya/internal/busproto"
)

// handler adapts Service to the bus.Handler contract. It never touches the
// priority queue directly: every operation is forwarded as a command onto
// the service's single command channel, which is only ever read by the
// scheduling loop goroutine (mutations come only through its
// command channel").
type handler struct {
	bus.NoopNotificationHandler
	svc *Service
}

// Handler returns the bus.Handler that serves cron/schedule, cron/cancel and
// cron/list by forwarding onto the scheduling loop's command channel.
func (s *Service) Handler() bus.Handler { return handler{svc: s} }

func (handler) Prefix() string { return Prefix }

func (h handler) HandleRequest(ctx context.Context, method string, payload busproto.Payload, reply busproto.ReplyChan) {
	switch method {
	case "cron/schedule":
		sched, ok := payload.(busproto.CronSchedule)
		if !ok {
			reply <- busproto.Reply{Err: busproto.NewBadRequest("cron/schedule requires a CronSchedule payload")}
			return
		}
		h.send(ctx, command{kind: cmdSchedule, reply: reply, sched: sched})
	case "cron/cancel":
		c, ok := payload.(busproto.CronCancel)
		if !ok {
			reply <- busproto.Reply{Err: busproto.NewBadRequest("cron/cancel requires a CronCancel payload")}
			return
		}
		h.send(ctx, command{kind: cmdCancel, reply: reply, cancel: c})
	case "cron/list":
		h.send(ctx, command{kind: cmdList, reply: reply})
	default:
		reply <- busproto.Reply{Err: busproto.NewMethodNotFound(method)}
	}
}

// send hands a command to the scheduling loop without blocking the router:
// it spawns a small goroutine whose only job is the (buffered) channel send,
// satisfying the handler non-blocking rule even though the
// command channel itself is large enough that this rarely actually blocks.
func (h handler) send(ctx context.Context, cmd command) {
	go func() {
		select {
		case h.svc.cmds <- cmd:
		case <-ctx.Done():
			if cmd.reply != nil {
				cmd.reply <- busproto.Reply{Err: busproto.NewAppError(busproto.CodeAppMax, "cron command canceled")}
			}
		}
	}()
}
