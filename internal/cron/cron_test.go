package cron_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xcorat/araliya/internal/bus"
	"github.com/xcorat/araliya/internal/busproto"
	"github.com/xcorat/araliya/internal/cron"
)

type targetRecorder struct {
	bus.NoopNotificationHandler
	fires chan string
}

func (targetRecorder) Prefix() string { return "t" }

func (targetRecorder) HandleRequest(context.Context, string, busproto.Payload, busproto.ReplyChan) {}

func (r targetRecorder) HandleNotification(_ context.Context, method string, _ busproto.Payload) {
	r.fires <- method
}

func setup(t *testing.T) (bus.Handle, *cron.Service, chan string, func()) {
	t.Helper()
	recorder := targetRecorder{fires: make(chan string, 16)}

	// Two-phase construction: build the router with no handlers yet, mint a
	// Handle, build the cron service around it, then register handlers.
	router, err := bus.NewRouter(16, nil)
	require.NoError(t, err)
	svc := cron.NewService(cron.NewState(bus.NewHandle(router)))
	require.NoError(t, router.Register(recorder, svc.Handler()))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = router.Run(ctx) }()
	go func() { _ = svc.Run(ctx) }()
	return bus.NewHandle(router), svc, recorder.fires, cancel
}

func TestCronOnceFiresAndIsRemoved(t *testing.T) {
	h, _, fires, cancel := setup(t)
	defer cancel()

	at := time.Now().Add(50 * time.Millisecond).UnixMilli()
	payload, busErr, callErr := h.Request(context.Background(), "cron/schedule", busproto.CronSchedule{
		TargetMethod: "t/x",
		PayloadJSON:  []byte(`{}`),
		Spec:         busproto.CronSpec{Kind: busproto.CronOnce, AtUnixMs: at},
	})
	require.NoError(t, callErr)
	require.Nil(t, busErr)
	result := payload.(busproto.CronScheduleResult)
	require.NotEmpty(t, result.ScheduleID)

	select {
	case method := <-fires:
		require.Equal(t, "t/x", method)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("notification did not fire within 200ms")
	}

	listPayload, _, err := h.Request(context.Background(), "cron/list", busproto.CronList{})
	require.NoError(t, err)
	list := listPayload.(busproto.CronListResult)
	for _, e := range list.Entries {
		require.NotEqual(t, result.ScheduleID, e.ID)
	}
}

func TestCronCancelUnknownIDIsBadRequest(t *testing.T) {
	h, _, _, cancel := setup(t)
	defer cancel()

	_, busErr, callErr := h.Request(context.Background(), "cron/cancel", busproto.CronCancel{ScheduleID: "does-not-exist"})
	require.NoError(t, callErr)
	require.NotNil(t, busErr)
	require.Equal(t, busproto.CodeBadRequest, busErr.Code)
}

func TestCronMalformedIntervalIsBadRequest(t *testing.T) {
	h, _, _, cancel := setup(t)
	defer cancel()

	_, busErr, callErr := h.Request(context.Background(), "cron/schedule", busproto.CronSchedule{
		TargetMethod: "t/x",
		Spec:         busproto.CronSpec{Kind: busproto.CronInterval, EverySecs: 0},
	})
	require.NoError(t, callErr)
	require.NotNil(t, busErr)
	require.Equal(t, busproto.CodeBadRequest, busErr.Code)
}

func TestCronIntervalRefiresSpacedApart(t *testing.T) {
	h, _, fires, cancel := setup(t)
	defer cancel()

	_, _, err := h.Request(context.Background(), "cron/schedule", busproto.CronSchedule{
		TargetMethod: "t/interval",
		Spec:         busproto.CronSpec{Kind: busproto.CronInterval, EverySecs: 1},
	})
	require.NoError(t, err)

	var last time.Time
	fired := 0
	for fired < 2 {
		select {
		case method := <-fires:
			if method != "t/interval" {
				continue
			}
			now := time.Now()
			if !last.IsZero() {
				require.GreaterOrEqual(t, now.Sub(last), 900*time.Millisecond)
			}
			last = now
			fired++
		case <-time.After(3 * time.Second):
			t.Fatal("interval did not refire in time")
		}
	}
}
