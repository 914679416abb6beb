package echohandler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xcorat/araliya/internal/bus"
	"github.com/xcorat/araliya/internal/busproto"
	"github.com/xcorat/araliya/internal/handlers/echohandler"
)

func TestEchoPingReturnsPayloadUnchanged(t *testing.T) {
	router, err := bus.NewRouter(16, nil)
	require.NoError(t, err)
	require.NoError(t, router.Register(echohandler.New()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()

	h := bus.NewHandle(router)
	payload, busErr, callErr := h.Request(context.Background(), "echo/ping", busproto.Text{Value: "hello"})
	require.NoError(t, callErr)
	require.Nil(t, busErr)
	require.Equal(t, busproto.Text{Value: "hello"}, payload)
}

func TestBareEchoEchoesCommsMessage(t *testing.T) {
	router, err := bus.NewRouter(16, nil)
	require.NoError(t, err)
	require.NoError(t, router.Register(echohandler.New()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()

	h := bus.NewHandle(router)
	msg := busproto.CommsMessage{ChannelID: "c", Content: "hi"}
	payload, busErr, callErr := h.Request(context.Background(), "echo", msg)
	require.NoError(t, callErr)
	require.Nil(t, busErr)
	require.Equal(t, msg, payload)
}
