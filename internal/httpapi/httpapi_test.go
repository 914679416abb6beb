package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xcorat/araliya/internal/bus"
	"github.com/xcorat/araliya/internal/handlers/agentshandler"
	"github.com/xcorat/araliya/internal/handlers/managehandler"
	"github.com/xcorat/araliya/internal/httpapi"
	"github.com/xcorat/araliya/internal/memory"
)

func newTestServer(t *testing.T) *httpapi.Server {
	t.Helper()
	mem, err := memory.New(memory.Config{Root: t.TempDir(), KVCap: 10, TranscriptCap: 10}, nil)
	require.NoError(t, err)

	router, err := bus.NewRouter(16, nil)
	require.NoError(t, err)
	require.NoError(t, router.Register(
		agentshandler.New(mem),
		managehandler.New(managehandler.Status{BotID: "bot-1"}, mem),
	))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = router.Run(ctx) }()

	return httpapi.New(bus.NewHandle(router))
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "bot-1", body["bot_id"])
}

func TestSessionsEndpointEmpty(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionDetailUnknownIDReturnsError(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/session/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.NotEqual(t, http.StatusOK, rec.Code)
}

func TestMessageEndpointChatTurnNotImplemented(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/message?channel_id=c1&content=hi", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.NotEqual(t, http.StatusOK, rec.Code)
}
