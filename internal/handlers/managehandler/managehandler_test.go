package managehandler_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xcorat/araliya/internal/bus"
	"github.com/xcorat/araliya/internal/busproto"
	"github.com/xcorat/araliya/internal/handlers/managehandler"
	"github.com/xcorat/araliya/internal/memory"
)

func TestHealthReportsSessionCount(t *testing.T) {
	mem, err := memory.New(memory.Config{
		Root:  t.TempDir(),
		KVCap: 10, TranscriptCap: 10,
	}, nil)
	require.NoError(t, err)
	_, err = mem.Sessions.CreateSession(context.Background(), []string{"basic_session"}, "agent-1")
	require.NoError(t, err)

	router, err := bus.NewRouter(16, nil)
	require.NoError(t, err)
	status := managehandler.Status{BotID: "bot-1", LLMProvider: "anthropic", LLMModel: "claude", LLMTimeoutSeconds: 30}
	require.NoError(t, router.Register(managehandler.New(status, mem)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()

	h := bus.NewHandle(router)
	payload, busErr, callErr := h.Request(context.Background(), "manage/http/get", busproto.Empty{})
	require.NoError(t, callErr)
	require.Nil(t, busErr)

	resp := payload.(busproto.JSONResponse)
	var decoded struct {
		SessionCount int    `json:"session_count"`
		BotID        string `json:"bot_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &decoded))
	require.Equal(t, 1, decoded.SessionCount)
	require.Equal(t, "bot-1", decoded.BotID)
}
