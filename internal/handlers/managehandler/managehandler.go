// Package managehandler serves the bus's "manage" prefix: process-level
// introspection consumed by the HTTP health endpoint.
package managehandler

import (
	"context"
	"encoding/json"

	"github.com/xcorat/araliya/internal/bus"
	"github.com/xcorat/araliya/internal/busproto"
	"github.com/xcorat/araliya/internal/memory"
)

// Prefix is the bus method prefix this handler serves.
const Prefix = "manage"

// Status is the static/semi-static process information manage/http/get
// reports.
type Status struct {
	BotID             string   `json:"bot_id"`
	LLMProvider       string   `json:"llm_provider"`
	LLMModel          string   `json:"llm_model"`
	LLMTimeoutSeconds int      `json:"llm_timeout_seconds"`
	EnabledTools      []string `json:"enabled_tools"`
	MaxToolRounds     int      `json:"max_tool_rounds"`
}

type handler struct {
	bus.NoopNotificationHandler
	status Status
	mem    *memory.System
}

// New builds the bus.Handler serving manage/http/get using the given
// static status fields and live session count from mem.
func New(status Status, mem *memory.System) bus.Handler {
	return handler{status: status, mem: mem}
}

func (handler) Prefix() string { return Prefix }

func (h handler) HandleRequest(ctx context.Context, method string, payload busproto.Payload, reply busproto.ReplyChan) {
	switch method {
	case "manage/http/get":
		h.health(reply)
	default:
		reply <- busproto.Reply{Err: busproto.NewMethodNotFound(method)}
	}
}

func (h handler) health(reply busproto.ReplyChan) {
	sessionCount := 0
	if infos, err := h.mem.Sessions.ListSessions(); err == nil {
		sessionCount = len(infos)
	}
	data, err := json.Marshal(map[string]any{
		"status":                "ok",
		"bot_id":                h.status.BotID,
		"llm_provider":          h.status.LLMProvider,
		"llm_model":             h.status.LLMModel,
		"llm_timeout_seconds":   h.status.LLMTimeoutSeconds,
		"enabled_tools":         h.status.EnabledTools,
		"max_tool_rounds":       h.status.MaxToolRounds,
		"session_count":         sessionCount,
	})
	if err != nil {
		reply <- busproto.Reply{Err: busproto.NewAppError(busproto.CodeAppMax, err.Error())}
		return
	}
	reply <- busproto.Reply{Payload: busproto.JSONResponse{Data: data}}
}
