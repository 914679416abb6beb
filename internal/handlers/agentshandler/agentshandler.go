// Package agentshandler serves the bus's "agents" prefix: the read-only
// session query surface the memory subsystem exposes for collaborators
// (chat UIs, the HTTP shim), intercepted ahead of per-agent chat-turn
// routing.
package agentshandler

import (
	"context"
	"encoding/json"

	"github.com/xcorat/araliya/internal/bus"
	"github.com/xcorat/araliya/internal/busproto"
	"github.com/xcorat/araliya/internal/memory"
)

// Prefix is the bus method prefix this handler serves.
const Prefix = "agents"

type handler struct {
	bus.NoopNotificationHandler
	mem *memory.System
}

// New builds the bus.Handler for the session query surface over mem.
// Plain chat-turn methods ("agents", with no further path segment) are not
// served here: turn orchestration is an external collaborator's
// responsibility, and requests for it receive an application-error reply
// (code -32000) naming the gap rather than being silently swallowed.
func New(mem *memory.System) bus.Handler {
	return handler{mem: mem}
}

func (handler) Prefix() string { return Prefix }

func (h handler) HandleRequest(ctx context.Context, method string, payload busproto.Payload, reply busproto.ReplyChan) {
	switch method {
	case "agents/sessions":
		h.listSessions(reply)
	case "agents/sessions/detail":
		h.sessionDetail(ctx, payload, reply)
	case "agents/sessions/memory":
		h.sessionMemory(ctx, payload, reply)
	case "agents/sessions/files":
		h.sessionFiles(ctx, payload, reply)
	case "agents":
		reply <- busproto.Reply{Err: busproto.NewAppError(busproto.CodeAppMax,
			"agents: chat-turn orchestration is not served by the core; wire an external collaborator")}
	default:
		reply <- busproto.Reply{Err: busproto.NewMethodNotFound(method)}
	}
}

type sessionSummary struct {
	ID         string   `json:"id"`
	CreatedAt  string   `json:"created_at,omitempty"`
	StoreTypes []string `json:"store_types"`
	LastAgent  string   `json:"last_agent,omitempty"`
}

func (h handler) listSessions(reply busproto.ReplyChan) {
	infos, err := h.mem.Sessions.ListSessions()
	if err != nil {
		reply <- busproto.Reply{Err: busproto.NewAppError(busproto.CodeAppMax, err.Error())}
		return
	}
	out := make([]sessionSummary, 0, len(infos))
	for _, info := range infos {
		out = append(out, sessionSummary{ID: info.ID, StoreTypes: info.StoreTypes, LastAgent: info.LastAgent})
	}
	respondJSON(reply, map[string]any{"sessions": out})
}

func sessionIDFromPayload(payload busproto.Payload) (string, bool) {
	q, ok := payload.(busproto.SessionQuery)
	if !ok || q.SessionID == "" {
		return "", false
	}
	return q.SessionID, true
}

func (h handler) sessionDetail(ctx context.Context, payload busproto.Payload, reply busproto.ReplyChan) {
	id, ok := sessionIDFromPayload(payload)
	if !ok {
		reply <- busproto.Reply{Err: busproto.NewBadRequest("agents/sessions/detail requires a SessionQuery payload with session_id")}
		return
	}
	handle, err := h.mem.Sessions.LoadSession(ctx, id, "")
	if err != nil {
		reply <- busproto.Reply{Err: busproto.NewAppError(busproto.CodeAppMax, err.Error())}
		return
	}
	entries, err := handle.TranscriptReadLast(0)
	if err != nil {
		reply <- busproto.Reply{Err: busproto.NewAppError(busproto.CodeAppMax, err.Error())}
		return
	}
	respondJSON(reply, map[string]any{"session_id": id, "transcript": entries})
}

func (h handler) sessionMemory(ctx context.Context, payload busproto.Payload, reply busproto.ReplyChan) {
	id, ok := sessionIDFromPayload(payload)
	if !ok {
		reply <- busproto.Reply{Err: busproto.NewBadRequest("agents/sessions/memory requires a SessionQuery payload with session_id")}
		return
	}
	handle, err := h.mem.Sessions.LoadSession(ctx, id, "")
	if err != nil {
		reply <- busproto.Reply{Err: busproto.NewAppError(busproto.CodeAppMax, err.Error())}
		return
	}
	doc, err := handle.WorkingMemoryDoc()
	if err != nil {
		reply <- busproto.Reply{Err: busproto.NewAppError(busproto.CodeAppMax, err.Error())}
		return
	}
	content := map[string]string{}
	for _, k := range doc.Keys() {
		v, _ := doc.Get(k)
		content[k] = v.String()
	}
	respondJSON(reply, map[string]any{"session_id": id, "content": content})
}

func (h handler) sessionFiles(ctx context.Context, payload busproto.Payload, reply busproto.ReplyChan) {
	id, ok := sessionIDFromPayload(payload)
	if !ok {
		reply <- busproto.Reply{Err: busproto.NewBadRequest("agents/sessions/files requires a SessionQuery payload with session_id")}
		return
	}
	handle, err := h.mem.Sessions.LoadSession(ctx, id, "")
	if err != nil {
		reply <- busproto.Reply{Err: busproto.NewAppError(busproto.CodeAppMax, err.Error())}
		return
	}
	files, err := listSessionFiles(handle.Dir())
	if err != nil {
		reply <- busproto.Reply{Err: busproto.NewAppError(busproto.CodeAppMax, err.Error())}
		return
	}
	respondJSON(reply, map[string]any{"session_id": id, "files": files})
}

func respondJSON(reply busproto.ReplyChan, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		reply <- busproto.Reply{Err: busproto.NewAppError(busproto.CodeAppMax, err.Error())}
		return
	}
	reply <- busproto.Reply{Payload: busproto.JSONResponse{Data: data}}
}
