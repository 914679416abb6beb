// Package httpapi is the thin net/http shim translating the external HTTP
// surface into bus calls and back. Four routes with no middleware needs
// do not warrant a routing framework, so this stays on the standard
// library's ServeMux.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/xcorat/araliya/internal/bus"
	"github.com/xcorat/araliya/internal/busproto"
)

// Server serves the inbound HTTP surface by delegating every call to the
// bus handle it was built with.
type Server struct {
	bus bus.Handle
	mux *http.ServeMux
}

// New builds an httpapi.Server wired to h.
func New(h bus.Handle) *Server {
	s := &Server{bus: h, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/sessions", s.handleSessions)
	s.mux.HandleFunc("GET /api/session/{id}", s.handleSessionDetail)
	s.mux.HandleFunc("GET /api/message", s.handleMessage)
	s.mux.HandleFunc("POST /api/message", s.handleMessage)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.forwardJSON(w, r, "manage/http/get", busproto.Empty{})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	s.forwardJSON(w, r, "agents/sessions", busproto.Empty{})
}

func (s *Server) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.forwardJSON(w, r, "agents/sessions/detail", busproto.SessionQuery{SessionID: id})
}

type messageRequest struct {
	ChannelID string  `json:"channel_id"`
	Content   string  `json:"content"`
	SessionID *string `json:"session_id,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	switch r.Method {
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	case http.MethodGet:
		q := r.URL.Query()
		req.ChannelID = q.Get("channel_id")
		req.Content = q.Get("content")
		if sid := q.Get("session_id"); sid != "" {
			req.SessionID = &sid
		}
	}

	s.forwardJSON(w, r, "agents", busproto.CommsMessage{
		ChannelID: req.ChannelID,
		Content:   req.Content,
		SessionID: req.SessionID,
	})
}

func (s *Server) forwardJSON(w http.ResponseWriter, r *http.Request, method string, payload busproto.Payload) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	reply, busErr, callErr := s.bus.Request(ctx, method, payload)
	if callErr != nil {
		http.Error(w, callErr.Error(), http.StatusServiceUnavailable)
		return
	}
	if busErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusForBusError(busErr))
		_ = json.NewEncoder(w).Encode(map[string]any{"code": busErr.Code, "message": busErr.Message})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch p := reply.(type) {
	case busproto.JSONResponse:
		w.Write(p.Data)
	default:
		_ = json.NewEncoder(w).Encode(p)
	}
}

func statusForBusError(err *busproto.Error) int {
	switch err.Code {
	case busproto.CodeMethodNotFound:
		return http.StatusNotFound
	case busproto.CodeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
