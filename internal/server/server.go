// Package server exposes the promptd HTTP API: session start/end, message
// routing with buffered or streamed responses, and thread inspection
// endpoints.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"promptd/internal/logger"
	"promptd/internal/router"
	"promptd/internal/session"
)

// StartRequest is the JSON request body for POST /api/start.
// IsPromptAssistant is tri-state: absent adds no mode instruction, false
// selects the task-decomposition instruction, true the prompt-generator one.
type StartRequest struct {
	ThreadID          string `json:"thread_id"`
	IsPromptAssistant *bool  `json:"is_prompt_assistant,omitempty"`
	ModelKey          string `json:"model_key,omitempty"`
}

// MessageRequest is the JSON request body for POST /api/message.
type MessageRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

// EndRequest is the JSON request body for POST /api/end.
type EndRequest struct {
	ThreadID string `json:"thread_id"`
}

// HistoryMessage is one entry of the thread-history response.
type HistoryMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ThreadHistoryResponse is the JSON response for GET /api/thread/{id}/history.
type ThreadHistoryResponse struct {
	ThreadID string           `json:"thread_id"`
	Messages []HistoryMessage `json:"messages"`
}

// ListThreadsResponse is the JSON response for GET /api/threads.
type ListThreadsResponse struct {
	ActiveThreads []string `json:"active_threads"`
}

// Server wires the session manager and message router to the HTTP transport.
type Server struct {
	sessions *session.Manager
	router   *router.Router
	httpSrv  *http.Server
}

// New creates the promptd HTTP server listening on addr.
func New(addr string, sessions *session.Manager, msgRouter *router.Router) *Server {
	s := &Server{
		sessions: sessions,
		router:   msgRouter,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/start", s.handleStart)
	mux.HandleFunc("POST /api/message", s.handleMessage)
	mux.HandleFunc("POST /api/end", s.handleEnd)
	mux.HandleFunc("GET /api/thread/{id}/history", s.handleThreadHistory)
	mux.HandleFunc("GET /api/threads", s.handleListThreads)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: withCORS(mux),
	}
	return s
}

// Handler returns the server's root handler (for tests).
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe serves until Shutdown is called or the listener fails.
func (s *Server) ListenAndServe() error {
	logger.Info("HTTP server listening", "addr", s.httpSrv.Addr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server, then clears every active thread.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpSrv.Shutdown(ctx)
	s.sessions.ClearAll()
	logger.Info("All threads cleared and server stopped")
	return err
}

// handleStart handles POST /api/start: it (re)initializes the thread's
// session. An unresolvable provider is a hard failure surfaced to the caller.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ThreadID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "thread_id is required"})
		return
	}

	if err := s.sessions.Start(req.ThreadID, req.IsPromptAssistant, req.ModelKey); err != nil {
		logger.Error("Failed to start thread", "thread_id", req.ThreadID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "thread_id": req.ThreadID})
}

// handleMessage handles POST /api/message. Buffered replies are returned as a
// single JSON object; streaming replies are written fragment by fragment as an
// event-stream body, flushed after every fragment.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reply := s.router.Route(req.ThreadID, req.Message)
	if reply.Stream == nil {
		writeJSON(w, http.StatusOK, reply.Payload)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	for fragment := range reply.Stream {
		if _, err := w.Write([]byte(fragment)); err != nil {
			// Consumer went away; drain the producer so it can finish.
			for range reply.Stream {
			}
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}

// handleEnd handles POST /api/end. Ending an absent thread is not an error.
func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req EndRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s.sessions.End(req.ThreadID)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleThreadHistory handles GET /api/thread/{id}/history.
func (s *Server) handleThreadHistory(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("id")

	messages, ok := s.sessions.History(threadID)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"error": "Thread not found"})
		return
	}

	resp := ThreadHistoryResponse{
		ThreadID: threadID,
		Messages: make([]HistoryMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		resp.Messages = append(resp.Messages, HistoryMessage{Type: msg.Role, Content: msg.Content})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListThreads handles GET /api/threads.
func (s *Server) handleListThreads(w http.ResponseWriter, _ *http.Request) {
	ids := s.sessions.ActiveThreads()
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ListThreadsResponse{ActiveThreads: ids})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withCORS applies a permissive CORS policy to every route and answers
// preflight requests directly.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decodeJSON decodes the request body into v, replying 400 on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}
