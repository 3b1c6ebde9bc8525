package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/rahul/secagent/internal/agent"
	"github.com/rahul/secagent/internal/observability"
)

// HTTPGateway exposes the agent over a small JSON API:
//
//	GET  /        liveness banner
//	GET  /health  health check
//	GET  /status  current execution phase
//	POST /chat    {"chat_id": "...", "message": "..."} -> {"response": "..."}
type HTTPGateway struct {
	Addr   string
	Brain  agent.Brain
	server *http.Server
}

type chatRequest struct {
	ChatID  string `json:"chat_id"`
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func NewHTTPGateway(addr string, brain agent.Brain) *HTTPGateway {
	return &HTTPGateway{Addr: addr, Brain: brain}
}

func (g *HTTPGateway) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", g.handleRoot)
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/status", g.handleStatus)
	mux.HandleFunc("/chat", g.handleChat)

	g.server = &http.Server{
		Addr:              g.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("HTTP gateway listening on %s", g.Addr)
	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (g *HTTPGateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "SEC Agent is running!",
		"status":  "healthy",
	})
}

func (g *HTTPGateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (g *HTTPGateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	phase, query, heartbeat := observability.GetStatus()
	writeJSON(w, http.StatusOK, map[string]any{
		"phase":          string(phase),
		"active_query":   query,
		"last_heartbeat": heartbeat,
	})
}

func (g *HTTPGateway) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ChatID == "" {
		req.ChatID = "http"
	}

	response, err := g.Brain.Think(r.Context(), req.ChatID, req.Message)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: response})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// Send is a no-op for HTTP: it is a request/response transport with no
// push channel.
func (g *HTTPGateway) Send(chatID string, text string) error {
	return nil
}

func (g *HTTPGateway) Stop() error {
	if g.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.server.Shutdown(ctx)
}
