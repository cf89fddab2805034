package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/citeline/citeline/internal/api"
	"github.com/citeline/citeline/internal/domain"
)

type ChatEngine interface {
	Answer(ctx context.Context, session *domain.Session, userMessage string, rag bool) (string, error)
}

type SessionStore interface {
	Get(id string) *domain.Session
}

type ChatHandler struct {
	engine   ChatEngine
	sessions SessionStore
}

func NewChatHandler(engine ChatEngine, sessions SessionStore) *ChatHandler {
	return &ChatHandler{engine: engine, sessions: sessions}
}

type ChatRequest struct {
	Message   string `json:"message"`
	RAG       bool   `json:"rag"`
	SessionID string `json:"session_id"`
}

type ChatResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// Post runs one conversation turn. An omitted session_id starts a fresh
// session; the generated ID comes back in the response for the next turn.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	session := h.sessions.Get(req.SessionID)

	answer, err := h.engine.Answer(r.Context(), session, req.Message, req.RAG)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, ChatResponse{
		Message:   answer,
		SessionID: session.ID(),
	})
}
