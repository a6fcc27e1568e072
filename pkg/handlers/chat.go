package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/assistant"
	"github.com/imuii-id/imuii-portal/pkg/auth"
	"github.com/imuii-id/imuii-portal/pkg/services"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the assistant's reply together with the session it belongs to.
type ChatResponse struct {
	*assistant.Reply
	SessionID string `json:"session_id"`
}

// ChatHandler serves the project-finder chatbot.
type ChatHandler struct {
	chat     *services.ChatService
	sessions *auth.SessionStore
	respond  *Responder
	logger   *zap.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *services.ChatService, sessions *auth.SessionStore, respond *Responder, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, sessions: sessions, respond: respond, logger: logger}
}

// RegisterRoutes registers the chat handler's routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.Send)
	mux.HandleFunc("POST /api/chat/reset", h.Reset)
}

// Send handles POST /api/chat
// The chat session and visitor ids live in the signed session cookie and are
// created on first use.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		h.respond.Fail(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	id, err := h.sessions.ChatIdentity(w, r)
	if err != nil {
		h.logger.Error("Failed to open chat session", zap.Error(err))
		h.respond.Fail(w, http.StatusInternalServerError, "session_error", "Failed to start chat session")
		return
	}

	reply, err := h.chat.Send(r.Context(), id.VisitorID, id.SessionID, req.Message)
	if err != nil {
		h.respond.Error(w, r, err, "chat")
		return
	}
	h.respond.JSON(w, http.StatusOK, ChatResponse{Reply: reply, SessionID: id.SessionID})
}

// Reset handles POST /api/chat/reset
// Starts a new conversation on the next message. The throttle is untouched.
func (h *ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if sessionID := h.sessions.CurrentChatSessionID(r); sessionID != "" {
		h.logger.Debug("Resetting chat session", zap.String("session_id", sessionID))
	}
	if err := h.sessions.ResetChatSession(w, r); err != nil {
		h.logger.Error("Failed to reset chat session", zap.Error(err))
		h.respond.Fail(w, http.StatusInternalServerError, "session_error", "Failed to reset chat session")
		return
	}
	h.respond.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
