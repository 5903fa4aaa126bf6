package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"buiq-backend/internal/middleware"
	"buiq-backend/internal/models"
	"buiq-backend/internal/services"
)

// maxMessageBytes bounds the request body of a send.
const maxMessageBytes = 32 * 1024

type sessionTokens interface {
	GenerateSessionToken(sessionID uuid.UUID) (string, time.Time, error)
}

type ChatHandler struct {
	sessions *services.SessionManager
	tokens   sessionTokens
	logger   *zap.Logger
}

func NewChatHandler(sessions *services.SessionManager, tokens sessionTokens, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		sessions: sessions,
		tokens:   tokens,
		logger:   logger,
	}
}

// CreateSession opens a conversation and returns the token that addresses it.
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Create()

	token, expiresAt, err := h.tokens.GenerateSessionToken(sess.ID)
	if err != nil {
		h.sessions.End(sess.ID)
		h.logger.Error("failed to issue session token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Could not open a session", r))
		return
	}

	writeJSON(w, http.StatusCreated, models.SessionResponse{
		SessionID: sess.ID,
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
	})
}

// EndSession destroys the conversation.
func (h *ChatHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(middleware.GetSessionID(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMessages returns the conversation in display order.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, models.MessagesResponse{
		Messages: h.sessions.PresentAll(sess.Store().Messages()),
		Busy:     sess.Generator.Busy(),
	})
}

// SendMessage runs one round trip and returns both messages once the reply is stored.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	exchange, err := sess.Generator.Generate(r.Context(), req.Text)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SendMessageResponse{User: exchange.User, Bot: exchange.Bot})
}

// Status drives the busy/online indicator.
func (h *ChatHandler) Status(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, models.StatusResponse{
		Busy:         sess.Generator.Busy(),
		Online:       true,
		MessageCount: sess.Store().Len(),
	})
}

func (h *ChatHandler) session(w http.ResponseWriter, r *http.Request) (*services.Session, bool) {
	sess, err := h.sessions.Get(middleware.GetSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return nil, false
	}
	return sess, true
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyInput):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"text": "Message is required"}, r))
	case errors.Is(err, services.ErrBusy):
		writeJSON(w, http.StatusConflict, errorResp("BUSY", "A reply is still being generated", r))
	case errors.Is(err, services.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResp("SESSION_NOT_FOUND", "Session not found or expired", r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
