package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/vanishchat/vanish/internal/service"
	"github.com/vanishchat/vanish/internal/transport/http/middleware"
	"github.com/vanishchat/vanish/pkg/validator"
	"go.uber.org/zap"
)

// MessageHandler is the request/response fallback around the delivery
// router, for clients without a live connection.
type MessageHandler struct {
	delivery *service.DeliveryService
	log      *zap.Logger

	revealBlockReason bool
}

func NewMessageHandler(delivery *service.DeliveryService, revealBlockReason bool, log *zap.Logger) *MessageHandler {
	return &MessageHandler{delivery: delivery, revealBlockReason: revealBlockReason, log: log}
}

// History returns the live messages of a conversation, oldest first.
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID := r.PathValue("chatId")

	messages, err := h.delivery.History(r.Context(), userID, conversationID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationMismatch):
			writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		case errors.Is(err, service.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a participant of this conversation")
		default:
			h.log.Error("history failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// Send runs the same delivery pipeline as the real-time path; the caller
// gets the persisted message back instead of a message:sent event.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.SendInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	msg, err := h.delivery.Send(r.Context(), userID, input, nil)
	if err != nil {
		var verrs validator.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			writeValidationErrors(w, verrs)
		case errors.Is(err, service.ErrBlocked):
			if h.revealBlockReason {
				writeError(w, http.StatusForbidden, "POLICY_DENIED", "You cannot send messages to this user: they have blocked you")
			} else {
				writeError(w, http.StatusForbidden, "POLICY_DENIED", "You cannot send messages to this user")
			}
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Recipient not found")
		case errors.Is(err, service.ErrCannotMessageSelf):
			writeError(w, http.StatusBadRequest, "INVALID_RECIPIENT", "Cannot message yourself")
		case errors.Is(err, service.ErrConversationMismatch):
			writeError(w, http.StatusBadRequest, "CONVERSATION_MISMATCH", "Conversation id does not match the recipient")
		default:
			h.log.Error("send message failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// Cleanup triggers an immediate expiry sweep. Administrative.
func (h *MessageHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.delivery.Cleanup(r.Context())
	if err != nil {
		h.log.Error("cleanup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Cleanup completed",
		"deleted_count": deleted,
	})
}
