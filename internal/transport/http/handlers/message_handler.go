package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/banterhq/banter/internal/service"
	"github.com/banterhq/banter/internal/transport/http/middleware"
)

type MessageHandler struct {
	messageService *service.MessageService
	log            *zap.SugaredLogger
}

func NewMessageHandler(messageService *service.MessageService, log *zap.SugaredLogger) *MessageHandler {
	return &MessageHandler{messageService: messageService, log: log}
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	chatID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := h.messageService.List(r.Context(), userID, chatID, page, limit)
	if err != nil {
		h.writeMessageError(w, err, "listing messages failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	chatID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var input service.SendMessageInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	msg, err := h.messageService.Send(r.Context(), userID, chatID, input)
	if err != nil {
		h.writeMessageError(w, err, "sending message failed")
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) writeMessageError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrChatNotFound), errors.Is(err, service.ErrNotParticipant):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "chat not found")
	case errors.Is(err, service.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "message not found")
	case errors.Is(err, service.ErrEmptyContent), errors.Is(err, service.ErrContentTooLong), errors.Is(err, service.ErrInvalidKind):
		writeError(w, http.StatusBadRequest, "INVALID_MESSAGE", err.Error())
	case errors.Is(err, service.ErrNotMessageSender), errors.Is(err, service.ErrNotAllowed):
		writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	default:
		h.log.Errorw(logMsg, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "something went wrong")
	}
}
