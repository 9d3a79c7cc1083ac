package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/banterhq/banter/internal/service"
	"github.com/banterhq/banter/internal/transport/http/middleware"
	"github.com/banterhq/banter/pkg/validator"
)

type ChatHandler struct {
	chatService    *service.ChatService
	messageService *service.MessageService
	log            *zap.SugaredLogger
}

func NewChatHandler(chatService *service.ChatService, messageService *service.MessageService, log *zap.SugaredLogger) *ChatHandler {
	return &ChatHandler{chatService: chatService, messageService: messageService, log: log}
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := h.chatService.List(r.Context(), userID, page, limit)
	if err != nil {
		h.log.Errorw("listing chats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	chatID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	chat, err := h.chatService.Get(r.Context(), userID, chatID)
	if err != nil {
		h.writeChatError(w, err, "fetching chat failed")
		return
	}

	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) CreateDirect(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var input struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	chat, err := h.chatService.FindOrCreateDirect(r.Context(), userID, input.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCannotChatSelf):
			writeError(w, http.StatusBadRequest, "INVALID_TARGET", err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		default:
			h.log.Errorw("creating direct chat failed", "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var input service.CreateGroupInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	if errs := validator.ValidateGroup(input.Name, len(input.ParticipantIDs)); errs.Any() {
		writeValidationErrors(w, errs)
		return
	}

	chat, err := h.chatService.CreateGroup(r.Context(), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownParticipant):
			writeError(w, http.StatusBadRequest, "UNKNOWN_PARTICIPANT", err.Error())
		default:
			h.log.Errorw("creating group failed", "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, chat)
}

func (h *ChatHandler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	chatID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	chat, _, err := h.chatService.JoinGroup(r.Context(), userID, chatID)
	if err != nil {
		h.writeChatError(w, err, "joining group failed")
		return
	}

	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	chatID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.chatService.LeaveGroup(r.Context(), userID, chatID); err != nil {
		h.writeChatError(w, err, "leaving group failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ChatHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	chatID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.messageService.MarkAllRead(r.Context(), userID, chatID); err != nil {
		h.writeChatError(w, err, "marking chat read failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Non-participants get the same 404 as a missing chat so chat ids leak
// nothing about membership.
func (h *ChatHandler) writeChatError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrChatNotFound), errors.Is(err, service.ErrNotParticipant):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "chat not found")
	case errors.Is(err, service.ErrNotGroup):
		writeError(w, http.StatusBadRequest, "NOT_GROUP", err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		h.log.Errorw(logMsg, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "something went wrong")
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid id in path")
		return uuid.Nil, false
	}
	return id, true
}
