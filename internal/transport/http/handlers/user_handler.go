package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/banterhq/banter/internal/service"
	"github.com/banterhq/banter/internal/transport/http/middleware"
)

type UserHandler struct {
	userService *service.UserService
	log         *zap.SugaredLogger
}

func NewUserHandler(userService *service.UserService, log *zap.SugaredLogger) *UserHandler {
	return &UserHandler{userService: userService, log: log}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	users, err := h.userService.List(r.Context(), userID)
	if err != nil {
		h.log.Errorw("listing users failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "MISSING_QUERY", "query parameter q is required")
		return
	}

	users, err := h.userService.Search(r.Context(), userID, query)
	if err != nil {
		h.log.Errorw("searching users failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, users)
}
