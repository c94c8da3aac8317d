package handler

import (
	"net/http"
	"strconv"

	"gatherly/internal/notifications/service"
	"gatherly/pkg/auth"
	apperrors "gatherly/pkg/errors"
	httputil "gatherly/pkg/http"
	"gatherly/pkg/logger"
	"gatherly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type NotificationHandler struct {
	service service.NotificationService
	log     *logger.Logger
}

func NewNotificationHandler(service service.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		log:     log,
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	filter := model.NotificationFilter{Limit: limit, Offset: offset}
	if s := r.URL.Query().Get("unread"); s != "" {
		unread, err := strconv.ParseBool(s)
		if err != nil {
			h.writeError(w, "List", apperrors.InvalidInput("invalid unread parameter: "+s))
			return
		}
		filter.UnreadOnly = unread
	}

	notifications, totalCount, err := h.service.List(r.Context(), user.ID, filter)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, notifications, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "MarkRead", err)
		return
	}

	n, err := h.service.MarkRead(r.Context(), user.ID, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "MarkRead", err)
		return
	}

	if err := httputil.WriteSuccess(w, n); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkRead", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "MarkAllRead", err)
		return
	}

	updated, err := h.service.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, "MarkAllRead", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]int64{"updated": updated}); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkAllRead", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *NotificationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *NotificationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/notifications", h.List)
	router.POST("/api/v1/notifications/read-all", h.MarkAllRead)
	router.POST("/api/v1/notifications/id/:id/read", h.MarkRead)
	router.DELETE("/api/v1/notifications/id/:id", h.Delete)
}
