package handler

import (
	"net/http"

	"gatherly/internal/dashboard/service"
	"gatherly/pkg/auth"
	httputil "gatherly/pkg/http"
	"gatherly/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type DashboardHandler struct {
	service service.DashboardService
	log     *logger.Logger
}

func NewDashboardHandler(service service.DashboardService, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		log:     log,
	}
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	d, err := h.service.Get(r.Context(), user.ID, ps.ByName("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, d); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
	}
}

func (h *DashboardHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", "Get", "operation", "WriteError", "error", writeErr)
	}
}

func (h *DashboardHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/events/:id/dashboard", h.Get)
}
