package handler

import (
	"context"
	"net/http"

	"gatherly/internal/guests/service"
	"gatherly/pkg/auth"
	httputil "gatherly/pkg/http"
	"gatherly/pkg/logger"
	"gatherly/pkg/middleware"
	"gatherly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type GuestHandler struct {
	service       service.GuestService
	webhookSecret string
	log           *logger.Logger
}

func NewGuestHandler(service service.GuestService, webhookSecret string, log *logger.Logger) *GuestHandler {
	return &GuestHandler{
		service:       service,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

func (h *GuestHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var g model.Guest
	if err := httputil.DecodeJSON(r, &g); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Add(r.Context(), user.ID, ps.ByName("id"), &g); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, g); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *GuestHandler) Import(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "Import", err)
		return
	}

	var req model.GuestImport
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Import", err)
		return
	}

	result, err := h.service.Import(r.Context(), user.ID, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Import", err)
		return
	}

	if err := httputil.WriteCreated(w, result); err != nil {
		h.log.Error("failed to write created response", "handler", "Import", "operation", "WriteCreated", "error", err)
	}
}

// List serves the guest-management view: search, filters, sort and
// page-numbered results.
func (h *GuestHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	page, pageSize, err := httputil.ExtractPage(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	query := r.URL.Query()
	q := model.GuestQuery{
		Search:     query.Get("search"),
		Status:     model.CheckInStatus(query.Get("status")),
		TicketType: query.Get("ticket_type"),
		Source:     model.GuestSource(query.Get("source")),
		Sort:       query.Get("sort"),
		Page:       page,
		PageSize:   pageSize,
	}

	guests, total, err := h.service.List(r.Context(), user.ID, ps.ByName("id"), q)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePage(w, guests, httputil.NewPageMeta(page, pageSize, total)); err != nil {
		h.log.Error("failed to write page response", "handler", "List", "operation", "WritePage", "error", err)
	}
}

func (h *GuestHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	g, err := h.service.Get(r.Context(), user.ID, ps.ByName("id"), ps.ByName("guestId"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, g); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *GuestHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var updates model.GuestUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	g, err := h.service.Update(r.Context(), user.ID, ps.ByName("id"), ps.ByName("guestId"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, g); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *GuestHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, ps.ByName("id"), ps.ByName("guestId")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *GuestHandler) CheckIn(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.setCheckIn(w, r, ps, "CheckIn", h.service.CheckIn)
}

func (h *GuestHandler) CheckOut(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.setCheckIn(w, r, ps, "CheckOut", h.service.CheckOut)
}

func (h *GuestHandler) setCheckIn(
	w http.ResponseWriter,
	r *http.Request,
	ps httprouter.Params,
	name string,
	op func(ctx context.Context, userID, eventID, id string) (*model.Guest, error),
) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	g, err := op(r.Context(), user.ID, ps.ByName("id"), ps.ByName("guestId"))
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if err := httputil.WriteSuccess(w, g); err != nil {
		h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
	}
}

// RecordOrder receives paid orders from the ticketing provider. It runs
// behind signature verification instead of a session.
func (h *GuestHandler) RecordOrder(w http.ResponseWriter, r *http.Request) {
	var order model.OrderWebhook
	if err := httputil.DecodeJSON(r, &order); err != nil {
		h.writeError(w, "RecordOrder", err)
		return
	}

	result, err := h.service.RecordOrder(r.Context(), &order)
	if err != nil {
		h.writeError(w, "RecordOrder", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "RecordOrder", "operation", "WriteSuccess", "error", err)
	}
}

func (h *GuestHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *GuestHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/events/:id/guests", h.List)
	router.POST("/api/v1/events/:id/guests", h.Create)
	router.POST("/api/v1/events/:id/guest-imports", h.Import)
	router.GET("/api/v1/events/:id/guests/:guestId", h.GetByID)
	router.PATCH("/api/v1/events/:id/guests/:guestId", h.Update)
	router.DELETE("/api/v1/events/:id/guests/:guestId", h.Delete)
	router.POST("/api/v1/events/:id/guests/:guestId/check-in", h.CheckIn)
	router.POST("/api/v1/events/:id/guests/:guestId/check-out", h.CheckOut)

	router.Handler(http.MethodPost, "/api/v1/webhooks/orders",
		middleware.SignatureVerification(h.webhookSecret, h.log)(http.HandlerFunc(h.RecordOrder)))
}
