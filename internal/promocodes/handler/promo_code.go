package handler

import (
	"net/http"

	"gatherly/internal/promocodes/service"
	"gatherly/pkg/auth"
	httputil "gatherly/pkg/http"
	"gatherly/pkg/logger"
	"gatherly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type PromoCodeHandler struct {
	service service.PromoCodeService
	log     *logger.Logger
}

func NewPromoCodeHandler(service service.PromoCodeService, log *logger.Logger) *PromoCodeHandler {
	return &PromoCodeHandler{
		service: service,
		log:     log,
	}
}

func (h *PromoCodeHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var req model.PromoCodeCreate
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	p, err := h.service.Create(r.Context(), user.ID, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, p); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *PromoCodeHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	codes, err := h.service.List(r.Context(), user.ID, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, codes); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PromoCodeHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	p, err := h.service.Get(r.Context(), user.ID, ps.ByName("id"), ps.ByName("promoCodeId"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, p); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PromoCodeHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var updates model.PromoCodeUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	p, err := h.service.Update(r.Context(), user.ID, ps.ByName("id"), ps.ByName("promoCodeId"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, p); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PromoCodeHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, ps.ByName("id"), ps.ByName("promoCodeId")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *PromoCodeHandler) Redeem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "Redeem", err)
		return
	}

	var req model.RedemptionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Redeem", err)
		return
	}

	result, err := h.service.Redeem(r.Context(), user.ID, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Redeem", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Redeem", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PromoCodeHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *PromoCodeHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/events/:id/promo-codes", h.List)
	router.POST("/api/v1/events/:id/promo-codes", h.Create)
	router.GET("/api/v1/events/:id/promo-codes/:promoCodeId", h.GetByID)
	router.PATCH("/api/v1/events/:id/promo-codes/:promoCodeId", h.Update)
	router.DELETE("/api/v1/events/:id/promo-codes/:promoCodeId", h.Delete)
	router.POST("/api/v1/events/:id/promo-code-redemptions", h.Redeem)
}
