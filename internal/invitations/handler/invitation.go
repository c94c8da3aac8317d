package handler

import (
	"net/http"
	"strings"

	"gatherly/internal/invitations/service"
	"gatherly/pkg/auth"
	apperrors "gatherly/pkg/errors"
	httputil "gatherly/pkg/http"
	"gatherly/pkg/logger"
	"gatherly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type InvitationHandler struct {
	service service.InvitationService
	log     *logger.Logger
}

func NewInvitationHandler(service service.InvitationService, log *logger.Logger) *InvitationHandler {
	return &InvitationHandler{
		service: service,
		log:     log,
	}
}

func (h *InvitationHandler) Invite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "Invite", err)
		return
	}

	var req model.InviteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Invite", err)
		return
	}

	issued, err := h.service.Invite(r.Context(), user.ID, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Invite", err)
		return
	}

	if err := httputil.WriteCreated(w, issued); err != nil {
		h.log.Error("failed to write created response", "handler", "Invite", "operation", "WriteCreated", "error", err)
	}
}

func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	invitations, err := h.service.List(r.Context(), user.ID, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, invitations); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *InvitationHandler) Revoke(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "Revoke", err)
		return
	}

	if err := h.service.Revoke(r.Context(), user.ID, ps.ByName("id"), ps.ByName("invitationId")); err != nil {
		h.writeError(w, "Revoke", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "Accept", err)
		return
	}

	var req model.AcceptInvitationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Accept", err)
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		h.writeError(w, "Accept", apperrors.InvalidInput("token is required"))
		return
	}

	inv, err := h.service.Accept(r.Context(), user.ID, user.Email, token)
	if err != nil {
		h.writeError(w, "Accept", err)
		return
	}

	if err := httputil.WriteSuccess(w, inv); err != nil {
		h.log.Error("failed to write success response", "handler", "Accept", "operation", "WriteSuccess", "error", err)
	}
}

func (h *InvitationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *InvitationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/organizations/:id/invitations", h.Invite)
	router.GET("/api/v1/organizations/:id/invitations", h.List)
	router.DELETE("/api/v1/organizations/:id/invitations/:invitationId", h.Revoke)
	router.POST("/api/v1/invitations/accept", h.Accept)
}
