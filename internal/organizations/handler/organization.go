package handler

import (
	"net/http"

	"gatherly/internal/organizations/service"
	"gatherly/pkg/auth"
	httputil "gatherly/pkg/http"
	"gatherly/pkg/logger"
	"gatherly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type OrganizationHandler struct {
	orgs    service.OrganizationService
	roles   service.RoleService
	members service.MemberService
	log     *logger.Logger
}

func NewOrganizationHandler(
	orgs service.OrganizationService,
	roles service.RoleService,
	members service.MemberService,
	log *logger.Logger,
) *OrganizationHandler {
	return &OrganizationHandler{
		orgs:    orgs,
		roles:   roles,
		members: members,
		log:     log,
	}
}

func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var req model.OrganizationCreate
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	org, err := h.orgs.Create(r.Context(), user.ID, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, org); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	orgs, err := h.orgs.ListForUser(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, orgs); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *OrganizationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	org, err := h.orgs.Get(r.Context(), user.ID, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, org); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var updates model.OrganizationUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	org, err := h.orgs.Update(r.Context(), user.ID, ps.ByName("id"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, org); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *OrganizationHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.orgs.Delete(r.Context(), user.ID, ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *OrganizationHandler) ListRoles(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "ListRoles", err)
		return
	}

	roles, err := h.roles.List(r.Context(), user.ID, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "ListRoles", err)
		return
	}

	if err := httputil.WriteSuccess(w, roles); err != nil {
		h.log.Error("failed to write success response", "handler", "ListRoles", "operation", "WriteSuccess", "error", err)
	}
}

func (h *OrganizationHandler) CreateRole(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "CreateRole", err)
		return
	}

	var role model.Role
	if err := httputil.DecodeJSON(r, &role); err != nil {
		h.writeError(w, "CreateRole", err)
		return
	}

	if err := h.roles.Create(r.Context(), user.ID, ps.ByName("id"), &role); err != nil {
		h.writeError(w, "CreateRole", err)
		return
	}

	if err := httputil.WriteCreated(w, role); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateRole", "operation", "WriteCreated", "error", err)
	}
}

func (h *OrganizationHandler) UpdateRole(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "UpdateRole", err)
		return
	}

	var updates model.RoleUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		h.writeError(w, "UpdateRole", err)
		return
	}

	role, err := h.roles.Update(r.Context(), user.ID, ps.ByName("id"), ps.ByName("roleId"), &updates)
	if err != nil {
		h.writeError(w, "UpdateRole", err)
		return
	}

	if err := httputil.WriteSuccess(w, role); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateRole", "operation", "WriteSuccess", "error", err)
	}
}

func (h *OrganizationHandler) DeleteRole(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "DeleteRole", err)
		return
	}

	if err := h.roles.Delete(r.Context(), user.ID, ps.ByName("id"), ps.ByName("roleId")); err != nil {
		h.writeError(w, "DeleteRole", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *OrganizationHandler) ListMembers(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "ListMembers", err)
		return
	}

	members, err := h.members.List(r.Context(), user.ID, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "ListMembers", err)
		return
	}

	if err := httputil.WriteSuccess(w, members); err != nil {
		h.log.Error("failed to write success response", "handler", "ListMembers", "operation", "WriteSuccess", "error", err)
	}
}

func (h *OrganizationHandler) UpdateMember(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "UpdateMember", err)
		return
	}

	var updates model.MemberUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		h.writeError(w, "UpdateMember", err)
		return
	}

	member, err := h.members.Update(r.Context(), user.ID, ps.ByName("id"), ps.ByName("memberId"), &updates)
	if err != nil {
		h.writeError(w, "UpdateMember", err)
		return
	}

	if err := httputil.WriteSuccess(w, member); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateMember", "operation", "WriteSuccess", "error", err)
	}
}

func (h *OrganizationHandler) RemoveMember(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := auth.RequireUser(r)
	if err != nil {
		h.writeError(w, "RemoveMember", err)
		return
	}

	if err := h.members.Remove(r.Context(), user.ID, ps.ByName("id"), ps.ByName("memberId")); err != nil {
		h.writeError(w, "RemoveMember", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *OrganizationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *OrganizationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/organizations", h.Create)
	router.GET("/api/v1/organizations", h.List)
	router.GET("/api/v1/organizations/:id", h.GetByID)
	router.PATCH("/api/v1/organizations/:id", h.Update)
	router.DELETE("/api/v1/organizations/:id", h.Delete)

	router.GET("/api/v1/organizations/:id/roles", h.ListRoles)
	router.POST("/api/v1/organizations/:id/roles", h.CreateRole)
	router.PATCH("/api/v1/organizations/:id/roles/:roleId", h.UpdateRole)
	router.DELETE("/api/v1/organizations/:id/roles/:roleId", h.DeleteRole)

	router.GET("/api/v1/organizations/:id/members", h.ListMembers)
	router.PATCH("/api/v1/organizations/:id/members/:memberId", h.UpdateMember)
	router.DELETE("/api/v1/organizations/:id/members/:memberId", h.RemoveMember)
}
