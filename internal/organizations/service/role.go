package service

import (
	"context"
	"errors"

	"gatherly/internal/access"
	orgerrors "gatherly/internal/organizations/errors"
	"gatherly/internal/organizations/repository"
	"gatherly/pkg/config"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/model"
	"gatherly/pkg/sanitizer"
	"gatherly/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type RoleService interface {
	List(ctx context.Context, userID, orgID string) ([]*model.Role, error)
	Create(ctx context.Context, userID, orgID string, role *model.Role) error
	Update(ctx context.Context, userID, orgID, roleID string, updates *model.RoleUpdate) (*model.Role, error)
	Delete(ctx context.Context, userID, orgID, roleID string) error
}

type roleService struct {
	repo     repository.RoleRepository
	orgs     repository.OrganizationRepository
	authz    *access.Authorizer
	validate *validator.Validate
	cfg      *config.Config
}

func NewRoleService(
	repo repository.RoleRepository,
	orgs repository.OrganizationRepository,
	authz *access.Authorizer,
	cfg *config.Config,
) RoleService {
	return &roleService{
		repo:     repo,
		orgs:     orgs,
		authz:    authz,
		validate: validation.New(cfg.Log),
		cfg:      cfg,
	}
}

func (s *roleService) List(ctx context.Context, userID, orgID string) ([]*model.Role, error) {
	if _, err := s.authz.Membership(ctx, orgID, userID); err != nil {
		return nil, err
	}

	roles, err := s.repo.FindByOrganization(ctx, orgID)
	if err != nil {
		s.cfg.Log.Error("Failed to list roles",
			"organization_id", orgID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve roles", err)
	}
	return roles, nil
}

func (s *roleService) Create(ctx context.Context, userID, orgID string, role *model.Role) error {
	if _, err := s.authz.RequireOrgPermission(ctx, orgID, userID, model.PermMembersManage); err != nil {
		return err
	}

	role.ID = ""
	role.OrganizationID = orgID
	role.System = false
	role.Name = sanitizer.NormalizeName(role.Name)
	role.Permissions = normalizePermissions(role.Permissions)

	if err := s.validateRole(role); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, role); err != nil {
		return s.mapError(err, "create", role)
	}

	s.cfg.Log.Info("Role created successfully",
		"id", role.ID,
		"organization_id", orgID,
		"name", role.Name,
	)
	return nil
}

func (s *roleService) Update(ctx context.Context, userID, orgID, roleID string, updates *model.RoleUpdate) (*model.Role, error) {
	if _, err := s.authz.RequireOrgPermission(ctx, orgID, userID, model.PermMembersManage); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByID(ctx, orgID, roleID)
	if err != nil {
		return nil, s.mapError(err, "find", &model.Role{ID: roleID})
	}
	if existing.System {
		return nil, apperrors.Conflict("System roles cannot be modified")
	}

	merged := *existing
	if updates.Name != nil {
		merged.Name = sanitizer.NormalizeName(*updates.Name)
	}
	if updates.Permissions != nil {
		merged.Permissions = normalizePermissions(*updates.Permissions)
	}

	if err := s.validateRole(&merged); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &merged); err != nil {
		return nil, s.mapError(err, "update", &merged)
	}

	s.cfg.Log.Info("Role updated successfully",
		"id", roleID,
		"organization_id", orgID,
	)
	return &merged, nil
}

// Delete removes a custom role that no member holds.
func (s *roleService) Delete(ctx context.Context, userID, orgID, roleID string) error {
	if _, err := s.authz.RequireOrgPermission(ctx, orgID, userID, model.PermMembersManage); err != nil {
		return err
	}

	existing, err := s.repo.FindByID(ctx, orgID, roleID)
	if err != nil {
		return s.mapError(err, "find", &model.Role{ID: roleID})
	}
	if existing.System {
		return apperrors.Conflict("System roles cannot be deleted")
	}

	inUse, err := s.orgs.CountMembersWithRole(ctx, orgID, roleID)
	if err != nil {
		return apperrors.Internal("Failed to check role usage", err)
	}
	if inUse > 0 {
		return apperrors.Conflict("Role is assigned to members").WithDetails(map[string]any{"members": inUse})
	}

	if err := s.repo.Delete(ctx, orgID, roleID); err != nil {
		return s.mapError(err, "delete", existing)
	}

	s.cfg.Log.Info("Role deleted successfully",
		"id", roleID,
		"organization_id", orgID,
	)
	return nil
}

func (s *roleService) validateRole(role *model.Role) error {
	if err := validation.Struct(s.validate, role); err != nil {
		s.cfg.Log.Warn("Role validation failed",
			"name", role.Name,
			"organization_id", role.OrganizationID,
			"error", err,
		)
		return validationFailed("Role", err)
	}
	return nil
}

func (s *roleService) mapError(err error, op string, role *model.Role) error {
	switch {
	case errors.Is(err, orgerrors.ErrRoleNotFound):
		return apperrors.NotFoundWithID("Role", role.ID)
	case errors.Is(err, orgerrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid role ID format")
	case errors.Is(err, orgerrors.ErrDuplicateRole):
		return apperrors.Conflict("A role with this name already exists")
	}
	s.cfg.Log.Error("Role repository failure",
		"operation", op,
		"id", role.ID,
		"error", err,
	)
	return apperrors.Internal("Failed to "+op+" role", err)
}

func normalizePermissions(perms []model.Permission) []model.Permission {
	seen := make(map[model.Permission]struct{}, len(perms))
	out := make([]model.Permission, 0, len(perms))
	for _, p := range perms {
		p = model.Permission(sanitizer.TrimAndNormalize(string(p)))
		if _, dup := seen[p]; dup || p == "" {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
