package service

import (
	"context"
	"errors"
	"fmt"

	"gatherly/internal/access"
	orgerrors "gatherly/internal/organizations/errors"
	"gatherly/internal/organizations/repository"
	"gatherly/pkg/config"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/model"
	"gatherly/pkg/sanitizer"
	"gatherly/pkg/validation"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

// Dependent owns data tied to an organization and is purged with it.
type Dependent interface {
	PurgeOrganization(ctx context.Context, orgID string) error
}

type OrganizationService interface {
	Create(ctx context.Context, userID string, req *model.OrganizationCreate) (*model.Organization, error)
	ListForUser(ctx context.Context, userID string) ([]*model.Organization, error)
	Get(ctx context.Context, userID, id string) (*model.Organization, error)
	Update(ctx context.Context, userID, id string, updates *model.OrganizationUpdate) (*model.Organization, error)
	Delete(ctx context.Context, userID, id string) error
}

type organizationService struct {
	repo       repository.OrganizationRepository
	roles      repository.RoleRepository
	authz      *access.Authorizer
	dependents []Dependent
	validate   *validator.Validate
	cfg        *config.Config
}

func NewOrganizationService(
	repo repository.OrganizationRepository,
	roles repository.RoleRepository,
	authz *access.Authorizer,
	cfg *config.Config,
	dependents ...Dependent,
) OrganizationService {
	return &organizationService{
		repo:       repo,
		roles:      roles,
		authz:      authz,
		dependents: dependents,
		validate:   validation.New(cfg.Log),
		cfg:        cfg,
	}
}

// Create stores the organization, seeds the system roles and seats the
// creator as admin, all in one transaction.
func (s *organizationService) Create(ctx context.Context, userID string, req *model.OrganizationCreate) (*model.Organization, error) {
	name := sanitizer.NormalizeName(req.Name)
	org := &model.Organization{
		Name:    name,
		Slug:    sanitizer.Slugify(name),
		OwnerID: userID,
		Members: []model.Member{},
	}

	if err := validation.Struct(s.validate, org); err != nil {
		s.cfg.Log.Warn("Organization validation failed",
			"name", org.Name,
			"error", err,
		)
		return nil, validationFailed("Organization", err)
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Create(sessCtx, org); err != nil {
			return err
		}

		var adminRoleID string
		for _, sr := range model.SystemRoles {
			role := &model.Role{
				OrganizationID: org.ID,
				Name:           sr.Name,
				Permissions:    sr.Permissions,
				System:         true,
			}
			if err := s.roles.Create(sessCtx, role); err != nil {
				return fmt.Errorf("failed to seed role %s: %w", sr.Name, err)
			}
			if sr.Name == model.RoleAdmin {
				adminRoleID = role.ID
			}
		}

		owner := model.Member{UserID: userID, RoleID: adminRoleID}
		if err := s.repo.AddMember(sessCtx, org.ID, owner); err != nil {
			return err
		}
		org.Members = append(org.Members, owner)
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create organization",
			"name", org.Name,
			"owner_id", userID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create organization", err)
	}

	s.cfg.Log.Info("Organization created successfully",
		"id", org.ID,
		"name", org.Name,
		"owner_id", userID,
	)
	return org, nil
}

func (s *organizationService) ListForUser(ctx context.Context, userID string) ([]*model.Organization, error) {
	orgs, err := s.repo.FindByMember(ctx, userID)
	if err != nil {
		s.cfg.Log.Error("Failed to list organizations",
			"user_id", userID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve organizations", err)
	}
	return orgs, nil
}

func (s *organizationService) Get(ctx context.Context, userID, id string) (*model.Organization, error) {
	m, err := s.authz.Membership(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return m.Organization, nil
}

func (s *organizationService) Update(ctx context.Context, userID, id string, updates *model.OrganizationUpdate) (*model.Organization, error) {
	m, err := s.authz.RequireOrgPermission(ctx, id, userID, model.PermMembersManage)
	if err != nil {
		return nil, err
	}

	merged := *m.Organization
	if updates.Name != nil {
		merged.Name = sanitizer.NormalizeName(*updates.Name)
		merged.Slug = sanitizer.Slugify(merged.Name)
	}

	if err := validation.Struct(s.validate, &merged); err != nil {
		s.cfg.Log.Warn("Organization validation failed",
			"id", id,
			"error", err,
		)
		return nil, validationFailed("Organization", err)
	}

	if err := s.repo.UpdateName(ctx, id, merged.Name, merged.Slug); err != nil {
		if errors.Is(err, orgerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Organization", id)
		}
		s.cfg.Log.Error("Failed to update organization",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to update organization", err)
	}

	s.cfg.Log.Info("Organization updated successfully",
		"id", id,
		"name", merged.Name,
	)
	return &merged, nil
}

// Delete removes the organization with its roles and purges dependents. Only
// the owner may delete.
func (s *organizationService) Delete(ctx context.Context, userID, id string) error {
	m, err := s.authz.Membership(ctx, id, userID)
	if err != nil {
		return err
	}
	if !m.IsOwner() {
		return apperrors.Forbidden("Only the owner can delete an organization")
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		for _, d := range s.dependents {
			if err := d.PurgeOrganization(sessCtx, id); err != nil {
				return err
			}
		}
		if _, err := s.roles.DeleteByOrganization(sessCtx, id); err != nil {
			return err
		}
		return s.repo.Delete(sessCtx, id)
	})
	if err != nil {
		if errors.Is(err, orgerrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Organization", id)
		}
		s.cfg.Log.Error("Failed to delete organization",
			"id", id,
			"error", err,
		)
		return apperrors.Internal("Failed to delete organization", err)
	}

	s.cfg.Log.Info("Organization deleted successfully", "id", id)
	return nil
}

func validationFailed(resource string, err error) error {
	details := map[string]any{"error": err.Error()}
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		details["fields"] = verrs.Fields()
	}
	return apperrors.Validation(resource+" validation failed", details)
}
