package service

import (
	"context"
	"errors"

	"gatherly/internal/access"
	orgerrors "gatherly/internal/organizations/errors"
	"gatherly/internal/organizations/repository"
	"gatherly/pkg/activity"
	"gatherly/pkg/config"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/model"
)

type UserLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]*model.User, error)
}

type MemberService interface {
	List(ctx context.Context, userID, orgID string) ([]model.MemberView, error)
	Update(ctx context.Context, userID, orgID, memberID string, updates *model.MemberUpdate) (*model.Member, error)
	Remove(ctx context.Context, userID, orgID, memberID string) error
}

type memberService struct {
	repo      repository.OrganizationRepository
	roles     repository.RoleRepository
	users     UserLookup
	authz     *access.Authorizer
	publisher activity.Publisher
	cfg       *config.Config
}

func NewMemberService(
	repo repository.OrganizationRepository,
	roles repository.RoleRepository,
	users UserLookup,
	authz *access.Authorizer,
	publisher activity.Publisher,
	cfg *config.Config,
) MemberService {
	return &memberService{
		repo:      repo,
		roles:     roles,
		users:     users,
		authz:     authz,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *memberService) List(ctx context.Context, userID, orgID string) ([]model.MemberView, error) {
	m, err := s.authz.Membership(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	org := m.Organization

	ids := make([]string, 0, len(org.Members))
	for _, member := range org.Members {
		ids = append(ids, member.UserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		s.cfg.Log.Error("Failed to load member users",
			"organization_id", orgID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve members", err)
	}
	roles, err := s.roles.FindByOrganization(ctx, orgID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve roles", err)
	}

	return buildMemberViews(org, users, roles), nil
}

func buildMemberViews(org *model.Organization, users []*model.User, roles []*model.Role) []model.MemberView {
	byUser := make(map[string]*model.User, len(users))
	for _, u := range users {
		byUser[u.ID] = u
	}
	roleNames := make(map[string]string, len(roles))
	for _, r := range roles {
		roleNames[r.ID] = r.Name
	}

	views := make([]model.MemberView, 0, len(org.Members))
	for _, member := range org.Members {
		view := model.MemberView{
			Member:   member,
			RoleName: roleNames[member.RoleID],
			Owner:    member.UserID == org.OwnerID,
		}
		if u, ok := byUser[member.UserID]; ok {
			view.Email = u.Email
			view.Name = u.Name
		}
		views = append(views, view)
	}
	return views
}

// Update changes a member's role or extra permissions. The owner always stays
// admin.
func (s *memberService) Update(ctx context.Context, userID, orgID, memberID string, updates *model.MemberUpdate) (*model.Member, error) {
	m, err := s.authz.RequireOrgPermission(ctx, orgID, userID, model.PermMembersManage)
	if err != nil {
		return nil, err
	}

	target, ok := m.Organization.Member(memberID)
	if !ok {
		return nil, apperrors.NotFoundWithID("Member", memberID)
	}
	if memberID == m.Organization.OwnerID && updates.RoleID != nil && *updates.RoleID != target.RoleID {
		return nil, apperrors.Conflict("The owner's role cannot be changed")
	}

	merged := *target
	if updates.RoleID != nil {
		role, err := s.roles.FindByID(ctx, orgID, *updates.RoleID)
		if err != nil {
			if errors.Is(err, orgerrors.ErrRoleNotFound) || errors.Is(err, orgerrors.ErrInvalidID) {
				return nil, apperrors.Validation("Member validation failed", map[string]any{
					"fields": map[string]any{"role_id": "role does not exist in this organization"},
				})
			}
			return nil, apperrors.Internal("Failed to load role", err)
		}
		merged.RoleID = role.ID
	}
	if updates.ExtraPermissions != nil {
		perms := normalizePermissions(*updates.ExtraPermissions)
		for _, p := range perms {
			if !p.Valid() {
				return nil, apperrors.Validation("Member validation failed", map[string]any{
					"fields": map[string]any{"extra_permissions": "unknown permission " + string(p)},
				})
			}
		}
		merged.ExtraPermissions = perms
	}

	if err := s.repo.UpdateMember(ctx, orgID, merged); err != nil {
		if errors.Is(err, orgerrors.ErrMemberNotFound) {
			return nil, apperrors.NotFoundWithID("Member", memberID)
		}
		s.cfg.Log.Error("Failed to update member",
			"organization_id", orgID,
			"member_id", memberID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to update member", err)
	}

	s.cfg.Log.Info("Member updated successfully",
		"organization_id", orgID,
		"member_id", memberID,
		"role_id", merged.RoleID,
	)
	if merged.RoleID != target.RoleID {
		activity.Emit(ctx, s.publisher, s.cfg.Log, activity.Activity{
			Type:           activity.MemberRoleChanged,
			ActorID:        userID,
			OrganizationID: orgID,
			SubjectID:      memberID,
			Data:           map[string]string{"role_id": merged.RoleID},
		})
	}
	return &merged, nil
}

// Remove drops a member. Members may always leave on their own; removing
// others needs members:manage. The owner cannot be removed.
func (s *memberService) Remove(ctx context.Context, userID, orgID, memberID string) error {
	var m *access.Membership
	var err error
	if memberID == userID {
		m, err = s.authz.Membership(ctx, orgID, userID)
	} else {
		m, err = s.authz.RequireOrgPermission(ctx, orgID, userID, model.PermMembersManage)
	}
	if err != nil {
		return err
	}

	if memberID == m.Organization.OwnerID {
		return apperrors.Conflict("The owner cannot be removed from the organization")
	}

	if err := s.repo.RemoveMember(ctx, orgID, memberID); err != nil {
		if errors.Is(err, orgerrors.ErrMemberNotFound) {
			return apperrors.NotFoundWithID("Member", memberID)
		}
		s.cfg.Log.Error("Failed to remove member",
			"organization_id", orgID,
			"member_id", memberID,
			"error", err,
		)
		return apperrors.Internal("Failed to remove member", err)
	}

	s.cfg.Log.Info("Member removed successfully",
		"organization_id", orgID,
		"member_id", memberID,
	)
	activity.Emit(ctx, s.publisher, s.cfg.Log, activity.Activity{
		Type:           activity.MemberRemoved,
		ActorID:        userID,
		OrganizationID: orgID,
		SubjectID:      memberID,
	})
	return nil
}
