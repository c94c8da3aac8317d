package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gatherly/internal/access"
	inverrors "gatherly/internal/invitations/errors"
	"gatherly/internal/invitations/repository"
	orgerrors "gatherly/internal/organizations/errors"
	orgrepo "gatherly/internal/organizations/repository"
	userserrors "gatherly/internal/users/errors"
	"gatherly/pkg/activity"
	"gatherly/pkg/config"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/model"
	"gatherly/pkg/sanitizer"
	"gatherly/pkg/sealer"
	"gatherly/pkg/validation"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const tokenPurpose = "invitation"

type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type InvitationService interface {
	Invite(ctx context.Context, userID, orgID string, req *model.InviteRequest) ([]model.IssuedInvitation, error)
	List(ctx context.Context, userID, orgID string) ([]*model.Invitation, error)
	Revoke(ctx context.Context, userID, orgID, invitationID string) error
	Accept(ctx context.Context, userID, email, token string) (*model.Invitation, error)
}

type invitationService struct {
	repo      repository.InvitationRepository
	orgs      orgrepo.OrganizationRepository
	roles     orgrepo.RoleRepository
	users     UserLookup
	authz     *access.Authorizer
	sealer    *sealer.Sealer
	publisher activity.Publisher
	validate  *validator.Validate
	cfg       *config.Config
	now       func() time.Time
}

func NewInvitationService(
	repo repository.InvitationRepository,
	orgs orgrepo.OrganizationRepository,
	roles orgrepo.RoleRepository,
	users UserLookup,
	authz *access.Authorizer,
	sealer *sealer.Sealer,
	publisher activity.Publisher,
	cfg *config.Config,
) InvitationService {
	return &invitationService{
		repo:      repo,
		orgs:      orgs,
		roles:     roles,
		users:     users,
		authz:     authz,
		sealer:    sealer,
		publisher: publisher,
		validate:  validation.New(cfg.Log),
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Invite runs the three wizard steps as one request: recipients, role and
// optional extra permissions. Either every recipient is invited or none is.
func (s *invitationService) Invite(ctx context.Context, userID, orgID string, req *model.InviteRequest) ([]model.IssuedInvitation, error) {
	m, err := s.authz.RequireOrgPermission(ctx, orgID, userID, model.PermMembersManage)
	if err != nil {
		return nil, err
	}

	req.Emails = sanitizer.NormalizeEmails(req.Emails)
	if err := validation.Struct(s.validate, req); err != nil {
		s.cfg.Log.Warn("Invitation validation failed",
			"organization_id", orgID,
			"error", err,
		)
		return nil, validationFailed(err)
	}

	role, err := s.roles.FindByID(ctx, orgID, req.RoleID)
	if err != nil {
		if errors.Is(err, orgerrors.ErrRoleNotFound) || errors.Is(err, orgerrors.ErrInvalidID) {
			return nil, apperrors.Validation("Invitation validation failed", map[string]any{
				"fields": map[string]any{"role_id": "role does not exist in this organization"},
			})
		}
		return nil, apperrors.Internal("Failed to load role", err)
	}

	now := s.now()
	conflicts, err := s.conflicts(ctx, m.Organization, req.Emails, now)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, apperrors.Conflict("Some recipients cannot be invited").WithDetails(map[string]any{"emails": conflicts})
	}

	var issued []model.IssuedInvitation
	err = s.orgs.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		issued = make([]model.IssuedInvitation, 0, len(req.Emails))
		for _, email := range req.Emails {
			inv := &model.Invitation{
				OrganizationID: orgID,
				Email:          email,
				RoleID:         role.ID,
				Permissions:    req.Permissions,
				InvitedBy:      userID,
				Status:         model.InvitationPending,
				ExpiresAt:      now.Add(s.cfg.InvitationTTL).Truncate(time.Millisecond),
			}
			if err := s.repo.Create(sessCtx, inv); err != nil {
				return fmt.Errorf("failed to create invitation for %s: %w", email, err)
			}

			token, err := s.sealer.Seal(tokenPurpose, orgID, inv.ID)
			if err != nil {
				return fmt.Errorf("failed to seal invitation token: %w", err)
			}
			issued = append(issued, model.IssuedInvitation{Invitation: inv, Token: token})
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create invitations",
			"organization_id", orgID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create invitations", err)
	}

	for _, it := range issued {
		activity.Emit(ctx, s.publisher, s.cfg.Log, activity.Activity{
			Type:           activity.InvitationCreated,
			ActorID:        userID,
			OrganizationID: orgID,
			SubjectID:      it.Invitation.ID,
			Data: map[string]string{
				"email":             it.Invitation.Email,
				"role":              role.Name,
				"organization_name": m.Organization.Name,
			},
		})
	}

	s.cfg.Log.Info("Invitations created successfully",
		"organization_id", orgID,
		"count", len(issued),
		"role_id", role.ID,
	)
	return issued, nil
}

// conflicts returns the emails that already belong to a member or hold a live
// pending invitation.
func (s *invitationService) conflicts(ctx context.Context, org *model.Organization, emails []string, now time.Time) (map[string]string, error) {
	out := map[string]string{}
	for _, email := range emails {
		u, err := s.users.FindByEmail(ctx, email)
		switch {
		case err == nil:
			if _, ok := org.Member(u.ID); ok {
				out[email] = "already a member"
				continue
			}
		case !errors.Is(err, userserrors.ErrNotFound):
			return nil, apperrors.Internal("Failed to look up invitee", err)
		}

		_, err = s.repo.FindPending(ctx, org.ID, email, now)
		switch {
		case err == nil:
			out[email] = "already invited"
		case !errors.Is(err, inverrors.ErrNotFound):
			return nil, apperrors.Internal("Failed to check pending invitations", err)
		}
	}
	return out, nil
}

func (s *invitationService) List(ctx context.Context, userID, orgID string) ([]*model.Invitation, error) {
	if _, err := s.authz.RequireOrgPermission(ctx, orgID, userID, model.PermMembersManage); err != nil {
		return nil, err
	}

	invitations, err := s.repo.FindByOrganization(ctx, orgID)
	if err != nil {
		s.cfg.Log.Error("Failed to list invitations",
			"organization_id", orgID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve invitations", err)
	}

	now := s.now()
	for _, inv := range invitations {
		inv.Status = inv.EffectiveStatus(now)
	}
	return invitations, nil
}

func (s *invitationService) Revoke(ctx context.Context, userID, orgID, invitationID string) error {
	if _, err := s.authz.RequireOrgPermission(ctx, orgID, userID, model.PermMembersManage); err != nil {
		return err
	}

	inv, err := s.find(ctx, invitationID)
	if err != nil {
		return err
	}
	if inv.OrganizationID != orgID {
		return apperrors.NotFoundWithID("Invitation", invitationID)
	}
	if status := inv.EffectiveStatus(s.now()); status != model.InvitationPending {
		return apperrors.Conflict(fmt.Sprintf("Invitation is %s", status))
	}

	if err := s.repo.Transition(ctx, invitationID, model.InvitationPending, model.InvitationRevoked, nil); err != nil {
		if errors.Is(err, inverrors.ErrStatusChanged) {
			return apperrors.Conflict("Invitation is no longer pending")
		}
		return apperrors.Internal("Failed to revoke invitation", err)
	}

	s.cfg.Log.Info("Invitation revoked",
		"id", invitationID,
		"organization_id", orgID,
	)
	return nil
}

// Accept seats the signed-in user in the inviting organization. The account
// email must match the invited address.
func (s *invitationService) Accept(ctx context.Context, userID, email, token string) (*model.Invitation, error) {
	parts, err := s.sealer.Open(tokenPurpose, token, 2)
	if err != nil {
		s.cfg.Log.Warn("Rejected invitation token", "user_id", userID, "error", err)
		return nil, apperrors.InvalidInput("Invalid invitation token")
	}
	orgID, invitationID := parts[0], parts[1]

	inv, err := s.find(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.OrganizationID != orgID {
		return nil, apperrors.InvalidInput("Invalid invitation token")
	}

	now := s.now()
	switch inv.EffectiveStatus(now) {
	case model.InvitationExpired:
		return nil, apperrors.Gone("Invitation has expired")
	case model.InvitationRevoked:
		return nil, apperrors.Conflict("Invitation has been revoked")
	case model.InvitationAccepted:
		return nil, apperrors.Conflict("Invitation has already been accepted")
	}

	if sanitizer.NormalizeEmail(email) != inv.Email {
		return nil, apperrors.Forbidden("This invitation was sent to a different email address")
	}

	if _, err := s.roles.FindByID(ctx, orgID, inv.RoleID); err != nil {
		if errors.Is(err, orgerrors.ErrRoleNotFound) {
			return nil, apperrors.Conflict("The invited role no longer exists")
		}
		return nil, apperrors.Internal("Failed to load role", err)
	}

	acceptedAt := now.Truncate(time.Millisecond)
	err = s.orgs.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		member := model.Member{
			UserID:           userID,
			RoleID:           inv.RoleID,
			ExtraPermissions: inv.Permissions,
		}
		if err := s.orgs.AddMember(sessCtx, orgID, member); err != nil {
			return err
		}
		return s.repo.Transition(sessCtx, inv.ID, model.InvitationPending, model.InvitationAccepted, bson.M{
			"accepted_at": acceptedAt,
			"accepted_by": userID,
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, orgerrors.ErrDuplicateMember):
			return nil, apperrors.Conflict("You are already a member of this organization")
		case errors.Is(err, orgerrors.ErrNotFound):
			return nil, apperrors.Gone("The organization no longer exists")
		case errors.Is(err, inverrors.ErrStatusChanged):
			return nil, apperrors.Conflict("Invitation is no longer pending")
		}
		s.cfg.Log.Error("Failed to accept invitation",
			"id", inv.ID,
			"user_id", userID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to accept invitation", err)
	}

	inv.Status = model.InvitationAccepted
	inv.AcceptedAt = &acceptedAt
	inv.AcceptedBy = userID

	s.cfg.Log.Info("Invitation accepted",
		"id", inv.ID,
		"organization_id", orgID,
		"user_id", userID,
	)
	activity.Emit(ctx, s.publisher, s.cfg.Log, activity.Activity{
		Type:           activity.InvitationAccepted,
		ActorID:        userID,
		OrganizationID: orgID,
		SubjectID:      inv.ID,
		Data: map[string]string{
			"invited_by": inv.InvitedBy,
			"email":      inv.Email,
		},
	})
	return inv, nil
}

func (s *invitationService) find(ctx context.Context, id string) (*model.Invitation, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, inverrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Invitation", id)
		}
		if errors.Is(err, inverrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid invitation ID format")
		}
		s.cfg.Log.Error("Failed to get invitation",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve invitation", err)
	}
	return inv, nil
}

func validationFailed(err error) error {
	details := map[string]any{"error": err.Error()}
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		details["fields"] = verrs.Fields()
	}
	return apperrors.Validation("Invitation validation failed", details)
}
