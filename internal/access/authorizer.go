package access

import (
	"context"
	"errors"
	"slices"

	eventserrors "gatherly/internal/events/errors"
	orgerrors "gatherly/internal/organizations/errors"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/logger"
	"gatherly/pkg/model"
)

type OrganizationStore interface {
	FindByID(ctx context.Context, id string) (*model.Organization, error)
	FindByMember(ctx context.Context, userID string) ([]*model.Organization, error)
}

type RoleStore interface {
	FindByID(ctx context.Context, orgID, roleID string) (*model.Role, error)
}

type EventStore interface {
	FindByID(ctx context.Context, id string) (*model.Event, error)
}

// Membership is a user's resolved seat in one organization.
type Membership struct {
	Organization *model.Organization
	Member       *model.Member
	Role         *model.Role
	UserID       string
}

func (m *Membership) IsOwner() bool {
	return m.Organization.OwnerID == m.UserID
}

// Permissions merges the role's grants with the member's extra grants. The
// owner always holds every permission.
func (m *Membership) Permissions() []model.Permission {
	if m.IsOwner() {
		return slices.Clone(model.AllPermissions)
	}
	var perms []model.Permission
	if m.Role != nil {
		perms = append(perms, m.Role.Permissions...)
	}
	if m.Member != nil {
		perms = append(perms, m.Member.ExtraPermissions...)
	}
	slices.Sort(perms)
	return slices.Compact(perms)
}

func (m *Membership) Can(p model.Permission) bool {
	return slices.Contains(m.Permissions(), p)
}

// CanAccessEvent reports whether userID may act on e holding any of perms.
// The owner of an event always can; otherwise the event's organization
// membership decides. m may be nil when the user has no seat in that
// organization.
func CanAccessEvent(userID string, e *model.Event, m *Membership, perms ...model.Permission) bool {
	if e.OwnerID == userID {
		return true
	}
	if e.OrganizationID == "" || m == nil || m.Organization.ID != e.OrganizationID {
		return false
	}
	for _, p := range perms {
		if m.Can(p) {
			return true
		}
	}
	return false
}

type Authorizer struct {
	orgs   OrganizationStore
	roles  RoleStore
	events EventStore
	log    *logger.Logger
}

func NewAuthorizer(orgs OrganizationStore, roles RoleStore, events EventStore, log *logger.Logger) *Authorizer {
	return &Authorizer{
		orgs:   orgs,
		roles:  roles,
		events: events,
		log:    log,
	}
}

// Membership loads userID's seat in orgID. Non-members get Forbidden.
func (a *Authorizer) Membership(ctx context.Context, orgID, userID string) (*Membership, error) {
	org, err := a.orgs.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, orgerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Organization", orgID)
		}
		if errors.Is(err, orgerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid organization ID format")
		}
		a.log.Error("Failed to load organization for authorization",
			"organization_id", orgID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to load organization", err)
	}
	return a.membershipIn(ctx, org, userID)
}

func (a *Authorizer) membershipIn(ctx context.Context, org *model.Organization, userID string) (*Membership, error) {
	member, ok := org.Member(userID)
	if !ok {
		return nil, apperrors.Forbidden("You are not a member of this organization")
	}

	m := &Membership{Organization: org, Member: member, UserID: userID}
	role, err := a.roles.FindByID(ctx, org.ID, member.RoleID)
	switch {
	case err == nil:
		m.Role = role
	case errors.Is(err, orgerrors.ErrRoleNotFound), errors.Is(err, orgerrors.ErrInvalidID):
		a.log.Warn("Member references a missing role",
			"organization_id", org.ID,
			"user_id", userID,
			"role_id", member.RoleID,
		)
	default:
		return nil, apperrors.Internal("Failed to load role", err)
	}
	return m, nil
}

func (a *Authorizer) RequireOrgPermission(ctx context.Context, orgID, userID string, p model.Permission) (*Membership, error) {
	m, err := a.Membership(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if !m.Can(p) {
		return nil, apperrors.Forbidden("Missing permission: " + string(p))
	}
	return m, nil
}

// RequireEvent loads the event and checks userID may act on it with any of
// perms.
func (a *Authorizer) RequireEvent(ctx context.Context, eventID, userID string, perms ...model.Permission) (*model.Event, error) {
	e, err := a.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, eventserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Event", eventID)
		}
		if errors.Is(err, eventserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid event ID format")
		}
		a.log.Error("Failed to load event for authorization",
			"event_id", eventID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to load event", err)
	}

	if e.OwnerID == userID {
		return e, nil
	}

	var m *Membership
	if e.OrganizationID != "" {
		m, err = a.Membership(ctx, e.OrganizationID, userID)
		if err != nil && !apperrors.HasCode(err, apperrors.CodeForbidden) && !apperrors.HasCode(err, apperrors.CodeNotFound) {
			return nil, err
		}
	}

	if !CanAccessEvent(userID, e, m, perms...) {
		return nil, apperrors.Forbidden("You do not have access to this event")
	}
	return e, nil
}

// OrganizationsWith returns the IDs of userID's organizations in which they
// hold any of perms.
func (a *Authorizer) OrganizationsWith(ctx context.Context, userID string, perms ...model.Permission) ([]string, error) {
	orgs, err := a.orgs.FindByMember(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load organizations", err)
	}

	var ids []string
	for _, org := range orgs {
		m, err := a.membershipIn(ctx, org, userID)
		if err != nil {
			if apperrors.HasCode(err, apperrors.CodeForbidden) {
				continue
			}
			return nil, err
		}
		for _, p := range perms {
			if m.Can(p) {
				ids = append(ids, org.ID)
				break
			}
		}
	}
	return ids, nil
}
