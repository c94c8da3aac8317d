package access

import (
	"context"
	"fmt"
	"testing"

	eventserrors "gatherly/internal/events/errors"
	orgerrors "gatherly/internal/organizations/errors"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/logger"
	"gatherly/pkg/model"
)

const (
	orgID     = "65f000000000000000000001"
	ownerID   = "65f0000000000000000000a1"
	managerID = "65f0000000000000000000a2"
	viewerID  = "65f0000000000000000000a3"
	outsideID = "65f0000000000000000000a4"

	managerRoleID = "65f0000000000000000000b1"
	viewerRoleID  = "65f0000000000000000000b2"
)

type fakeOrgs map[string]*model.Organization

func (f fakeOrgs) FindByID(_ context.Context, id string) (*model.Organization, error) {
	if org, ok := f[id]; ok {
		return org, nil
	}
	return nil, fmt.Errorf("%w: %s", orgerrors.ErrNotFound, id)
}

func (f fakeOrgs) FindByMember(_ context.Context, userID string) ([]*model.Organization, error) {
	var out []*model.Organization
	for _, org := range f {
		if _, ok := org.Member(userID); ok {
			out = append(out, org)
		}
	}
	return out, nil
}

type fakeRoles map[string]*model.Role

func (f fakeRoles) FindByID(_ context.Context, _, roleID string) (*model.Role, error) {
	if r, ok := f[roleID]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s", orgerrors.ErrRoleNotFound, roleID)
}

type fakeEvents map[string]*model.Event

func (f fakeEvents) FindByID(_ context.Context, id string) (*model.Event, error) {
	if e, ok := f[id]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", eventserrors.ErrNotFound, id)
}

func newTestAuthorizer() *Authorizer {
	org := &model.Organization{
		ID:      orgID,
		OwnerID: ownerID,
		Members: []model.Member{
			{UserID: ownerID, RoleID: "missing"},
			{UserID: managerID, RoleID: managerRoleID},
			{UserID: viewerID, RoleID: viewerRoleID, ExtraPermissions: []model.Permission{model.PermGuestsManage}},
		},
	}
	roles := fakeRoles{
		managerRoleID: {ID: managerRoleID, Permissions: []model.Permission{model.PermEventsManage, model.PermGuestsManage, model.PermDashboardView}},
		viewerRoleID:  {ID: viewerRoleID, Permissions: []model.Permission{model.PermDashboardView}},
	}
	events := fakeEvents{
		"personal": {ID: "personal", OwnerID: outsideID},
		"org":      {ID: "org", OwnerID: managerID, OrganizationID: orgID},
	}
	return NewAuthorizer(fakeOrgs{orgID: org}, roles, events, logger.Discard())
}

func TestRequireEvent(t *testing.T) {
	a := newTestAuthorizer()

	tests := []struct {
		name     string
		eventID  string
		userID   string
		perm     model.Permission
		wantCode string
	}{
		{"owner of personal event", "personal", outsideID, model.PermEventsManage, ""},
		{"stranger on personal event", "personal", managerID, model.PermDashboardView, apperrors.CodeForbidden},
		{"org owner has everything", "org", ownerID, model.PermPromoCodesManage, ""},
		{"viewer can view dashboard", "org", viewerID, model.PermDashboardView, ""},
		{"viewer extra permission", "org", viewerID, model.PermGuestsManage, ""},
		{"viewer cannot manage event", "org", viewerID, model.PermEventsManage, apperrors.CodeForbidden},
		{"non member", "org", outsideID, model.PermDashboardView, apperrors.CodeForbidden},
		{"missing event", "nope", ownerID, model.PermDashboardView, apperrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := a.RequireEvent(context.Background(), tt.eventID, tt.userID, tt.perm)
			if tt.wantCode != "" {
				if !apperrors.HasCode(err, tt.wantCode) {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.ID != tt.eventID {
				t.Errorf("got event %s", e.ID)
			}
		})
	}
}

func TestRequireOrgPermission(t *testing.T) {
	a := newTestAuthorizer()

	if _, err := a.RequireOrgPermission(context.Background(), orgID, managerID, model.PermMembersManage); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Errorf("manager should not manage members, got %v", err)
	}
	m, err := a.RequireOrgPermission(context.Background(), orgID, ownerID, model.PermMembersManage)
	if err != nil {
		t.Fatalf("owner should manage members: %v", err)
	}
	if !m.IsOwner() {
		t.Error("expected owner membership")
	}
	if _, err := a.RequireOrgPermission(context.Background(), "other", ownerID, model.PermDashboardView); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND for unknown org, got %v", err)
	}
}

func TestOrganizationsWith(t *testing.T) {
	a := newTestAuthorizer()

	ids, err := a.OrganizationsWith(context.Background(), viewerID, model.PermEventsManage)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("viewer should not manage events anywhere, got %v", ids)
	}

	ids, err = a.OrganizationsWith(context.Background(), viewerID, model.PermEventsManage, model.PermDashboardView)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != orgID {
		t.Errorf("expected [%s], got %v", orgID, ids)
	}
}

func TestMembership_PermissionsDeduplicated(t *testing.T) {
	m := &Membership{
		Organization: &model.Organization{OwnerID: ownerID},
		Member:       &model.Member{ExtraPermissions: []model.Permission{model.PermDashboardView}},
		Role:         &model.Role{Permissions: []model.Permission{model.PermDashboardView, model.PermGuestsManage}},
		UserID:       viewerID,
	}
	perms := m.Permissions()
	if len(perms) != 2 {
		t.Errorf("expected 2 unique permissions, got %v", perms)
	}
}
