package model

import (
	"slices"
	"time"
)

type Permission string

const (
	PermEventsManage     Permission = "events:manage"
	PermGuestsManage     Permission = "guests:manage"
	PermPromoCodesManage Permission = "promo_codes:manage"
	PermMembersManage    Permission = "members:manage"
	PermDashboardView    Permission = "dashboard:view"
)

// AllPermissions is the full permission catalog in display order.
var AllPermissions = []Permission{
	PermEventsManage,
	PermGuestsManage,
	PermPromoCodesManage,
	PermMembersManage,
	PermDashboardView,
}

func (p Permission) Valid() bool {
	return slices.Contains(AllPermissions, p)
}

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleViewer  = "viewer"
)

// SystemRoles are seeded into every new organization and cannot be edited.
var SystemRoles = []struct {
	Name        string
	Permissions []Permission
}{
	{RoleAdmin, AllPermissions},
	{RoleManager, []Permission{PermEventsManage, PermGuestsManage, PermPromoCodesManage, PermDashboardView}},
	{RoleViewer, []Permission{PermDashboardView}},
}

type Organization struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Slug      string    `json:"slug" bson:"slug" validate:"required,min=2,max=100"`
	OwnerID   string    `json:"owner_id" bson:"owner_id" validate:"required,mongodb"`
	Members   []Member  `json:"members" bson:"members" validate:"dive"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Member is a user's seat in an organization. ExtraPermissions are granted on
// top of the role, e.g. by an invitation.
type Member struct {
	UserID           string       `json:"user_id" bson:"user_id" validate:"required,mongodb"`
	RoleID           string       `json:"role_id" bson:"role_id" validate:"required,mongodb"`
	ExtraPermissions []Permission `json:"extra_permissions,omitempty" bson:"extra_permissions,omitempty" validate:"omitempty,permissions"`
	JoinedAt         time.Time    `json:"joined_at" bson:"joined_at"`
}

func (o *Organization) Member(userID string) (*Member, bool) {
	for i := range o.Members {
		if o.Members[i].UserID == userID {
			return &o.Members[i], true
		}
	}
	return nil, false
}

type OrganizationCreate struct {
	Name string `json:"name"`
}

type OrganizationUpdate struct {
	Name *string `json:"name,omitempty"`
}

type Role struct {
	ID             string       `json:"id,omitempty" bson:"_id,omitempty"`
	OrganizationID string       `json:"organization_id" bson:"organization_id" validate:"required,mongodb"`
	Name           string       `json:"name" bson:"name" validate:"required,min=2,max=50"`
	Permissions    []Permission `json:"permissions" bson:"permissions" validate:"required,min=1,permissions"`
	System         bool         `json:"system" bson:"system"`
	CreatedAt      time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" bson:"updated_at"`
}

func (r *Role) Has(p Permission) bool {
	return slices.Contains(r.Permissions, p)
}

type RoleUpdate struct {
	Name        *string       `json:"name,omitempty"`
	Permissions *[]Permission `json:"permissions,omitempty"`
}

type MemberUpdate struct {
	RoleID           *string       `json:"role_id,omitempty"`
	ExtraPermissions *[]Permission `json:"extra_permissions,omitempty"`
}

// MemberView joins a membership with its user and role for listings.
type MemberView struct {
	Member
	Email    string `json:"email"`
	Name     string `json:"name"`
	RoleName string `json:"role_name"`
	Owner    bool   `json:"owner"`
}
