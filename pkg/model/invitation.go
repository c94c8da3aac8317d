package model

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRevoked  InvitationStatus = "revoked"
	InvitationExpired  InvitationStatus = "expired"
)

type Invitation struct {
	ID             string           `json:"id,omitempty" bson:"_id,omitempty"`
	OrganizationID string           `json:"organization_id" bson:"organization_id" validate:"required,mongodb"`
	Email          string           `json:"email" bson:"email" validate:"required,email,max=254"`
	RoleID         string           `json:"role_id" bson:"role_id" validate:"required,mongodb"`
	Permissions    []Permission     `json:"permissions,omitempty" bson:"permissions,omitempty" validate:"omitempty,permissions"`
	InvitedBy      string           `json:"invited_by" bson:"invited_by" validate:"required,mongodb"`
	Status         InvitationStatus `json:"status" bson:"status" validate:"required,oneof=pending accepted revoked expired"`
	ExpiresAt      time.Time        `json:"expires_at" bson:"expires_at"`
	AcceptedAt     *time.Time       `json:"accepted_at,omitempty" bson:"accepted_at,omitempty"`
	AcceptedBy     string           `json:"accepted_by,omitempty" bson:"accepted_by,omitempty"`
	CreatedAt      time.Time        `json:"created_at" bson:"created_at"`
}

// EffectiveStatus reports expired for pending invitations past their deadline.
func (i *Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if i.Status == InvitationPending && !now.Before(i.ExpiresAt) {
		return InvitationExpired
	}
	return i.Status
}

// InviteRequest carries the three wizard steps: who, which role, and optional
// extra permissions.
type InviteRequest struct {
	Emails      []string     `json:"emails" validate:"required,min=1,max=50,dive,required,email,max=254"`
	RoleID      string       `json:"role_id" validate:"required,mongodb"`
	Permissions []Permission `json:"permissions,omitempty" validate:"omitempty,permissions"`
}

type AcceptInvitationRequest struct {
	Token string `json:"token"`
}

type IssuedInvitation struct {
	Invitation *Invitation `json:"invitation"`
	Token      string      `json:"token"`
}
