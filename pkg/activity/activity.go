package activity

import (
	"context"
	"time"

	"gatherly/pkg/logger"
)

// Activity types published on the activity topic.
const (
	EventCreated   = "event.created"
	EventUpdated   = "event.updated"
	EventDeleted   = "event.deleted"
	EventPublished = "event.published"

	GuestAdded      = "guest.added"
	GuestsImported  = "guest.imported"
	GuestCheckedIn  = "guest.checked_in"
	GuestOrderAdded = "guest.order_added"

	PromoCodeCreated   = "promo_code.created"
	PromoCodeRedeemed  = "promo_code.redeemed"
	PromoCodeExhausted = "promo_code.exhausted"

	InvitationCreated  = "invitation.created"
	InvitationAccepted = "invitation.accepted"

	MemberRemoved     = "member.removed"
	MemberRoleChanged = "member.role_changed"
)

const SchemaVersion = "1"

type Activity struct {
	Type           string            `json:"type"`
	ActorID        string            `json:"actor_id,omitempty"`
	OrganizationID string            `json:"organization_id,omitempty"`
	EventID        string            `json:"event_id,omitempty"`
	SubjectID      string            `json:"subject_id,omitempty"`
	Data           map[string]string `json:"data,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

// Key groups activity of the same event or organization onto one partition.
func (a Activity) Key() string {
	switch {
	case a.EventID != "":
		return a.EventID
	case a.OrganizationID != "":
		return a.OrganizationID
	default:
		return a.SubjectID
	}
}

// Publisher emits activity. Failures must not fail the originating request,
// so callers log and move on.
type Publisher interface {
	Publish(ctx context.Context, a Activity) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Activity) error { return nil }

// Emit publishes a and logs, rather than returns, any failure.
func Emit(ctx context.Context, p Publisher, log *logger.Logger, a Activity) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, a); err != nil {
		log.Warn("Failed to publish activity",
			"type", a.Type,
			"subject_id", a.SubjectID,
			"error", err,
		)
	}
}
