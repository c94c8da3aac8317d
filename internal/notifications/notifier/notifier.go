// Package notifier turns activity messages into per-user notifications.
package notifier

import (
	"context"
	"errors"
	"strconv"

	"gatherly/internal/notifications/repository"
	userserrors "gatherly/internal/users/errors"
	"gatherly/pkg/activity"
	"gatherly/pkg/kafka"
	"gatherly/pkg/logger"
	"gatherly/pkg/model"
	"gatherly/pkg/sanitizer"

	"golang.org/x/text/message"
)

type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type Notifier struct {
	repo    repository.NotificationRepository
	users   UserLookup
	log     *logger.Logger
	printer *message.Printer
}

func New(repo repository.NotificationRepository, users UserLookup, log *logger.Logger) *Notifier {
	return &Notifier{
		repo:    repo,
		users:   users,
		log:     log,
		printer: newPrinter(),
	}
}

// Handle is the consumer's kafka.MessageHandler. Payloads it cannot use are
// permanent errors; storage failures are transient and retried.
func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	a, err := activity.Decode(msg)
	if err != nil {
		return kafka.NewPermanentError("undecodable activity", err)
	}

	notifications, err := n.Build(ctx, a)
	if err != nil {
		return err
	}

	for _, nt := range notifications {
		if err := n.repo.Create(ctx, nt); err != nil {
			return kafka.NewTransientError("failed to store notification", err)
		}
	}

	if len(notifications) > 0 {
		n.log.Debug("Notifications created",
			"type", a.Type,
			"subject_id", a.SubjectID,
			"count", len(notifications),
		)
	}
	return nil
}

// Build resolves the recipients of a and renders their notifications. Actors
// are never notified about their own actions.
func (n *Notifier) Build(ctx context.Context, a activity.Activity) ([]*model.Notification, error) {
	switch a.Type {
	case activity.EventCreated, activity.EventUpdated, activity.EventDeleted, activity.EventPublished:
		return nil, nil

	case activity.GuestAdded:
		return n.toOwner(a, "New guest for "+a.Data["event_title"],
			a.Data["guest_name"]+" was added to the guest list.", guestsLink(a)), nil

	case activity.GuestsImported:
		count, _ := strconv.Atoi(a.Data["count"])
		return n.toOwner(a, "Guests imported",
			n.printer.Sprintf(msgGuestsImported, count, a.Data["event_title"]), guestsLink(a)), nil

	case activity.GuestCheckedIn:
		return n.toOwner(a, a.Data["guest_name"]+" checked in",
			a.Data["guest_name"]+" arrived at "+a.Data["event_title"]+".", guestsLink(a)), nil

	case activity.GuestOrderAdded:
		count, _ := strconv.Atoi(a.Data["count"])
		return n.toOwner(a, "New order for "+a.Data["event_title"],
			n.printer.Sprintf(msgOrderAdded, a.Data["order_id"], count, a.Data["event_title"]), guestsLink(a)), nil

	case activity.PromoCodeCreated:
		return n.toOwner(a, "Promo code "+a.Data["code"]+" created",
			"A new promo code is available for "+a.Data["event_title"]+".", promoLink(a)), nil

	case activity.PromoCodeRedeemed:
		return n.toOwner(a, "Promo code "+a.Data["code"]+" redeemed", n.promoUsage(a), promoLink(a)), nil

	case activity.PromoCodeExhausted:
		return n.toOwner(a, "Promo code "+a.Data["code"]+" is used up",
			"It has reached its redemption limit for "+a.Data["event_title"]+".", promoLink(a)), nil

	case activity.InvitationCreated:
		return n.invitee(ctx, a)

	case activity.InvitationAccepted:
		return n.to(a, a.Data["invited_by"], "Invitation accepted",
			a.Data["email"]+" accepted your invitation.", orgLink(a)), nil

	case activity.MemberRoleChanged:
		return n.to(a, a.SubjectID, "Your role changed",
			"An administrator changed your role in the organization.", orgLink(a)), nil

	case activity.MemberRemoved:
		return n.to(a, a.SubjectID, "Removed from organization",
			"You are no longer a member of the organization.", ""), nil
	}

	return nil, kafka.NewPermanentError("unknown activity type "+strconv.Quote(a.Type), nil)
}

// invitee notifies the invited email's account, if it has one.
func (n *Notifier) invitee(ctx context.Context, a activity.Activity) ([]*model.Notification, error) {
	u, err := n.users.FindByEmail(ctx, sanitizer.NormalizeEmail(a.Data["email"]))
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, nil
		}
		return nil, kafka.NewTransientError("failed to look up invitee", err)
	}

	title := "You're invited to " + a.Data["organization_name"]
	body := "You have been invited to join as " + a.Data["role"] + "."
	return n.to(a, u.ID, title, body, "/invitations"), nil
}

func (n *Notifier) toOwner(a activity.Activity, title, body, link string) []*model.Notification {
	return n.to(a, a.Data["owner_id"], title, body, link)
}

func (n *Notifier) to(a activity.Activity, userID, title, body, link string) []*model.Notification {
	if userID == "" || userID == a.ActorID {
		return nil
	}
	return []*model.Notification{{
		UserID: userID,
		Type:   a.Type,
		Title:  sanitizer.StripHTML(title),
		Body:   sanitizer.StripHTML(body),
		Link:   link,
	}}
}

func (n *Notifier) promoUsage(a activity.Activity) string {
	used, _ := strconv.Atoi(a.Data["used_count"])
	if limit, err := strconv.Atoi(a.Data["max_uses"]); err == nil {
		return n.printer.Sprintf(msgPromoUsageOf, used, limit)
	}
	return n.printer.Sprintf(msgPromoUsage, used)
}

func guestsLink(a activity.Activity) string {
	return "/events/" + a.EventID + "/guests"
}

func promoLink(a activity.Activity) string {
	return "/events/" + a.EventID + "/promo-codes"
}

func orgLink(a activity.Activity) string {
	return "/organizations/" + a.OrganizationID
}
