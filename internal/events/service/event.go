package service

import (
	"context"
	"errors"
	"time"

	"gatherly/internal/access"
	eventserrors "gatherly/internal/events/errors"
	"gatherly/internal/events/repository"
	"gatherly/pkg/activity"
	"gatherly/pkg/config"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/locale"
	"gatherly/pkg/model"
	"gatherly/pkg/sanitizer"
	"gatherly/pkg/validation"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

// CascadeDeleter removes records that belong to an event.
type CascadeDeleter interface {
	DeleteByEvent(ctx context.Context, eventID string) (int64, error)
}

type EventService interface {
	Create(ctx context.Context, userID string, e *model.Event) error
	List(ctx context.Context, userID string, filter model.EventFilter) ([]*model.Event, int64, error)
	Get(ctx context.Context, userID, id string) (*model.Event, error)
	Update(ctx context.Context, userID, id string, updates *model.EventUpdate) (*model.Event, error)
	Delete(ctx context.Context, userID, id string) error
}

type eventService struct {
	repo      repository.EventRepository
	authz     *access.Authorizer
	cascades  []CascadeDeleter
	publisher activity.Publisher
	validate  *validator.Validate
	cfg       *config.Config
}

func NewEventService(
	repo repository.EventRepository,
	authz *access.Authorizer,
	publisher activity.Publisher,
	cfg *config.Config,
	cascades ...CascadeDeleter,
) EventService {
	return &eventService{
		repo:      repo,
		authz:     authz,
		cascades:  cascades,
		publisher: publisher,
		validate:  validation.New(cfg.Log),
		cfg:       cfg,
	}
}

func (s *eventService) Create(ctx context.Context, userID string, e *model.Event) error {
	e.ID = ""
	e.OwnerID = userID
	if e.OrganizationID != "" {
		if _, err := s.authz.RequireOrgPermission(ctx, e.OrganizationID, userID, model.PermEventsManage); err != nil {
			return err
		}
	}

	s.sanitize(e)
	s.applyDefaults(e)
	if err := validation.Struct(s.validate, e); err != nil {
		s.cfg.Log.Warn("Event validation failed",
			"title", e.Title,
			"owner_id", userID,
			"error", err,
		)
		return validationFailed(err)
	}

	if err := s.repo.Create(ctx, e); err != nil {
		s.cfg.Log.Error("Failed to create event",
			"title", e.Title,
			"owner_id", userID,
			"error", err,
		)
		return apperrors.Internal("Failed to create event", err)
	}

	s.cfg.Log.Info("Event created successfully",
		"id", e.ID,
		"title", e.Title,
		"organization_id", e.OrganizationID,
	)
	s.emit(ctx, activity.EventCreated, userID, e, nil)
	if e.Status == model.EventPublished {
		s.emit(ctx, activity.EventPublished, userID, e, nil)
	}
	return nil
}

// List returns the events the user owns plus those of organizations where
// they can manage events or view dashboards.
func (s *eventService) List(ctx context.Context, userID string, filter model.EventFilter) ([]*model.Event, int64, error) {
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, 0, apperrors.InvalidInput("invalid status parameter: " + string(filter.Status))
	}

	orgIDs, err := s.authz.OrganizationsWith(ctx, userID, model.PermEventsManage, model.PermDashboardView)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.CountVisible(ctx, userID, orgIDs, filter.Status)
	if err != nil {
		s.cfg.Log.Error("Failed to count events",
			"user_id", userID,
			"error", err,
		)
		return nil, 0, apperrors.Internal("Failed to count events", err)
	}

	events, err := s.repo.FindVisible(ctx, userID, orgIDs, filter.Status, filter.Limit, filter.Offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list events",
			"user_id", userID,
			"error", err,
		)
		return nil, 0, apperrors.Internal("Failed to retrieve events", err)
	}

	s.cfg.Log.Debug("Events listed",
		"user_id", userID,
		"organizations", len(orgIDs),
		"count", len(events),
		"total", total,
	)
	return events, total, nil
}

func (s *eventService) Get(ctx context.Context, userID, id string) (*model.Event, error) {
	return s.authz.RequireEvent(ctx, id, userID, model.PermEventsManage, model.PermDashboardView)
}

func (s *eventService) Update(ctx context.Context, userID, id string, updates *model.EventUpdate) (*model.Event, error) {
	existing, err := s.authz.RequireEvent(ctx, id, userID, model.PermEventsManage)
	if err != nil {
		return nil, err
	}

	if existing.Status == model.EventCancelled && updates.Status != nil && *updates.Status != model.EventCancelled {
		return nil, apperrors.Conflict("A cancelled event cannot be reopened")
	}

	previous := existing.Status
	merged := mergeEventUpdates(existing, updates)
	s.sanitize(merged)
	s.applyDefaults(merged)
	if err := validation.Struct(s.validate, merged); err != nil {
		s.cfg.Log.Warn("Event validation failed",
			"id", id,
			"error", err,
		)
		return nil, validationFailed(err)
	}

	if err := s.repo.Update(ctx, merged); err != nil {
		if errors.Is(err, eventserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Event", id)
		}
		s.cfg.Log.Error("Failed to update event",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to update event", err)
	}

	s.cfg.Log.Info("Event updated successfully",
		"id", id,
		"status", merged.Status,
	)
	s.emit(ctx, activity.EventUpdated, userID, merged, map[string]string{"previous_status": string(previous)})
	if previous != model.EventPublished && merged.Status == model.EventPublished {
		s.emit(ctx, activity.EventPublished, userID, merged, nil)
	}
	return merged, nil
}

// Delete removes the event together with its promo codes and guests.
func (s *eventService) Delete(ctx context.Context, userID, id string) error {
	e, err := s.authz.RequireEvent(ctx, id, userID, model.PermEventsManage)
	if err != nil {
		return err
	}

	var removed int64
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		for _, c := range s.cascades {
			n, err := c.DeleteByEvent(sessCtx, id)
			if err != nil {
				return err
			}
			removed += n
		}
		return s.repo.Delete(sessCtx, id)
	})
	if err != nil {
		if errors.Is(err, eventserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Event", id)
		}
		s.cfg.Log.Error("Failed to delete event",
			"id", id,
			"error", err,
		)
		return apperrors.Internal("Failed to delete event", err)
	}

	s.cfg.Log.Info("Event deleted successfully",
		"id", id,
		"dependents_removed", removed,
	)
	s.emit(ctx, activity.EventDeleted, userID, e, nil)
	return nil
}

func (s *eventService) emit(ctx context.Context, typ, userID string, e *model.Event, data map[string]string) {
	if data == nil {
		data = map[string]string{}
	}
	data["title"] = e.Title
	data["owner_id"] = e.OwnerID
	activity.Emit(ctx, s.publisher, s.cfg.Log, activity.Activity{
		Type:           typ,
		ActorID:        userID,
		OrganizationID: e.OrganizationID,
		EventID:        e.ID,
		SubjectID:      e.ID,
		Data:           data,
	})
}

func (s *eventService) sanitize(e *model.Event) {
	e.Title = sanitizer.NormalizeName(e.Title)
	e.Description = sanitizer.SanitizeRichText(e.Description)
	e.Venue = sanitizer.TrimAndNormalize(e.Venue)
	e.TimeZone = sanitizer.TrimAndNormalize(e.TimeZone)
	e.StartsAt = e.StartsAt.UTC().Truncate(time.Millisecond)
	e.EndsAt = e.EndsAt.UTC().Truncate(time.Millisecond)
	for i := range e.TicketTypes {
		e.TicketTypes[i].Name = sanitizer.NormalizeTicketType(e.TicketTypes[i].Name)
	}
}

func (s *eventService) applyDefaults(e *model.Event) {
	if e.TimeZone == "" {
		e.TimeZone = locale.DefaultTimezone
	}
	if e.Status == "" {
		e.Status = model.EventDraft
	}
	if e.TicketTypes == nil {
		e.TicketTypes = []model.TicketType{}
	}
}

func mergeEventUpdates(existing *model.Event, updates *model.EventUpdate) *model.Event {
	merged := *existing

	if updates.Title != nil {
		merged.Title = *updates.Title
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.Venue != nil {
		merged.Venue = *updates.Venue
	}
	if updates.StartsAt != nil {
		merged.StartsAt = *updates.StartsAt
	}
	if updates.EndsAt != nil {
		merged.EndsAt = *updates.EndsAt
	}
	if updates.TimeZone != nil {
		merged.TimeZone = *updates.TimeZone
	}
	if updates.Capacity != nil {
		merged.Capacity = *updates.Capacity
	}
	if updates.Status != nil {
		merged.Status = *updates.Status
	}
	if updates.TicketTypes != nil {
		merged.TicketTypes = append([]model.TicketType(nil), (*updates.TicketTypes)...)
	}

	return &merged
}

func validStatus(s model.EventStatus) bool {
	switch s {
	case model.EventDraft, model.EventPublished, model.EventCancelled:
		return true
	}
	return false
}

func validationFailed(err error) error {
	details := map[string]any{"error": err.Error()}
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		details["fields"] = verrs.Fields()
	}
	return apperrors.Validation("Event validation failed", details)
}
