package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gatherly/internal/access"
	eventserrors "gatherly/internal/events/errors"
	guesterrors "gatherly/internal/guests/errors"
	"gatherly/internal/guests/repository"
	"gatherly/pkg/activity"
	"gatherly/pkg/config"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/locale"
	"gatherly/pkg/model"
	"gatherly/pkg/sanitizer"
	"gatherly/pkg/validation"

	"github.com/go-playground/validator/v10"
)

const MaxImportRows = 500

const (
	lockAttempts = 5
	lockBackoff  = 50 * time.Millisecond
)

type GuestService interface {
	Add(ctx context.Context, userID, eventID string, g *model.Guest) error
	Import(ctx context.Context, userID, eventID string, req *model.GuestImport) (*model.GuestImportResult, error)
	List(ctx context.Context, userID, eventID string, q model.GuestQuery) ([]*model.Guest, int64, error)
	Get(ctx context.Context, userID, eventID, id string) (*model.Guest, error)
	Update(ctx context.Context, userID, eventID, id string, updates *model.GuestUpdate) (*model.Guest, error)
	Delete(ctx context.Context, userID, eventID, id string) error
	CheckIn(ctx context.Context, userID, eventID, id string) (*model.Guest, error)
	CheckOut(ctx context.Context, userID, eventID, id string) (*model.Guest, error)
	RecordOrder(ctx context.Context, order *model.OrderWebhook) (*model.GuestImportResult, error)
}

type guestService struct {
	repo      repository.GuestRepository
	locks     repository.RegistrationLockRepository
	events    access.EventStore
	authz     *access.Authorizer
	publisher activity.Publisher
	validate  *validator.Validate
	cfg       *config.Config
	now       func() time.Time
}

func NewGuestService(
	repo repository.GuestRepository,
	locks repository.RegistrationLockRepository,
	events access.EventStore,
	authz *access.Authorizer,
	publisher activity.Publisher,
	cfg *config.Config,
) GuestService {
	return &guestService{
		repo:      repo,
		locks:     locks,
		events:    events,
		authz:     authz,
		publisher: publisher,
		validate:  validation.New(cfg.Log),
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *guestService) Add(ctx context.Context, userID, eventID string, g *model.Guest) error {
	e, err := s.authz.RequireEvent(ctx, eventID, userID, model.PermGuestsManage)
	if err != nil {
		return err
	}

	g.Source = model.GuestSourceManual
	g.OrderID = ""
	if err := s.admit(ctx, e, g); err != nil {
		return err
	}

	s.cfg.Log.Info("Guest added successfully",
		"id", g.ID,
		"event_id", eventID,
	)
	s.emit(ctx, activity.GuestAdded, userID, e, g.ID, map[string]string{
		"guest_name": g.Name,
	})
	return nil
}

// Import adds each row independently. Rows that fail validation, collide with
// an existing email or exceed capacity are reported in Skipped.
func (s *guestService) Import(ctx context.Context, userID, eventID string, req *model.GuestImport) (*model.GuestImportResult, error) {
	e, err := s.authz.RequireEvent(ctx, eventID, userID, model.PermGuestsManage)
	if err != nil {
		return nil, err
	}

	if len(req.Guests) == 0 {
		return nil, apperrors.Validation("Guest import failed", map[string]any{
			"fields": map[string]any{"guests": "at least one guest is required"},
		})
	}
	if len(req.Guests) > MaxImportRows {
		return nil, apperrors.Validation("Guest import failed", map[string]any{
			"fields": map[string]any{"guests": "at most " + strconv.Itoa(MaxImportRows) + " guests per import"},
		})
	}

	result := &model.GuestImportResult{
		Created: []*model.Guest{},
		Skipped: []model.GuestImportError{},
	}
	for i, g := range req.Guests {
		if g == nil {
			result.Skipped = append(result.Skipped, model.GuestImportError{Index: i, Reason: "empty row"})
			continue
		}
		g.Source = model.GuestSourceManual
		g.OrderID = ""
		if err := s.admit(ctx, e, g); err != nil {
			if apperrors.HasCode(err, apperrors.CodeInternal) {
				return nil, err
			}
			result.Skipped = append(result.Skipped, model.GuestImportError{Index: i, Email: g.Email, Reason: reason(err)})
			continue
		}
		result.Created = append(result.Created, g)
	}

	s.cfg.Log.Info("Guests imported",
		"event_id", eventID,
		"created", len(result.Created),
		"skipped", len(result.Skipped),
	)
	if len(result.Created) > 0 {
		s.emit(ctx, activity.GuestsImported, userID, e, e.ID, map[string]string{
			"count": strconv.Itoa(len(result.Created)),
		})
	}
	return result, nil
}

func (s *guestService) List(ctx context.Context, userID, eventID string, q model.GuestQuery) ([]*model.Guest, int64, error) {
	e, err := s.authz.RequireEvent(ctx, eventID, userID, model.PermGuestsManage)
	if err != nil {
		return nil, 0, err
	}

	q, err = normalizeQuery(e, q)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, eventID, q)
	if err != nil {
		s.cfg.Log.Error("Failed to count guests",
			"event_id", eventID,
			"error", err,
		)
		return nil, 0, apperrors.Internal("Failed to count guests", err)
	}

	guests := []*model.Guest{}
	skip := pageStart(q)
	if skip < total {
		guests, err = s.repo.Find(ctx, eventID, q, skip, q.PageSize)
		if err != nil {
			s.cfg.Log.Error("Failed to list guests",
				"event_id", eventID,
				"error", err,
			)
			return nil, 0, apperrors.Internal("Failed to retrieve guests", err)
		}
	}

	s.cfg.Log.Debug("Guest search completed",
		"event_id", eventID,
		"search", q.Search,
		"status", q.Status,
		"page", q.Page,
		"results", len(guests),
		"total", total,
	)
	return guests, total, nil
}

func (s *guestService) Get(ctx context.Context, userID, eventID, id string) (*model.Guest, error) {
	if _, err := s.authz.RequireEvent(ctx, eventID, userID, model.PermGuestsManage); err != nil {
		return nil, err
	}
	return s.find(ctx, eventID, id)
}

func (s *guestService) Update(ctx context.Context, userID, eventID, id string, updates *model.GuestUpdate) (*model.Guest, error) {
	e, err := s.authz.RequireEvent(ctx, eventID, userID, model.PermGuestsManage)
	if err != nil {
		return nil, err
	}

	existing, err := s.find(ctx, eventID, id)
	if err != nil {
		return nil, err
	}

	merged := mergeGuestUpdates(existing, updates)
	if err := s.prepare(e, merged); err != nil {
		s.cfg.Log.Warn("Guest validation failed",
			"id", id,
			"error", err,
		)
		return nil, err
	}
	if merged.TicketType != existing.TicketType {
		if e.HasLimits(merged.TicketType) {
			release, err := s.lockRegistration(ctx, e.ID)
			if err != nil {
				return nil, err
			}
			defer release()
		}
		if err := s.checkQuantity(ctx, e, merged.TicketType); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, merged); err != nil {
		switch {
		case errors.Is(err, guesterrors.ErrDuplicateEmail):
			return nil, apperrors.Conflict("A guest with email " + merged.Email + " is already registered for this event")
		case errors.Is(err, guesterrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Guest", id)
		}
		s.cfg.Log.Error("Failed to update guest",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to update guest", err)
	}

	s.cfg.Log.Info("Guest updated successfully", "id", id, "event_id", eventID)
	return merged, nil
}

func (s *guestService) Delete(ctx context.Context, userID, eventID, id string) error {
	if _, err := s.authz.RequireEvent(ctx, eventID, userID, model.PermGuestsManage); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, eventID, id); err != nil {
		switch {
		case errors.Is(err, guesterrors.ErrNotFound):
			return apperrors.NotFoundWithID("Guest", id)
		case errors.Is(err, guesterrors.ErrInvalidID):
			return apperrors.InvalidInput("Invalid guest ID format")
		}
		s.cfg.Log.Error("Failed to delete guest",
			"id", id,
			"error", err,
		)
		return apperrors.Internal("Failed to delete guest", err)
	}

	s.cfg.Log.Info("Guest deleted successfully", "id", id, "event_id", eventID)
	return nil
}

func (s *guestService) CheckIn(ctx context.Context, userID, eventID, id string) (*model.Guest, error) {
	e, err := s.authz.RequireEvent(ctx, eventID, userID, model.PermGuestsManage)
	if err != nil {
		return nil, err
	}
	if e.Status == model.EventCancelled {
		return nil, apperrors.Conflict("Cannot check in guests of a cancelled event")
	}

	g, err := s.setCheckIn(ctx, eventID, id, true)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Guest checked in", "id", id, "event_id", eventID)
	s.emit(ctx, activity.GuestCheckedIn, userID, e, g.ID, map[string]string{
		"guest_name": g.Name,
	})
	return g, nil
}

func (s *guestService) CheckOut(ctx context.Context, userID, eventID, id string) (*model.Guest, error) {
	if _, err := s.authz.RequireEvent(ctx, eventID, userID, model.PermGuestsManage); err != nil {
		return nil, err
	}

	g, err := s.setCheckIn(ctx, eventID, id, false)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Guest check-in reverted", "id", id, "event_id", eventID)
	return g, nil
}

func (s *guestService) setCheckIn(ctx context.Context, eventID, id string, checkedIn bool) (*model.Guest, error) {
	at := s.now().Truncate(time.Millisecond)
	g, err := s.repo.SetCheckIn(ctx, eventID, id, checkedIn, at)
	if err != nil {
		switch {
		case errors.Is(err, guesterrors.ErrCheckInUnchanged):
			if checkedIn {
				return nil, apperrors.Conflict("Guest is already checked in")
			}
			return nil, apperrors.Conflict("Guest is not checked in")
		case errors.Is(err, guesterrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Guest", id)
		case errors.Is(err, guesterrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid guest ID format")
		}
		s.cfg.Log.Error("Failed to update guest check-in",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to update guest check-in", err)
	}
	return g, nil
}

// RecordOrder turns a paid order into guests. Replaying the same order is a
// no-op: attendees already recorded under that order are skipped.
func (s *guestService) RecordOrder(ctx context.Context, order *model.OrderWebhook) (*model.GuestImportResult, error) {
	if err := validation.Struct(s.validate, order); err != nil {
		s.cfg.Log.Warn("Order webhook validation failed",
			"order_id", order.OrderID,
			"error", err,
		)
		return nil, validationFailed(err)
	}

	e, err := s.events.FindByID(ctx, order.EventID)
	if err != nil {
		switch {
		case errors.Is(err, eventserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Event", order.EventID)
		case errors.Is(err, eventserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid event ID format")
		}
		return nil, apperrors.Internal("Failed to load event", err)
	}
	if e.Status == model.EventCancelled {
		return nil, apperrors.Conflict("Event has been cancelled")
	}

	result := &model.GuestImportResult{
		Created: []*model.Guest{},
		Skipped: []model.GuestImportError{},
	}
	for i, a := range order.Attendees {
		email := sanitizer.NormalizeEmail(a.Email)
		existing, err := s.repo.FindByEmail(ctx, e.ID, email)
		switch {
		case err == nil && existing.OrderID == order.OrderID:
			result.Skipped = append(result.Skipped, model.GuestImportError{Index: i, Email: email, Reason: "already recorded"})
			continue
		case err == nil:
			result.Skipped = append(result.Skipped, model.GuestImportError{Index: i, Email: email, Reason: "email already registered for this event"})
			continue
		case !errors.Is(err, guesterrors.ErrNotFound):
			return nil, apperrors.Internal("Failed to look up guest", err)
		}

		g := &model.Guest{
			Name:       a.Name,
			Email:      email,
			Phone:      a.Phone,
			TicketType: a.TicketType,
			OrderID:    order.OrderID,
			Source:     model.GuestSourceOrder,
		}
		if err := s.admit(ctx, e, g); err != nil {
			if apperrors.HasCode(err, apperrors.CodeInternal) {
				return nil, err
			}
			result.Skipped = append(result.Skipped, model.GuestImportError{Index: i, Email: email, Reason: reason(err)})
			continue
		}
		result.Created = append(result.Created, g)
	}

	s.cfg.Log.Info("Order recorded",
		"event_id", e.ID,
		"order_id", order.OrderID,
		"created", len(result.Created),
		"skipped", len(result.Skipped),
	)
	if len(result.Created) > 0 {
		s.emit(ctx, activity.GuestOrderAdded, "", e, order.OrderID, map[string]string{
			"order_id": order.OrderID,
			"count":    strconv.Itoa(len(result.Created)),
		})
	}
	return result, nil
}

// admit prepares g for e, enforces capacity and stores it.
func (s *guestService) admit(ctx context.Context, e *model.Event, g *model.Guest) error {
	g.ID = ""
	g.EventID = e.ID
	g.CheckedIn = false
	g.CheckedInAt = nil
	if err := s.prepare(e, g); err != nil {
		s.cfg.Log.Warn("Guest validation failed",
			"event_id", e.ID,
			"email", g.Email,
			"error", err,
		)
		return err
	}

	if e.HasLimits(g.TicketType) {
		release, err := s.lockRegistration(ctx, e.ID)
		if err != nil {
			return err
		}
		defer release()
	}

	if e.Capacity > 0 {
		count, err := s.repo.CountByTicketType(ctx, e.ID, "")
		if err != nil {
			return apperrors.Internal("Failed to count guests", err)
		}
		if count >= int64(e.Capacity) {
			return apperrors.Conflict("Event is at capacity")
		}
	}
	if err := s.checkQuantity(ctx, e, g.TicketType); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, g); err != nil {
		if errors.Is(err, guesterrors.ErrDuplicateEmail) {
			return apperrors.Conflict("A guest with email " + g.Email + " is already registered for this event")
		}
		s.cfg.Log.Error("Failed to create guest",
			"event_id", e.ID,
			"error", err,
		)
		return apperrors.Internal("Failed to create guest", err)
	}
	return nil
}

// lockRegistration takes the event's registration lock, retrying briefly
// while another admission holds it.
func (s *guestService) lockRegistration(ctx context.Context, eventID string) (func(), error) {
	var token string
	for attempt := 1; ; attempt++ {
		var err error
		token, err = s.locks.Acquire(ctx, eventID)
		if err == nil {
			break
		}
		if !errors.Is(err, guesterrors.ErrRegistrationLocked) {
			s.cfg.Log.Error("Failed to acquire registration lock",
				"event_id", eventID,
				"error", err,
			)
			return nil, apperrors.Internal("Failed to acquire registration lock", err)
		}
		if attempt == lockAttempts {
			s.cfg.Log.Warn("Registration lock contended", "event_id", eventID, "attempts", attempt)
			return nil, apperrors.Conflict("Registration for this event is busy, please retry")
		}

		timer := time.NewTimer(lockBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, apperrors.Timeout("Timed out waiting for registration lock")
		case <-timer.C:
		}
	}

	return func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), eventID, token); err != nil {
			s.cfg.Log.Warn("Failed to release registration lock", "event_id", eventID, "error", err)
		}
	}, nil
}

// checkQuantity rejects a guest whose ticket type has no seats left.
func (s *guestService) checkQuantity(ctx context.Context, e *model.Event, ticketType string) error {
	t, ok := e.TicketType(ticketType)
	if !ok || t.Quantity == 0 {
		return nil
	}
	count, err := s.repo.CountByTicketType(ctx, e.ID, t.Name)
	if err != nil {
		return apperrors.Internal("Failed to count guests", err)
	}
	if count >= int64(t.Quantity) {
		return apperrors.Conflict("Ticket type " + t.Name + " is sold out")
	}
	return nil
}

// prepare sanitizes g and validates it against e.
func (s *guestService) prepare(e *model.Event, g *model.Guest) error {
	rawPhone := g.Phone
	g.Name = sanitizer.NormalizeName(g.Name)
	g.Email = sanitizer.NormalizeEmail(g.Email)
	g.Phone = sanitizer.NormalizePhone(rawPhone, locale.RegionForTimezone(e.TimeZone))
	g.Notes = sanitizer.StripHTML(g.Notes)
	g.TicketType = sanitizer.NormalizeTicketType(g.TicketType)
	g.OrderID = sanitizer.TrimAndNormalize(g.OrderID)

	fields := map[string]any{}
	if rawPhone != "" && g.Phone == "" {
		fields["phone"] = "phone must be a valid phone number"
	}
	if g.TicketType != "" {
		if t, ok := e.TicketType(g.TicketType); ok {
			g.TicketType = t.Name
		} else {
			fields["ticket_type"] = "ticket type does not exist on this event"
		}
	} else if len(e.TicketTypes) > 0 {
		fields["ticket_type"] = "ticket_type is required"
	}

	if err := validation.Struct(s.validate, g); err != nil {
		var verrs validation.ValidationErrors
		if !errors.As(err, &verrs) {
			return validationFailed(err)
		}
		for k, v := range verrs.Fields() {
			fields[k] = v
		}
	}

	if len(fields) > 0 {
		return apperrors.Validation("Guest validation failed", map[string]any{"fields": fields})
	}
	return nil
}

func (s *guestService) find(ctx context.Context, eventID, id string) (*model.Guest, error) {
	g, err := s.repo.FindByID(ctx, eventID, id)
	if err != nil {
		switch {
		case errors.Is(err, guesterrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Guest", id)
		case errors.Is(err, guesterrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid guest ID format")
		}
		s.cfg.Log.Error("Failed to get guest",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve guest", err)
	}
	return g, nil
}

func (s *guestService) emit(ctx context.Context, typ, actorID string, e *model.Event, subjectID string, data map[string]string) {
	data["event_title"] = e.Title
	data["owner_id"] = e.OwnerID
	activity.Emit(ctx, s.publisher, s.cfg.Log, activity.Activity{
		Type:           typ,
		ActorID:        actorID,
		OrganizationID: e.OrganizationID,
		EventID:        e.ID,
		SubjectID:      subjectID,
		Data:           data,
	})
}

func mergeGuestUpdates(existing *model.Guest, updates *model.GuestUpdate) *model.Guest {
	merged := *existing

	if updates.Name != nil {
		merged.Name = *updates.Name
	}
	if updates.Email != nil {
		merged.Email = *updates.Email
	}
	if updates.Phone != nil {
		merged.Phone = *updates.Phone
	}
	if updates.TicketType != nil {
		merged.TicketType = *updates.TicketType
	}
	if updates.Notes != nil {
		merged.Notes = *updates.Notes
	}

	return &merged
}

// reason renders err as a one-line explanation for an import row.
func reason(err error) string {
	appErr := apperrors.AsAppError(err)
	if fields, ok := appErr.Details["fields"].(map[string]any); ok {
		for _, key := range sortedKeys(fields) {
			if msg, ok := fields[key].(string); ok {
				return msg
			}
		}
	}
	return appErr.Message
}

func validationFailed(err error) error {
	details := map[string]any{"error": err.Error()}
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		details["fields"] = verrs.Fields()
	}
	return apperrors.Validation("Guest validation failed", details)
}
