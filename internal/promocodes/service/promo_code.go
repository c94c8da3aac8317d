package service

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"time"

	"gatherly/internal/access"
	eventserrors "gatherly/internal/events/errors"
	promoerrors "gatherly/internal/promocodes/errors"
	"gatherly/internal/promocodes/repository"
	"gatherly/pkg/activity"
	"gatherly/pkg/config"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/model"
	"gatherly/pkg/sanitizer"
	"gatherly/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type PromoCodeService interface {
	Create(ctx context.Context, userID, eventID string, req *model.PromoCodeCreate) (*model.PromoCode, error)
	List(ctx context.Context, userID, eventID string) ([]*model.PromoCode, error)
	Get(ctx context.Context, userID, eventID, id string) (*model.PromoCode, error)
	Update(ctx context.Context, userID, eventID, id string, updates *model.PromoCodeUpdate) (*model.PromoCode, error)
	Delete(ctx context.Context, userID, eventID, id string) error
	Redeem(ctx context.Context, userID, eventID string, req *model.RedemptionRequest) (*model.RedemptionResult, error)
}

type promoCodeService struct {
	repo      repository.PromoCodeRepository
	events    access.EventStore
	authz     *access.Authorizer
	publisher activity.Publisher
	validate  *validator.Validate
	cfg       *config.Config
	now       func() time.Time
}

func NewPromoCodeService(
	repo repository.PromoCodeRepository,
	events access.EventStore,
	authz *access.Authorizer,
	publisher activity.Publisher,
	cfg *config.Config,
) PromoCodeService {
	return &promoCodeService{
		repo:      repo,
		events:    events,
		authz:     authz,
		publisher: publisher,
		validate:  validation.New(cfg.Log),
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *promoCodeService) Create(ctx context.Context, userID, eventID string, req *model.PromoCodeCreate) (*model.PromoCode, error) {
	e, err := s.authz.RequireEvent(ctx, eventID, userID, model.PermPromoCodesManage)
	if err != nil {
		return nil, err
	}

	p := &model.PromoCode{
		EventID:       e.ID,
		Code:          req.Code,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		MaxUses:       req.MaxUses,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
		TicketTypes:   req.TicketTypes,
		Active:        req.Active == nil || *req.Active,
	}
	s.sanitize(p)
	if err := s.check(p, e); err != nil {
		s.cfg.Log.Warn("Promo code validation failed",
			"event_id", eventID,
			"code", p.Code,
			"error", err,
		)
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, promoerrors.ErrDuplicateCode) {
			return nil, apperrors.Conflict("Promo code " + p.Code + " already exists for this event")
		}
		s.cfg.Log.Error("Failed to create promo code",
			"event_id", eventID,
			"code", p.Code,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create promo code", err)
	}

	s.cfg.Log.Info("Promo code created successfully",
		"id", p.ID,
		"event_id", eventID,
		"code", p.Code,
	)
	s.emit(ctx, activity.PromoCodeCreated, userID, e, p)
	return p, nil
}

func (s *promoCodeService) List(ctx context.Context, userID, eventID string) ([]*model.PromoCode, error) {
	if _, err := s.authz.RequireEvent(ctx, eventID, userID, model.PermPromoCodesManage); err != nil {
		return nil, err
	}

	codes, err := s.repo.FindByEvent(ctx, eventID)
	if err != nil {
		s.cfg.Log.Error("Failed to list promo codes",
			"event_id", eventID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve promo codes", err)
	}
	return codes, nil
}

func (s *promoCodeService) Get(ctx context.Context, userID, eventID, id string) (*model.PromoCode, error) {
	if _, err := s.authz.RequireEvent(ctx, eventID, userID, model.PermPromoCodesManage); err != nil {
		return nil, err
	}
	return s.find(ctx, eventID, id)
}

func (s *promoCodeService) Update(ctx context.Context, userID, eventID, id string, updates *model.PromoCodeUpdate) (*model.PromoCode, error) {
	e, err := s.authz.RequireEvent(ctx, eventID, userID, model.PermPromoCodesManage)
	if err != nil {
		return nil, err
	}

	existing, err := s.find(ctx, eventID, id)
	if err != nil {
		return nil, err
	}

	merged := mergePromoCodeUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.check(merged, e); err != nil {
		s.cfg.Log.Warn("Promo code validation failed",
			"id", id,
			"error", err,
		)
		return nil, err
	}

	if err := s.repo.Update(ctx, merged); err != nil {
		switch {
		case errors.Is(err, promoerrors.ErrDuplicateCode):
			return nil, apperrors.Conflict("Promo code " + merged.Code + " already exists for this event")
		case errors.Is(err, promoerrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Promo code", id)
		}
		s.cfg.Log.Error("Failed to update promo code",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to update promo code", err)
	}

	s.cfg.Log.Info("Promo code updated successfully",
		"id", id,
		"code", merged.Code,
		"active", merged.Active,
	)
	return merged, nil
}

func (s *promoCodeService) Delete(ctx context.Context, userID, eventID, id string) error {
	if _, err := s.authz.RequireEvent(ctx, eventID, userID, model.PermPromoCodesManage); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, eventID, id); err != nil {
		switch {
		case errors.Is(err, promoerrors.ErrNotFound):
			return apperrors.NotFoundWithID("Promo code", id)
		case errors.Is(err, promoerrors.ErrInvalidID):
			return apperrors.InvalidInput("Invalid promo code ID format")
		}
		s.cfg.Log.Error("Failed to delete promo code",
			"id", id,
			"error", err,
		)
		return apperrors.Internal("Failed to delete promo code", err)
	}

	s.cfg.Log.Info("Promo code deleted successfully", "id", id, "event_id", eventID)
	return nil
}

// Redeem applies a code to one ticket of a published event and consumes one
// use. Any signed-in user may redeem.
func (s *promoCodeService) Redeem(ctx context.Context, userID, eventID string, req *model.RedemptionRequest) (*model.RedemptionResult, error) {
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, validationFailed(err)
	}

	e, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.Status != model.EventPublished {
		return nil, apperrors.Conflict("Promo codes can only be redeemed for published events")
	}

	ticket, ok := e.TicketType(req.TicketType)
	if !ok {
		return nil, apperrors.Validation("Promo code redemption failed", map[string]any{
			"fields": map[string]any{"ticket_type": "ticket type does not exist on this event"},
		})
	}
	price := req.PriceCents
	if price == 0 {
		price = ticket.PriceCents
	}

	code := sanitizer.NormalizePromoCode(req.Code)
	p, err := s.repo.FindByCode(ctx, e.ID, code)
	if err != nil {
		if errors.Is(err, promoerrors.ErrNotFound) {
			return nil, apperrors.NotFound("Promo code")
		}
		return nil, apperrors.Internal("Failed to look up promo code", err)
	}

	if _, err := Evaluate(p, ticket.Name, price, s.now()); err != nil {
		s.cfg.Log.Warn("Promo code rejected",
			"event_id", eventID,
			"code", code,
			"reason", err,
		)
		return nil, rejection(err)
	}

	redeemed, err := s.repo.Redeem(ctx, p.ID)
	if err != nil {
		if errors.Is(err, promoerrors.ErrUnavailable) {
			return nil, apperrors.Conflict(promoerrors.ErrUnavailable.Error())
		}
		s.cfg.Log.Error("Failed to redeem promo code",
			"id", p.ID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to redeem promo code", err)
	}

	discount := Discount(redeemed, price)
	result := &model.RedemptionResult{
		Code:            redeemed.Code,
		DiscountCents:   discount,
		FinalPriceCents: price - discount,
	}
	if !redeemed.Unlimited() {
		remaining := max(redeemed.MaxUses-redeemed.UsedCount, 0)
		result.RemainingUses = &remaining
	}

	s.cfg.Log.Info("Promo code redeemed",
		"id", redeemed.ID,
		"event_id", eventID,
		"user_id", userID,
		"discount_cents", discount,
	)
	s.emit(ctx, activity.PromoCodeRedeemed, userID, e, redeemed)
	if result.RemainingUses != nil && *result.RemainingUses == 0 {
		s.emit(ctx, activity.PromoCodeExhausted, userID, e, redeemed)
	}
	return result, nil
}

func (s *promoCodeService) loadEvent(ctx context.Context, eventID string) (*model.Event, error) {
	e, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		switch {
		case errors.Is(err, eventserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Event", eventID)
		case errors.Is(err, eventserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid event ID format")
		}
		return nil, apperrors.Internal("Failed to load event", err)
	}
	return e, nil
}

func (s *promoCodeService) find(ctx context.Context, eventID, id string) (*model.PromoCode, error) {
	p, err := s.repo.FindByID(ctx, eventID, id)
	if err != nil {
		switch {
		case errors.Is(err, promoerrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Promo code", id)
		case errors.Is(err, promoerrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid promo code ID format")
		}
		s.cfg.Log.Error("Failed to get promo code",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve promo code", err)
	}
	return p, nil
}

// check runs the struct tags and the rules that depend on the event.
func (s *promoCodeService) check(p *model.PromoCode, e *model.Event) error {
	if err := validation.Struct(s.validate, p); err != nil {
		return validationFailed(err)
	}

	fields := map[string]any{}
	if p.DiscountType == model.DiscountPercentage && p.DiscountValue > 100 {
		fields["discount_value"] = "percentage discount must be between 1 and 100"
	}
	if p.StartsAt != nil && p.EndsAt != nil && !p.EndsAt.After(*p.StartsAt) {
		fields["ends_at"] = "ends_at must be after starts_at"
	}
	canonical := make([]string, 0, len(p.TicketTypes))
	for i, name := range p.TicketTypes {
		t, ok := e.TicketType(name)
		if !ok {
			fields["ticket_types["+strconv.Itoa(i)+"]"] = "ticket type " + name + " does not exist on this event"
			continue
		}
		if !slices.Contains(canonical, t.Name) {
			canonical = append(canonical, t.Name)
		}
	}
	p.TicketTypes = canonical

	if len(fields) > 0 {
		return apperrors.Validation("Promo code validation failed", map[string]any{"fields": fields})
	}
	return nil
}

func (s *promoCodeService) sanitize(p *model.PromoCode) {
	p.Code = sanitizer.NormalizePromoCode(p.Code)
	p.TicketTypes = sanitizer.NormalizeTicketTypes(p.TicketTypes)
	if p.StartsAt != nil {
		t := p.StartsAt.UTC().Truncate(time.Millisecond)
		p.StartsAt = &t
	}
	if p.EndsAt != nil {
		t := p.EndsAt.UTC().Truncate(time.Millisecond)
		p.EndsAt = &t
	}
}

func (s *promoCodeService) emit(ctx context.Context, typ, userID string, e *model.Event, p *model.PromoCode) {
	data := map[string]string{
		"code":        p.Code,
		"event_title": e.Title,
		"owner_id":    e.OwnerID,
		"used_count":  strconv.FormatInt(p.UsedCount, 10),
	}
	if !p.Unlimited() {
		data["max_uses"] = strconv.FormatInt(p.MaxUses, 10)
	}
	activity.Emit(ctx, s.publisher, s.cfg.Log, activity.Activity{
		Type:           typ,
		ActorID:        userID,
		OrganizationID: e.OrganizationID,
		EventID:        e.ID,
		SubjectID:      p.ID,
		Data:           data,
	})
}

func mergePromoCodeUpdates(existing *model.PromoCode, updates *model.PromoCodeUpdate) *model.PromoCode {
	merged := *existing

	if updates.Code != nil {
		merged.Code = *updates.Code
	}
	if updates.DiscountType != nil {
		merged.DiscountType = *updates.DiscountType
	}
	if updates.DiscountValue != nil {
		merged.DiscountValue = *updates.DiscountValue
	}
	if updates.MaxUses != nil {
		merged.MaxUses = *updates.MaxUses
	}
	if updates.StartsAt != nil {
		merged.StartsAt = updates.StartsAt
	}
	if updates.EndsAt != nil {
		merged.EndsAt = updates.EndsAt
	}
	if updates.TicketTypes != nil {
		merged.TicketTypes = append([]string(nil), (*updates.TicketTypes)...)
	}
	if updates.Active != nil {
		merged.Active = *updates.Active
	}

	return &merged
}

// rejection maps an Evaluate reason to its API error.
func rejection(err error) error {
	if errors.Is(err, promoerrors.ErrNotApplicable) {
		return apperrors.Validation("Promo code redemption failed", map[string]any{
			"fields": map[string]any{"code": err.Error()},
		})
	}
	return apperrors.Conflict(err.Error())
}

func validationFailed(err error) error {
	details := map[string]any{"error": err.Error()}
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		details["fields"] = verrs.Fields()
	}
	return apperrors.Validation("Promo code validation failed", details)
}
