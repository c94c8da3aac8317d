package service

import (
	"context"

	"gatherly/internal/access"
	"gatherly/internal/dashboard/repository"
	"gatherly/pkg/config"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/locale"
	"gatherly/pkg/model"
)

type DashboardService interface {
	Get(ctx context.Context, userID, eventID string) (*model.EventDashboard, error)
}

type dashboardService struct {
	repo  repository.StatsRepository
	authz *access.Authorizer
	cfg   *config.Config
}

func NewDashboardService(repo repository.StatsRepository, authz *access.Authorizer, cfg *config.Config) DashboardService {
	return &dashboardService{
		repo:  repo,
		authz: authz,
		cfg:   cfg,
	}
}

func (s *dashboardService) Get(ctx context.Context, userID, eventID string) (*model.EventDashboard, error) {
	e, err := s.authz.RequireEvent(ctx, eventID, userID, model.PermDashboardView, model.PermEventsManage)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.GuestCounts(ctx, eventID)
	if err != nil {
		return nil, s.internal("Failed to aggregate guests", eventID, err)
	}

	tz := e.TimeZone
	if !locale.IsValidTimezone(tz) {
		tz = locale.DefaultTimezone
	}
	days, err := s.repo.Registrations(ctx, eventID, tz)
	if err != nil {
		return nil, s.internal("Failed to aggregate registrations", eventID, err)
	}

	promo, err := s.repo.PromoCodeStats(ctx, eventID)
	if err != nil {
		return nil, s.internal("Failed to aggregate promo codes", eventID, err)
	}

	d := Assemble(e, counts, promo, days)
	s.cfg.Log.Debug("Dashboard assembled",
		"event_id", eventID,
		"guests", d.Totals.Guests,
		"days", len(d.Registrations),
	)
	return d, nil
}

func (s *dashboardService) internal(msg, eventID string, err error) error {
	s.cfg.Log.Error(msg,
		"event_id", eventID,
		"error", err,
	)
	return apperrors.Internal(msg, err)
}
