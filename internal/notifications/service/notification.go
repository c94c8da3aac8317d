package service

import (
	"context"
	"errors"

	notiferrors "gatherly/internal/notifications/errors"
	"gatherly/internal/notifications/repository"
	"gatherly/pkg/config"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/model"
)

type NotificationService interface {
	List(ctx context.Context, userID string, filter model.NotificationFilter) ([]*model.Notification, int64, error)
	MarkRead(ctx context.Context, userID, id string) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
}

type notificationService struct {
	repo repository.NotificationRepository
	cfg  *config.Config
}

func NewNotificationService(repo repository.NotificationRepository, cfg *config.Config) NotificationService {
	return &notificationService{
		repo: repo,
		cfg:  cfg,
	}
}

func (s *notificationService) List(ctx context.Context, userID string, filter model.NotificationFilter) ([]*model.Notification, int64, error) {
	filter.Limit = config.NormalizePaginationLimit(filter.Limit)
	filter.Offset = config.NormalizeOffset(filter.Offset)

	total, err := s.repo.CountByUser(ctx, userID, filter.UnreadOnly)
	if err != nil {
		s.cfg.Log.Error("Failed to count notifications",
			"user_id", userID,
			"error", err,
		)
		return nil, 0, apperrors.Internal("Failed to count notifications", err)
	}

	notifications, err := s.repo.FindByUser(ctx, userID, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to list notifications",
			"user_id", userID,
			"error", err,
		)
		return nil, 0, apperrors.Internal("Failed to retrieve notifications", err)
	}
	return notifications, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id string) (*model.Notification, error) {
	n, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return nil, s.mapError("Failed to mark notification read", id, err)
	}
	return n, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		s.cfg.Log.Error("Failed to mark notifications read",
			"user_id", userID,
			"error", err,
		)
		return 0, apperrors.Internal("Failed to mark notifications read", err)
	}

	s.cfg.Log.Debug("Notifications marked read", "user_id", userID, "count", n)
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return s.mapError("Failed to delete notification", id, err)
	}
	return nil
}

// mapError hides other users' notifications behind the same 404 as missing ones.
func (s *notificationService) mapError(msg, id string, err error) error {
	switch {
	case errors.Is(err, notiferrors.ErrNotFound):
		return apperrors.NotFoundWithID("Notification", id)
	case errors.Is(err, notiferrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid notification ID format")
	}
	s.cfg.Log.Error(msg,
		"id", id,
		"error", err,
	)
	return apperrors.Internal(msg, err)
}
