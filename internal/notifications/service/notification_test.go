package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	notiferrors "gatherly/internal/notifications/errors"
	"gatherly/internal/testutil"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/model"
)

type stubNotifications struct {
	gotFilter model.NotificationFilter
	err       error
}

func (r *stubNotifications) Create(context.Context, *model.Notification) error { return nil }

func (r *stubNotifications) FindByUser(_ context.Context, _ string, filter model.NotificationFilter) ([]*model.Notification, error) {
	r.gotFilter = filter
	return []*model.Notification{}, r.err
}

func (r *stubNotifications) CountByUser(context.Context, string, bool) (int64, error) {
	return 12, nil
}

func (r *stubNotifications) MarkRead(_ context.Context, _, id string) (*model.Notification, error) {
	return nil, r.err
}

func (r *stubNotifications) MarkAllRead(context.Context, string) (int64, error) {
	return 0, r.err
}

func (r *stubNotifications) Delete(_ context.Context, _, id string) error {
	return r.err
}

func TestList_NormalizesPaging(t *testing.T) {
	repo := &stubNotifications{}
	svc := NewNotificationService(repo, testutil.Config())

	_, total, err := svc.List(context.Background(), "u1", model.NotificationFilter{Limit: 1000, Offset: -4})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 12 {
		t.Errorf("total = %d", total)
	}
	if repo.gotFilter.Limit != 100 || repo.gotFilter.Offset != 0 {
		t.Errorf("filter = %+v", repo.gotFilter)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"missing or foreign", fmt.Errorf("%w: n1", notiferrors.ErrNotFound), apperrors.CodeNotFound},
		{"bad id", fmt.Errorf("%w: n1", notiferrors.ErrInvalidID), apperrors.CodeInvalidInput},
		{"store failure", errors.New("connection reset"), apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewNotificationService(&stubNotifications{err: tt.err}, testutil.Config())

			if _, err := svc.MarkRead(context.Background(), "u1", "n1"); !apperrors.HasCode(err, tt.wantCode) {
				t.Errorf("MarkRead: expected %s, got %v", tt.wantCode, err)
			}
			if err := svc.Delete(context.Background(), "u1", "n1"); !apperrors.HasCode(err, tt.wantCode) {
				t.Errorf("Delete: expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}
