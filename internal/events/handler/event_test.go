package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gatherly/pkg/auth"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/logger"
	"gatherly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockEventService struct {
	createFunc func(ctx context.Context, userID string, e *model.Event) error
	listFunc   func(ctx context.Context, userID string, filter model.EventFilter) ([]*model.Event, int64, error)
	getFunc    func(ctx context.Context, userID, id string) (*model.Event, error)
}

func (m *mockEventService) Create(ctx context.Context, userID string, e *model.Event) error {
	return m.createFunc(ctx, userID, e)
}

func (m *mockEventService) List(ctx context.Context, userID string, filter model.EventFilter) ([]*model.Event, int64, error) {
	return m.listFunc(ctx, userID, filter)
}

func (m *mockEventService) Get(ctx context.Context, userID, id string) (*model.Event, error) {
	return m.getFunc(ctx, userID, id)
}

func (m *mockEventService) Update(ctx context.Context, userID, id string, updates *model.EventUpdate) (*model.Event, error) {
	return nil, nil
}

func (m *mockEventService) Delete(ctx context.Context, userID, id string) error {
	return nil
}

const testUserID = "507f1f77bcf86cd799439011"

// serve routes req through the handler, signed in as testUserID when signedIn.
func serve(svc *mockEventService, req *http.Request, signedIn bool) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewEventHandler(svc, logger.Discard()).RegisterRoutes(router)

	if signedIn {
		req = req.WithContext(auth.WithUser(req.Context(), &auth.SessionUser{ID: testUserID, Email: "ada@example.com"}))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreate_RequiresSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{"title":"Launch"}`))
	w := serve(&mockEventService{}, req, false)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestCreate_PassesOwner(t *testing.T) {
	var gotUser string
	svc := &mockEventService{
		createFunc: func(ctx context.Context, userID string, e *model.Event) error {
			gotUser = userID
			e.ID = "507f191e810c19729de860ea"
			e.OwnerID = userID
			return nil
		},
	}

	body := `{"title":"Launch","starts_at":"2026-06-01T18:00:00Z","ends_at":"2026-06-01T21:00:00Z","time_zone":"Europe/Berlin"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	w := serve(svc, req, true)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if gotUser != testUserID {
		t.Errorf("service got user %q", gotUser)
	}

	var resp struct {
		Data model.Event `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.ID == "" || resp.Data.OwnerID != testUserID {
		t.Errorf("unexpected body %+v", resp.Data)
	}
}

func TestList_QueryParameters(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
		wantOffset int64
		wantFilter model.EventStatus
	}{
		{name: "defaults", query: "", wantStatus: http.StatusOK, wantLimit: 10, wantOffset: 0},
		{name: "limit capped", query: "?limit=500&offset=20", wantStatus: http.StatusOK, wantLimit: 100, wantOffset: 20},
		{name: "status filter", query: "?status=published", wantStatus: http.StatusOK, wantLimit: 10, wantFilter: model.EventPublished},
		{name: "bad limit", query: "?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "negative offset", query: "?offset=-1", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got model.EventFilter
			svc := &mockEventService{
				listFunc: func(ctx context.Context, userID string, filter model.EventFilter) ([]*model.Event, int64, error) {
					got = filter
					return []*model.Event{}, 0, nil
				},
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/events"+tt.query, nil)
			w := serve(svc, req, true)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if got.Limit != tt.wantLimit || got.Offset != tt.wantOffset || got.Status != tt.wantFilter {
				t.Errorf("filter = %+v", got)
			}
		})
	}
}

func TestGetByID_MapsAppErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", apperrors.NotFoundWithID("Event", "x"), http.StatusNotFound},
		{"forbidden", apperrors.Forbidden("You do not have access to this event"), http.StatusForbidden},
		{"bad id", apperrors.InvalidInput("Invalid event ID format"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockEventService{
				getFunc: func(ctx context.Context, userID, id string) (*model.Event, error) {
					return nil, tt.err
				},
			}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/events/abc", nil)
			w := serve(svc, req, true)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			var body apperrors.Body
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Code == "" || body.Error == "" {
				t.Errorf("error body missing fields: %+v", body)
			}
		})
	}
}
