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
	"gatherly/pkg/middleware"
	"gatherly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockGuestService struct {
	listFunc        func(ctx context.Context, userID, eventID string, q model.GuestQuery) ([]*model.Guest, int64, error)
	checkInFunc     func(ctx context.Context, userID, eventID, id string) (*model.Guest, error)
	recordOrderFunc func(ctx context.Context, order *model.OrderWebhook) (*model.GuestImportResult, error)
}

func (m *mockGuestService) Add(ctx context.Context, userID, eventID string, g *model.Guest) error {
	return nil
}

func (m *mockGuestService) Import(ctx context.Context, userID, eventID string, req *model.GuestImport) (*model.GuestImportResult, error) {
	return nil, nil
}

func (m *mockGuestService) List(ctx context.Context, userID, eventID string, q model.GuestQuery) ([]*model.Guest, int64, error) {
	return m.listFunc(ctx, userID, eventID, q)
}

func (m *mockGuestService) Get(ctx context.Context, userID, eventID, id string) (*model.Guest, error) {
	return nil, nil
}

func (m *mockGuestService) Update(ctx context.Context, userID, eventID, id string, updates *model.GuestUpdate) (*model.Guest, error) {
	return nil, nil
}

func (m *mockGuestService) Delete(ctx context.Context, userID, eventID, id string) error {
	return nil
}

func (m *mockGuestService) CheckIn(ctx context.Context, userID, eventID, id string) (*model.Guest, error) {
	return m.checkInFunc(ctx, userID, eventID, id)
}

func (m *mockGuestService) CheckOut(ctx context.Context, userID, eventID, id string) (*model.Guest, error) {
	return nil, nil
}

func (m *mockGuestService) RecordOrder(ctx context.Context, order *model.OrderWebhook) (*model.GuestImportResult, error) {
	return m.recordOrderFunc(ctx, order)
}

const (
	testUserID  = "507f1f77bcf86cd799439011"
	testEventID = "507f191e810c19729de860ea"
	testSecret  = "whsec_test"
)

func serve(svc *mockGuestService, req *http.Request, signedIn bool) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewGuestHandler(svc, testSecret, logger.Discard()).RegisterRoutes(router)

	if signedIn {
		req = req.WithContext(auth.WithUser(req.Context(), &auth.SessionUser{ID: testUserID, Email: "ada@example.com"}))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestList_ParsesViewState(t *testing.T) {
	var got model.GuestQuery
	svc := &mockGuestService{
		listFunc: func(ctx context.Context, userID, eventID string, q model.GuestQuery) ([]*model.Guest, int64, error) {
			if eventID != testEventID {
				t.Errorf("event id = %q", eventID)
			}
			got = q
			return []*model.Guest{{ID: "g1", Name: "Ada"}}, 51, nil
		},
	}

	url := "/api/v1/events/" + testEventID + "/guests?search=ada&status=checked_in&ticket_type=VIP&source=order&sort=-created_at&page=2&page_size=25"
	w := serve(svc, httptest.NewRequest(http.MethodGet, url, nil), true)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	want := model.GuestQuery{
		Search:     "ada",
		Status:     model.CheckInCheckedIn,
		TicketType: "VIP",
		Source:     model.GuestSourceOrder,
		Sort:       "-created_at",
		Page:       2,
		PageSize:   25,
	}
	if got != want {
		t.Errorf("query = %+v, want %+v", got, want)
	}

	var resp struct {
		Data       []model.Guest `json:"data"`
		TotalCount int64         `json:"total_count"`
		TotalPages int           `json:"total_pages"`
		HasNext    bool          `json:"has_next"`
		HasPrev    bool          `json:"has_prev"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 1 || resp.TotalCount != 51 || resp.TotalPages != 3 || !resp.HasNext || !resp.HasPrev {
		t.Errorf("unexpected page %+v", resp)
	}
}

func TestList_BadPage(t *testing.T) {
	svc := &mockGuestService{}
	w := serve(svc, httptest.NewRequest(http.MethodGet, "/api/v1/events/"+testEventID+"/guests?page=0", nil), true)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCheckIn_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		signedIn   bool
		err        error
		wantStatus int
	}{
		{"signed out", false, nil, http.StatusUnauthorized},
		{"checked in", true, nil, http.StatusOK},
		{"already checked in", true, apperrors.Conflict("Guest is already checked in"), http.StatusConflict},
		{"forbidden", true, apperrors.Forbidden("Forbidden"), http.StatusForbidden},
		{"missing", true, apperrors.NotFoundWithID("Guest", "g1"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockGuestService{
				checkInFunc: func(ctx context.Context, userID, eventID, id string) (*model.Guest, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.Guest{ID: id, CheckedIn: true}, nil
				},
			}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/events/"+testEventID+"/guests/g1/check-in", nil)
			w := serve(svc, req, tt.signedIn)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestRecordOrder_Signature(t *testing.T) {
	body := `{"event_id":"` + testEventID + `","order_id":"ord_1","attendees":[{"name":"Ada","email":"ada@example.com"}]}`

	tests := []struct {
		name       string
		signature  string
		wantStatus int
		wantCalled bool
	}{
		{"valid", "sha256=" + middleware.Sign([]byte(body), testSecret), http.StatusOK, true},
		{"wrong secret", "sha256=" + middleware.Sign([]byte(body), "other"), http.StatusUnauthorized, false},
		{"missing", "", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockGuestService{
				recordOrderFunc: func(ctx context.Context, order *model.OrderWebhook) (*model.GuestImportResult, error) {
					called = true
					if order.OrderID != "ord_1" || len(order.Attendees) != 1 {
						t.Errorf("order = %+v", order)
					}
					return &model.GuestImportResult{Created: []*model.Guest{{ID: "g1"}}, Skipped: []model.GuestImportError{}}, nil
				},
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders", strings.NewReader(body))
			if tt.signature != "" {
				req.Header.Set(middleware.HeaderSignature, tt.signature)
			}
			w := serve(svc, req, false)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if called != tt.wantCalled {
				t.Errorf("service called = %v", called)
			}
		})
	}
}
