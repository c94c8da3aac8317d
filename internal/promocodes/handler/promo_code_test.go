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

type mockPromoCodeService struct {
	createFunc func(ctx context.Context, userID, eventID string, req *model.PromoCodeCreate) (*model.PromoCode, error)
	deleteFunc func(ctx context.Context, userID, eventID, id string) error
	redeemFunc func(ctx context.Context, userID, eventID string, req *model.RedemptionRequest) (*model.RedemptionResult, error)
}

func (m *mockPromoCodeService) Create(ctx context.Context, userID, eventID string, req *model.PromoCodeCreate) (*model.PromoCode, error) {
	return m.createFunc(ctx, userID, eventID, req)
}

func (m *mockPromoCodeService) List(ctx context.Context, userID, eventID string) ([]*model.PromoCode, error) {
	return []*model.PromoCode{}, nil
}

func (m *mockPromoCodeService) Get(ctx context.Context, userID, eventID, id string) (*model.PromoCode, error) {
	return nil, apperrors.NotFoundWithID("Promo code", id)
}

func (m *mockPromoCodeService) Update(ctx context.Context, userID, eventID, id string, updates *model.PromoCodeUpdate) (*model.PromoCode, error) {
	return nil, nil
}

func (m *mockPromoCodeService) Delete(ctx context.Context, userID, eventID, id string) error {
	return m.deleteFunc(ctx, userID, eventID, id)
}

func (m *mockPromoCodeService) Redeem(ctx context.Context, userID, eventID string, req *model.RedemptionRequest) (*model.RedemptionResult, error) {
	return m.redeemFunc(ctx, userID, eventID, req)
}

const (
	testUserID  = "507f1f77bcf86cd799439011"
	testEventID = "507f191e810c19729de860ea"
)

func serve(svc *mockPromoCodeService, req *http.Request, signedIn bool) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewPromoCodeHandler(svc, logger.Discard()).RegisterRoutes(router)

	if signedIn {
		req = req.WithContext(auth.WithUser(req.Context(), &auth.SessionUser{ID: testUserID, Email: "ada@example.com"}))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreate_RoutesEventAndBody(t *testing.T) {
	var gotEvent string
	var gotReq *model.PromoCodeCreate
	svc := &mockPromoCodeService{
		createFunc: func(ctx context.Context, userID, eventID string, req *model.PromoCodeCreate) (*model.PromoCode, error) {
			gotEvent, gotReq = eventID, req
			return &model.PromoCode{ID: "p1", EventID: eventID, Code: "EARLY", DiscountType: req.DiscountType, DiscountValue: req.DiscountValue}, nil
		},
	}

	body := `{"code":"early","discount_type":"percentage","discount_value":20}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/"+testEventID+"/promo-codes", strings.NewReader(body))
	w := serve(svc, req, true)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if gotEvent != testEventID {
		t.Errorf("service got event %q", gotEvent)
	}
	if gotReq.Code != "early" || gotReq.DiscountType != model.DiscountPercentage || gotReq.DiscountValue != 20 {
		t.Errorf("service got request %+v", gotReq)
	}
}

func TestCreate_RejectsUnknownFields(t *testing.T) {
	svc := &mockPromoCodeService{
		createFunc: func(ctx context.Context, userID, eventID string, req *model.PromoCodeCreate) (*model.PromoCode, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/"+testEventID+"/promo-codes", strings.NewReader(`{"code":"X","percent":10}`))
	w := serve(svc, req, true)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDelete(t *testing.T) {
	var gotID string
	svc := &mockPromoCodeService{
		deleteFunc: func(ctx context.Context, userID, eventID, id string) error {
			gotID = id
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/events/"+testEventID+"/promo-codes/p1", nil)
	w := serve(svc, req, true)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if gotID != "p1" {
		t.Errorf("service got id %q", gotID)
	}
}

func TestRedeem(t *testing.T) {
	tests := []struct {
		name       string
		signedIn   bool
		err        error
		wantStatus int
	}{
		{name: "applied", signedIn: true, wantStatus: http.StatusOK},
		{name: "anonymous", signedIn: false, wantStatus: http.StatusUnauthorized},
		{name: "unknown code", signedIn: true, err: apperrors.NotFound("Promo code"), wantStatus: http.StatusNotFound},
		{name: "exhausted", signedIn: true, err: apperrors.Conflict("Promo code has no remaining uses"), wantStatus: http.StatusConflict},
		{name: "wrong ticket type", signedIn: true,
			err:        apperrors.Validation("Promo code does not apply to this ticket type", nil),
			wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPromoCodeService{
				redeemFunc: func(ctx context.Context, userID, eventID string, req *model.RedemptionRequest) (*model.RedemptionResult, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.RedemptionResult{Code: req.Code, DiscountCents: 500, FinalPriceCents: req.PriceCents - 500}, nil
				},
			}

			body := `{"code":"EARLY","ticket_type":"General","price_cents":2500}`
			req := httptest.NewRequest(http.MethodPost, "/api/v1/events/"+testEventID+"/promo-code-redemptions", strings.NewReader(body))
			w := serve(svc, req, tt.signedIn)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				Data model.RedemptionResult `json:"data"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Data.FinalPriceCents != 2000 {
				t.Errorf("final price = %d, want 2000", resp.Data.FinalPriceCents)
			}
		})
	}
}
