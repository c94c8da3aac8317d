package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"gatherly/pkg/auth"
	"gatherly/pkg/client"
	"gatherly/pkg/config"
	"gatherly/pkg/contracts"
	"gatherly/pkg/logger"
)

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context, *readpref.ReadPref) error {
	return p.err
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		pingErr    error
		wantStatus int
		wantBody   HealthResponse
	}{
		{"health", "/health", nil, http.StatusOK, HealthResponse{Status: "ok"}},
		{"health ignores database", "/health", errors.New("down"), http.StatusOK, HealthResponse{Status: "ok"}},
		{"ready", "/ready", nil, http.StatusOK, HealthResponse{Status: "ready", Database: "ok"}},
		{"not ready", "/ready", errors.New("down"), http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Database: "error"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(fakePinger{err: tt.pingErr}, logger.Discard()).RegisterRoutes(router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var got HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.wantBody {
				t.Errorf("body = %+v, want %+v", got, tt.wantBody)
			}
		})
	}
}

func TestUserOrIPKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:5555"
	if got := UserOrIPKey(r); got != "ip:203.0.113.7" {
		t.Errorf("anonymous key = %q", got)
	}

	r = r.WithContext(auth.WithUser(r.Context(), &auth.SessionUser{ID: "u1"}))
	if got := UserOrIPKey(r); got != "user:u1" {
		t.Errorf("user key = %q", got)
	}
}

type counterHandler struct {
	calls int
}

func (h *counterHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/things", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]int{"calls": h.calls})
	})
}

func testApplication(t *testing.T, handlers ...contracts.Handler) *Application {
	t.Helper()
	cfg := &config.Config{
		Port:              "0",
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
		IdempotencyTTL:    time.Hour,
		MaxRequestSize:    1 << 20,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       5 * time.Second,
		ShutdownTimeout:   time.Second,
		Log:               logger.Discard(),
		Client:            client.NewClient(),
	}
	sessions := auth.NewSessions(bytes.Repeat([]byte("k"), 32), false, cfg.Log)

	a := NewApplication(cfg, sessions)
	a.SetApp(handlers...)
	t.Cleanup(func() {
		for _, w := range a.workers {
			w.Stop()
		}
	})
	return a
}

func post(h http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/things", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestApplication_MiddlewareStack(t *testing.T) {
	counter := &counterHandler{}
	a := testApplication(t, counter)
	h := a.Handler()

	first := post(h, "key-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d", first.Code)
	}

	replay := post(h, "key-1")
	if replay.Code != http.StatusCreated {
		t.Fatalf("replay status = %d", replay.Code)
	}
	if replay.Body.String() != first.Body.String() {
		t.Errorf("replay body = %s, want %s", replay.Body.String(), first.Body.String())
	}
	if counter.calls != 1 {
		t.Errorf("handler calls = %d, want 1", counter.calls)
	}

	limited := post(h, "key-2")
	if limited.Code != http.StatusTooManyRequests {
		t.Fatalf("third status = %d, want 429", limited.Code)
	}
	if limited.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestApplication_RejectsNonJSONBody(t *testing.T) {
	a := testApplication(t, &counterHandler{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/things", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}

func TestApplication_HealthBypassesRateLimit(t *testing.T) {
	a := testApplication(t, &counterHandler{})

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
}
