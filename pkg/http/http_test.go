package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "gatherly/pkg/errors"
)

func TestWriteError_UsesAppErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperrors.NotFound("Event"), http.StatusNotFound, apperrors.CodeNotFound},
		{"forbidden", apperrors.Forbidden("no"), http.StatusForbidden, apperrors.CodeForbidden},
		{"conflict", apperrors.Conflict("dup"), http.StatusConflict, apperrors.CodeConflict},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, apperrors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := WriteError(rec, tt.err); err != nil {
				t.Fatalf("WriteError returned %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
			}
			if body.Error == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestExtractLimitOffset(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int64
		wantErr    bool
	}{
		{"", 10, 0, false},
		{"limit=500&offset=20", 100, 20, false},
		{"limit=abc", 0, 0, true},
		{"offset=-1", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)
			limit, offset, err := ExtractLimitOffset(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (limit != tt.wantLimit || offset != tt.wantOffset) {
				t.Errorf("got (%d, %d), want (%d, %d)", limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestNewPageMeta(t *testing.T) {
	tests := []struct {
		name                  string
		page, size            int
		total                 int64
		wantPages             int
		wantNext, wantPrev    bool
		wantSkip              int64
	}{
		{"empty", 1, 25, 0, 0, false, false, 0},
		{"first of three", 1, 10, 25, 3, true, false, 0},
		{"last page", 3, 10, 25, 3, false, true, 20},
		{"past the end", 5, 10, 25, 3, false, true, 40},
		{"exact fit", 2, 10, 20, 2, false, true, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPageMeta(tt.page, tt.size, tt.total)
			if m.TotalPages != tt.wantPages || m.HasNext != tt.wantNext || m.HasPrev != tt.wantPrev {
				t.Errorf("got %+v", m)
			}
			if m.Skip() != tt.wantSkip {
				t.Errorf("skip = %d, want %d", m.Skip(), tt.wantSkip)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"gala"}`))
	if err := DecodeJSON(r, &dst); err != nil || dst.Name != "gala" {
		t.Fatalf("unexpected result: %v %+v", err, dst)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nope":1}`))
	if err := DecodeJSON(r, &dst); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected invalid input for unknown field, got %v", err)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}{"name":"b"}`))
	if err := DecodeJSON(r, &dst); err == nil {
		t.Error("expected error for trailing data")
	}
}
