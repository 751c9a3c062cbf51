package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		Data(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("X-Custom"); got != "value" {
		t.Errorf("X-Custom = %q", got)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"n":1}` {
		t.Errorf("Body = %q", got)
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "" {
		t.Errorf("Content-Type = %q, want none", got)
	}
}

func TestJSONResponseBuilder_EncodingFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Data(map[string]any{"ch": make(chan int)}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorFromDomain(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"not found", core.ErrUserNotFound, http.StatusNotFound, "not_found", "user not found"},
		{"already exists", fmt.Errorf("sign up: %w", core.ErrEmailAlreadyExists), http.StatusConflict, "already_exists", "email already exists"},
		{"invalid input", core.E(core.InvalidInput, "create", "amount must be non-zero", nil), http.StatusUnprocessableEntity, "invalid_input", "amount must be non-zero"},
		{"persistence hides cause", core.PersistenceError("save", errors.New("disk I/O error")), http.StatusInternalServerError, "persistence_error", "storage is unavailable"},
		{"not authenticated", core.ErrNotAuthenticated, http.StatusUnauthorized, CodeUnauthenticated, "sign in required"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, CodeInternal, "something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFromDomain(tt.err).Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode || body.Message != tt.wantMessage {
				t.Errorf("body = %+v, want {%s %s}", body, tt.wantCode, tt.wantMessage)
			}
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		builder    *JSONResponseBuilder
		wantStatus int
		wantCode   string
	}{
		{BadRequestError("nope"), http.StatusBadRequest, CodeBadRequest},
		{UnauthenticatedError(), http.StatusUnauthorized, CodeUnauthenticated},
		{TooManyRequestsError(), http.StatusTooManyRequests, CodeRateLimited},
		{InternalServerError(), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		tt.builder.Write(w)
		if w.Code != tt.wantStatus {
			t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
		}
		if !strings.Contains(w.Body.String(), `"code":"`+tt.wantCode+`"`) {
			t.Errorf("body %q missing code %q", w.Body.String(), tt.wantCode)
		}
	}
}
