package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2025, time.July, 12, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		query     url.Values
		wantYear  int
		wantMonth int
		wantErr   bool
	}{
		{"defaults to now", url.Values{}, 2025, 7, false},
		{"both provided", url.Values{"year": {"2024"}, "month": {"2"}}, 2024, 2, false},
		{"only month", url.Values{"month": {"11"}}, 2025, 11, false},
		{"whitespace trimmed", url.Values{"year": {" 2023 "}}, 2023, 7, false},
		{"out of range passes through", url.Values{"month": {"13"}}, 2025, 13, false},
		{"bad month", url.Values{"month": {"june"}}, 0, 0, true},
		{"bad year", url.Values{"year": {"20x4"}}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthParams(tt.query, now)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("got %d-%d, want %d-%d", got.Year, got.Month, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 5, false},
		{"3", 3, false},
		{"0", 0, false},
		{"500", 100, false},
		{"-2", 0, true},
		{"ten", 0, true},
	}
	for _, tt := range tests {
		q := url.Values{}
		if tt.raw != "" {
			q.Set("limit", tt.raw)
		}
		got, err := ParseLimit(q, 5, 100)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLimit(%q) err=%v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLimit(%q)=%d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-03-09")
	if err != nil || got.Format(time.DateOnly) != "2025-03-09" {
		t.Fatalf("date-only: %v %v", got, err)
	}
	got, err = ParseDate("2025-03-09T15:04:05Z")
	if err != nil || got.Hour() != 15 {
		t.Fatalf("rfc3339: %v %v", got, err)
	}
	if got, err := ParseDate("  "); err != nil || !got.IsZero() {
		t.Fatalf("blank: %v %v", got, err)
	}
	if _, err := ParseDate("09/03/2025"); err == nil {
		t.Fatal("expected error for dd/mm/yyyy")
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name        string
		body        string
		contentType string
		wantErr     string
	}{
		{"valid", `{"name":"x"}`, "application/json", ""},
		{"charset allowed", `{"name":"x"}`, "application/json; charset=utf-8", ""},
		{"no content type", `{"name":"x"}`, "", ""},
		{"form content type", `name=x`, "application/x-www-form-urlencoded", "not application/json"},
		{"empty", ``, "application/json", "empty"},
		{"unknown field", `{"name":"x","extra":1}`, "application/json", "unknown field"},
		{"two objects", `{"name":"x"}{"name":"y"}`, "application/json", "single JSON object"},
		{"too large", `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`, "application/json", "exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			var dst payload
			err := DecodeJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if dst.Name != "x" {
					t.Fatalf("name=%q", dst.Name)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err=%v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  caf\x00e\tbar\x07 "); got != "cafe\tbar" {
		t.Fatalf("sanitizeInput=%q", got)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{`"42.10"`, "42.1", false},
		{`"12,34"`, "12.34", false},
		{`7.005`, "7.01", false},
		{`"0"`, "", true},
		{`"-5"`, "", true},
		{`"1e3"`, "", true},
		{`null`, "", true},
		{``, "", true},
	}
	for _, tt := range tests {
		got, err := ParseAmount(json.RawMessage(tt.raw))
		if tt.wantErr {
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Errorf("ParseAmount(%s) err=%v, want invalid input", tt.raw, err)
			}
			continue
		}
		if err != nil || got.String() != tt.want {
			t.Errorf("ParseAmount(%s)=%s, %v, want %s", tt.raw, got, err, tt.want)
		}
	}
}
