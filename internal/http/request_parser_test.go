package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"pgexpense/internal/core"
)

func newParser(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return NewRequestBodyParser(httptest.NewRecorder(), req)
}

func TestRequestBodyParser_JSON(t *testing.T) {
	p := newParser(t, "application/json", `{"description":" Coffee\u0001 ","amount":4.50,"flag":true}`)

	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !p.IsJSON() {
		t.Error("IsJSON() = false, want true")
	}
	if got := p.Get("description"); got != "Coffee" {
		t.Errorf("Get(description) = %q, want %q", got, "Coffee")
	}
	// UseNumber keeps the literal as written.
	if got := p.Get("amount"); got != "4.50" {
		t.Errorf("Get(amount) = %q, want %q", got, "4.50")
	}
	if got := p.Get("flag"); got != "true" {
		t.Errorf("Get(flag) = %q, want %q", got, "true")
	}
	if got := p.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	p := newParser(t, "application/x-www-form-urlencoded", "description=Bus+fare&amount=2%2C75")

	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.IsJSON() {
		t.Error("IsJSON() = true, want false")
	}
	if got := p.Get("description"); got != "Bus fare" {
		t.Errorf("Get(description) = %q, want %q", got, "Bus fare")
	}
	if got := p.Get("amount"); got != "2,75" {
		t.Errorf("Get(amount) = %q, want %q", got, "2,75")
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"malformed json", "application/json", `{"description":`},
		{"json array", "application/json", `[1,2]`},
		{"oversized body", "application/x-www-form-urlencoded", "description=" + strings.Repeat("x", MaxBodyBytes+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := newParser(t, tt.contentType, tt.body).Parse(); err == nil {
				t.Error("Parse() error = nil, want error")
			}
		})
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	p := newParser(t, "", "")
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := p.Get("description"); got != "" {
		t.Errorf("Get(description) = %q, want empty", got)
	}
}

func TestParseNewExpense(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		check   func(t *testing.T, e core.NewExpense)
	}{
		{
			name: "full record",
			body: `{"description":"Coffee","amount":"4.50","category":"Food & Dining","date":"2024-01-15"}`,
			check: func(t *testing.T, e core.NewExpense) {
				if e.Amount.String() != "4.50" {
					t.Errorf("Amount = %s, want 4.50", e.Amount)
				}
				if e.Category == nil || *e.Category != core.CategoryFood {
					t.Errorf("Category = %v, want %q", e.Category, core.CategoryFood)
				}
				if e.Date.String() != "2024-01-15" {
					t.Errorf("Date = %s, want 2024-01-15", e.Date)
				}
			},
		},
		{
			name: "defaults",
			body: `{"description":"Coffee","amount":3,"category":"  "}`,
			check: func(t *testing.T, e core.NewExpense) {
				if e.Category != nil {
					t.Errorf("Category = %q, want nil", *e.Category)
				}
				if !e.Date.Equal(core.Today().Time) {
					t.Errorf("Date = %s, want today", e.Date)
				}
			},
		},
		{name: "missing description", body: `{"amount":"1"}`, wantErr: errRequiredFields},
		{name: "zero amount", body: `{"description":"x","amount":"0.00"}`, wantErr: errRequiredFields},
		{name: "bad amount", body: `{"description":"x","amount":"1.2.3"}`, wantErr: core.ErrInvalidAmount},
		{name: "bad date", body: `{"description":"x","amount":"1","date":"2024-02-30"}`, wantErr: core.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, "application/json", tt.body)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			got, err := ParseNewExpense(p)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseNewExpense() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseNewExpense() error = %v", err)
			}
			tt.check(t, got)
		})
	}
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(url.Values{
		"startDate": {"2024-01-01"},
		"endDate":   {" 2024-01-31 "},
		"category":  {"Travel"},
	})
	if err != nil {
		t.Fatalf("ParseFilter() error = %v", err)
	}
	if f.StartDate == nil || f.StartDate.String() != "2024-01-01" {
		t.Errorf("StartDate = %v, want 2024-01-01", f.StartDate)
	}
	if f.EndDate == nil || f.EndDate.String() != "2024-01-31" {
		t.Errorf("EndDate = %v, want 2024-01-31", f.EndDate)
	}
	if f.Category != "Travel" {
		t.Errorf("Category = %q, want Travel", f.Category)
	}

	empty, err := ParseFilter(url.Values{"startDate": {""}})
	if err != nil {
		t.Fatalf("ParseFilter(blank) error = %v", err)
	}
	if empty.StartDate != nil || empty.EndDate != nil || empty.Category != "" {
		t.Errorf("ParseFilter(blank) = %+v, want zero filter", empty)
	}

	if _, err := ParseFilter(url.Values{"endDate": {"31-01-2024"}}); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("ParseFilter(bad) error = %v, want ErrInvalidDate", err)
	}
}
