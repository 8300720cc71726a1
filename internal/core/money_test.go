package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		err error
	}{
		{"1", "1.00", nil},
		{"1.0", "1.00", nil},
		{"1.23", "1.23", nil},
		{"1,23", "1.23", nil},
		{"0.01", "0.01", nil},
		{"1.005", "1.01", nil}, // half-up rounding
		{" 2.50 ", "2.50", nil},
		{"4.5", "4.50", nil},
		{"-1", "", ErrInvalidAmount},
		{"+1", "", ErrInvalidAmount},
		{"4.5e0", "4.50", nil},
		{"1E3", "1000.00", nil},
		{"125e-2", "1.25", nil},
		{"9999999999.99", "9999999999.99", nil},
		{"10000000000", "", ErrInvalidAmount},
		{"123456789012345.99", "", ErrInvalidAmount},
		{"1e10", "", ErrInvalidAmount},
		{"1e999999999", "", ErrInvalidAmount},
		{"1e", "", ErrInvalidAmount},
		{"abc", "", ErrInvalidAmount},
		{"1.2.3", "", ErrInvalidAmount},
		{"0", "", ErrMissingAmount},
		{"0.001", "", ErrMissingAmount},
		{"", "", ErrMissingAmount},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("%q expected %v, got %v", tc.in, tc.err, err)
			}
			continue
		}
		if err != nil || got.String() != tc.out {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
		}
	}
}

func TestMoneyJSONTrimsTrailingZeros(t *testing.T) {
	m, err := ParseAmount("4.50")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "4.5" {
		t.Fatalf("expected 4.5, got %s", b)
	}

	b, _ = json.Marshal(ZeroMoney())
	if string(b) != "0" {
		t.Fatalf("expected 0, got %s", b)
	}
}

func TestMoneyScan(t *testing.T) {
	cases := []struct {
		src  any
		want string
	}{
		{[]byte("1234.50"), "1234.50"},
		{"0.10", "0.10"},
		{0.1 + 0.2, "0.30"},
		{int64(7), "7.00"},
		{nil, "0.00"},
	}
	for _, tc := range cases {
		var m Money
		if err := m.Scan(tc.src); err != nil {
			t.Fatalf("scan %v: %v", tc.src, err)
		}
		if m.String() != tc.want {
			t.Fatalf("scan %v: expected %s, got %s", tc.src, tc.want, m)
		}
	}
}

func TestMoneyAddIsExact(t *testing.T) {
	sum := ZeroMoney()
	for i := 0; i < 1000; i++ {
		sum = sum.Add(MoneyFromCents(10))
	}
	if !sum.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected 100, got %s", sum)
	}
	if sum.Cents() != 10000 {
		t.Fatalf("expected 10000 cents, got %d", sum.Cents())
	}
}
