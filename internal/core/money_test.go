package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1e3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseQuantity(t *testing.T) {
	q, err := ParseQuantity("")
	if err != nil || q.Valid {
		t.Fatalf("empty quantity should be absent, got %+v err=%v", q, err)
	}
	q, err = ParseQuantity("12,5")
	if err != nil || !q.Valid || q.Decimal.String() != "12.5" {
		t.Fatalf("expected 12.5, got %+v err=%v", q, err)
	}
	if _, err := ParseQuantity("-3"); err == nil {
		t.Fatalf("expected error for negative quantity")
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 1050}
	b := Money{Cents: 2000}
	if got := a.Sub(b); got.Cents != -950 || got.String() != "-9.50" {
		t.Fatalf("unexpected difference %v", got)
	}
	if got := a.Mul(3); got.Cents != 3150 {
		t.Fatalf("unexpected product %v", got)
	}
	if got := a.Add(b).String(); got != "30.50" {
		t.Fatalf("unexpected sum %s", got)
	}
}
