package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"300", 30000, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
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
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	m := Money{Cents: 5000}
	if got := m.Times(24); got.Cents != 120000 {
		t.Fatalf("Times: got %d", got.Cents)
	}
	if got := (Money{Cents: 750000}).Percent(10); got.Cents != 75000 {
		t.Fatalf("Percent: got %d", got.Cents)
	}
	if got := (Money{Cents: 1}).Percent(50); got.Cents != 1 {
		t.Fatalf("Percent rounding: got %d", got.Cents)
	}
	if got := (Money{Cents: 100}).Sub(Money{Cents: 250}).Abs(); got.Cents != 150 {
		t.Fatalf("Abs: got %d", got.Cents)
	}
	if got := FromUnits(0.1 + 0.2); got.Cents != 30 {
		t.Fatalf("FromUnits: got %d", got.Cents)
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		120050: "1200.50",
		-25000: "-250.00",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}
