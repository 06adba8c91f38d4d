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
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{".", 0, false},
		{",", 0, false},
		{".5", 50, true},
		{"5.", 500, true},
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

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{0: "0.00", 5: "0.05", 1234: "12.34", -250: "-2.50"}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyUnmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{`12.34`, 1234, true},
		{`"7,5"`, 750, true},
		{`0`, 0, true},
		{`1e2`, 10000, true},
		{`-3`, 0, false},
	}
	for _, tc := range cases {
		var m Money
		err := m.UnmarshalJSON([]byte(tc.in))
		if tc.ok && (err != nil || m.Cents != tc.want) {
			t.Fatalf("%s: got %d err=%v, want %d", tc.in, m.Cents, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected error", tc.in)
		}
	}
}
