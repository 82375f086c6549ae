package types

import "testing"

func TestFormatRand(t *testing.T) {
	cases := []struct {
		minor int64
		want  string
	}{
		{0, "0.00"},
		{5000, "50.00"},
		{10605, "106.05"},
		{-150, "-1.50"},
	}
	for _, tc := range cases {
		if got := FormatRand(tc.minor); got != tc.want {
			t.Fatalf("FormatRand(%d) = %s, want %s", tc.minor, got, tc.want)
		}
	}
}
