package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in       string
		dayFirst bool
		want     string
	}{
		{"2024-01-12", true, "2024-01-12"},
		{"2024/01/12", true, "2024-01-12"},
		{"12/01/2024", true, "2024-01-12"},
		{"12/01/2024", false, "2024-12-01"},
		{"01-12-2024", false, "2024-01-12"},
		{"12.01.2024", true, "2024-01-12"},
		{"January 12, 2024", true, "2024-01-12"},
		{"12 Jan 2024", true, "2024-01-12"},
		{"12-Jan-2024", true, "2024-01-12"},
		{"31/12/2024", false, "2024-12-31"}, // impossible month-first, falls back
		{" 2024-01-12 ", true, "2024-01-12"},
	}
	for _, tc := range cases {
		got, err := NormalizeDate(tc.in, tc.dayFirst)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestNormalizeDate_Rejects(t *testing.T) {
	for _, in := range []string{"", "not a date", "99/99/2024", "12/01/24", "2024-13-40"} {
		_, err := NormalizeDate(in, true)
		assert.Error(t, err, "input %q", in)
	}
}

func TestNormalizeAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1234.56", 1234.56},
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"1.234.567,89", 1234567.89},
		{"1,234,567.89", 1234567.89},
		{"1,23", 1.23},
		{"0.125", 0.125},
		{"1,234", 1234},
		{"100", 100},
		{"-42,50", -42.5},
		{" 99.90 ", 99.9},
	}
	for _, tc := range cases {
		got, err := NormalizeAmount(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.InDelta(t, tc.want, got, 1e-9, "input %q", tc.in)
	}
}

func TestNormalizeAmount_Rejects(t *testing.T) {
	for _, in := range []string{"", "abc", "12.34.56,78.90x"} {
		_, err := NormalizeAmount(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestNormalizeCurrency(t *testing.T) {
	for in, want := range map[string]string{"usd": "USD", "EUR": "EUR", " gbp ": "GBP", "jpy": "JPY"} {
		got, err := NormalizeCurrency(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"", "US", "DOLLARS", "XXX1", "???"} {
		_, err := NormalizeCurrency(in)
		assert.Error(t, err, "input %q", in)
	}
}
