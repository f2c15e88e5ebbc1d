package currency

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	require.InDelta(t, 1700, Convert(2000, 0.85), 1e-9)

	got, err := ConvertTo(2000, "jpy")
	require.NoError(t, err)
	require.InDelta(t, 220000, got, 1e-9)

	_, err = ConvertTo(1, "XYZ")
	require.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestFormat(t *testing.T) {
	cases := []struct {
		amount float64
		code   string
		want   string
	}{
		{2200, "USD", "$2,200.00"},
		{1234.5, "EUR", "€1,234.50"},
		{220000, "JPY", "¥220,000"},
		{12.3, "INR", "₹12.30"},
		{-5, "GBP", "-£5.00"},
		{10, "AED", "AED 10.00"},
		{0.125, "USD", "$0.13"},
		{2.5, "JPY", "¥3"},
		{-0.125, "USD", "-$0.13"},
	}
	for _, tc := range cases {
		got, err := Format(tc.amount, tc.code)
		require.NoError(t, err, tc.code)
		require.Equal(t, tc.want, got, tc.code)
	}

	_, err := Format(1, "??")
	require.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestRatesAreCopied(t *testing.T) {
	r := Rates()
	r["USD"] = 42
	rate, ok := Rate("USD")
	require.True(t, ok)
	require.Equal(t, 1.0, rate)
	require.Equal(t, []string{"AED", "AUD", "CAD", "EUR", "GBP", "INR", "JPY", "USD"}, Codes())
}
