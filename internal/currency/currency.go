// Package currency converts quote totals with a static rate table and renders
// them in en-US currency notation.
package currency

import (
	"errors"
	"math"
	"sort"
	"strings"

	xcurrency "golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Base is the currency all prices are stored in.
const Base = "USD"

var ErrUnknownCurrency = errors.New("currency: unknown currency code")

var rates = map[string]float64{
	"USD": 1.0,
	"EUR": 0.85,
	"GBP": 0.73,
	"CAD": 1.25,
	"AUD": 1.35,
	"AED": 3.67,
	"JPY": 110.0,
	"INR": 74.5,
}

// en-US symbols; codes without one render as "CODE 1.00".
var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"CAD": "CA$",
	"AUD": "A$",
	"JPY": "¥",
	"INR": "₹",
}

var printer = message.NewPrinter(language.AmericanEnglish)

// Rates returns a copy of the static exchange-rate table keyed by ISO code.
func Rates() map[string]float64 {
	out := make(map[string]float64, len(rates))
	for k, v := range rates {
		out[k] = v
	}
	return out
}

// Codes lists the supported currency codes in alphabetical order.
func Codes() []string {
	codes := make([]string, 0, len(rates))
	for k := range rates {
		codes = append(codes, k)
	}
	sort.Strings(codes)
	return codes
}

// Rate looks up the rate for code.
func Rate(code string) (float64, bool) {
	r, ok := rates[strings.ToUpper(strings.TrimSpace(code))]
	return r, ok
}

// Convert multiplies amount by rate.
func Convert(amount, rate float64) float64 {
	return amount * rate
}

// ConvertTo converts a base-currency amount into code.
func ConvertTo(amount float64, code string) (float64, error) {
	r, ok := Rate(code)
	if !ok {
		return 0, ErrUnknownCurrency
	}
	return Convert(amount, r), nil
}

// Format renders amount using the symbol and minor-unit precision of code,
// for example "$1,234.50" or "¥220,000".
func Format(amount float64, code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := xcurrency.ParseISO(code)
	if err != nil {
		return "", ErrUnknownCurrency
	}
	scale, _ := xcurrency.Standard.Rounding(unit)

	sign := ""
	if amount < 0 {
		sign = "-"
		amount = math.Abs(amount)
	}
	// number.Decimal rounds ties to even; amounts round half away from zero.
	pow := math.Pow10(scale)
	amount = math.Round(amount*pow) / pow
	digits := printer.Sprint(number.Decimal(amount, number.Scale(scale)))
	if sym, ok := symbols[code]; ok {
		return sign + sym + digits, nil
	}
	return sign + code + " " + digits, nil
}
