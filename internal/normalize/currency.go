package normalize

import (
	"math"
	"strings"
)

// usdRates is a static approximate per-unit value in USD. Conversion here is
// a display convenience, not an authoritative FX source; the original amount
// and currency are always persisted alongside the converted value. The table
// is process-wide read-only configuration.
var usdRates = map[string]float64{
	"USD": 1.0,
	"EUR": 1.09,
	"GBP": 1.27,
	"INR": 0.012,
	"CAD": 0.74,
	"AUD": 0.66,
	"JPY": 0.0067,
	"SGD": 0.74,
	"AED": 0.27,
	"PHP": 0.018,
	"MXN": 0.058,
	"BRL": 0.18,
	"CHF": 1.13,
	"CNY": 0.14,
}

// KnownCurrency reports whether code appears in the static rate table.
func KnownCurrency(code string) bool {
	_, ok := usdRates[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// Convert converts amount from one currency to another through the static
// rate table and rounds to cents. Same-currency conversion is the identity.
// An unknown source or target currency also yields the amount unchanged: a
// wrong display value is better than a dropped transaction.
func Convert(amount float64, from, to string) float64 {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return amount
	}

	fromRate, okFrom := usdRates[from]
	toRate, okTo := usdRates[to]
	if !okFrom || !okTo {
		return amount
	}

	return roundCents(amount * fromRate / toRate)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
