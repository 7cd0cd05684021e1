package extractor

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Rates converts a USD amount into colones.
type Rates struct {
	// TaxFactor is the sales-tax multiplier (1.13 for 13% IVA).
	TaxFactor float64

	// ExchangeRate is CRC per USD.
	ExchangeRate float64

	// TaxFirst applies TaxFactor before ExchangeRate. Both orders agree up to
	// floating-point rounding; the flag pins which one is used.
	TaxFirst bool
}

// DefaultRates returns the 13% tax and 505 CRC/USD rate.
func DefaultRates() Rates {
	return Rates{TaxFactor: 1.13, ExchangeRate: 505, TaxFirst: true}
}

// Convert applies tax and exchange rate to usd without rounding.
func (r Rates) Convert(usd float64) float64 {
	if r.TaxFirst {
		return usd * r.TaxFactor * r.ExchangeRate
	}
	return usd * r.ExchangeRate * r.TaxFactor
}

// priceRun matches the first number in displayed price text: digits with
// optional thousands commas and at most one decimal point. A decimal point
// must be followed by a digit, so "185." yields "185".
var priceRun = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?|\.\d+`)

// NormalizePrice turns displayed price text such as "$1,299.50" into the
// canonical USD string ("1299.50") and the rounded CRC string.
//
// Both results are "" when the text holds no number, or the number is not
// finite and strictly positive.
func NormalizePrice(raw string, rates Rates) (usd, crc string) {
	run := priceRun.FindString(raw)
	if run == "" {
		return "", ""
	}

	canonical := strings.ReplaceAll(run, ",", "")
	amount, err := strconv.ParseFloat(canonical, 64)
	if err != nil || !isPositive(amount) {
		return "", ""
	}

	converted := math.Round(rates.Convert(amount))
	if math.IsInf(converted, 0) || math.IsNaN(converted) {
		return "", ""
	}

	return canonical, strconv.FormatFloat(converted, 'f', 0, 64)
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
