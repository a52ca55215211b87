// internal/domain/billing/currency.go
package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimal lists currencies whose minor unit equals the major unit.
var zeroDecimal = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {},
	"mga": {}, "pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {},
	"xof": {}, "xpf": {},
}

// NormalizeCurrency lower-cases and trims an ISO currency code.
func NormalizeCurrency(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

// SameCurrency compares two currency codes case-insensitively.
func SameCurrency(a, b string) bool {
	return NormalizeCurrency(a) == NormalizeCurrency(b)
}

// FromMinorUnits converts an integer minor-unit amount into major units.
func FromMinorUnits(amount int64, currency string) decimal.Decimal {
	if _, ok := zeroDecimal[NormalizeCurrency(currency)]; ok {
		return decimal.NewFromInt(amount)
	}
	return decimal.New(amount, -2)
}
