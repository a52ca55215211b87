package app

import "github.com/shopspring/decimal"

// IsBreached reports whether the daily limit has been reached. The boundary counts.
func IsBreached(grossVolume, dailyLimit decimal.Decimal) bool {
	return grossVolume.GreaterThanOrEqual(dailyLimit)
}
