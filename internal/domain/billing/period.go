// internal/domain/billing/period.go
package billing

import "fmt"

// DayPeriod is one calendar day in the account timezone.
// Both bounds are inclusive epoch seconds.
type DayPeriod struct {
	Start int64
	End   int64
}

// Contains reports whether ts lies inside the period, bounds included.
func (p DayPeriod) Contains(ts int64) bool {
	return ts >= p.Start && ts <= p.End
}

func (p DayPeriod) String() string {
	return fmt.Sprintf("[%d, %d]", p.Start, p.End)
}
