// internal/app/period_clock.go
package app

import (
	"fmt"
	"time"

	"volume_guard_worker/internal/clock"
	"volume_guard_worker/internal/domain/billing"
)

const tagDateLayout = "2006-01-02"

// PeriodClock answers calendar questions in the account timezone.
type PeriodClock struct {
	clock     clock.Clock
	location  *time.Location
	newDateAt clock.TimeOfDay
}

// NewPeriodClock resolves the timezone once. An unknown zone is a configuration error.
func NewPeriodClock(c clock.Clock, timezone string, newDateAt clock.TimeOfDay) (*PeriodClock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid account timezone %q: %w", timezone, err)
	}
	return &PeriodClock{clock: c, location: loc, newDateAt: newDateAt}, nil
}

func (p *PeriodClock) Now() time.Time {
	return p.clock.Now().In(p.location)
}

func (p *PeriodClock) Location() *time.Location {
	return p.location
}

// CurrentDayPeriod returns today's bounds. End is the next local midnight
// minus one second, so DST days are 23 or 25 hours wide.
func (p *PeriodClock) CurrentDayPeriod() billing.DayPeriod {
	return p.DayPeriodAt(p.Now())
}

func (p *PeriodClock) DayPeriodAt(at time.Time) billing.DayPeriod {
	local := at.In(p.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.location)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, p.location)
	return billing.DayPeriod{Start: start.Unix(), End: next.Unix() - 1}
}

// NewInstant moves base forward by delayDays calendar days and pins the
// configured wall-clock time.
func (p *PeriodClock) NewInstant(base time.Time, delayDays int) int64 {
	local := base.In(p.location)
	t := time.Date(local.Year(), local.Month(), local.Day()+delayDays,
		p.newDateAt.Hour, p.newDateAt.Minute, p.newDateAt.Second, 0, p.location)
	return t.Unix()
}

// Today is the local calendar date used as the reschedule tag value.
func (p *PeriodClock) Today() string {
	return p.Now().Format(tagDateLayout)
}

// Format renders an epoch instant in the account zone for logs.
func (p *PeriodClock) Format(ts int64) string {
	if ts == 0 {
		return "none"
	}
	return time.Unix(ts, 0).In(p.location).Format(time.RFC3339)
}
