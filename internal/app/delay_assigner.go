package app

import "time"

// Assignment is the deferral computed for one invoice of a batch.
type Assignment struct {
	Index      int
	InvoiceID  string
	DelayDays  int
	NewInstant int64
}

// DelayAssigner hands out day offsets round-robin over a fixed cycle so a
// deferred batch is spread across several future days.
type DelayAssigner struct {
	cycle []int
	base  time.Time
	clock *PeriodClock
}

// NewDelayAssigner validates the cycle. base is shared by every invoice of the run.
func NewDelayAssigner(cycle []int, base time.Time, pc *PeriodClock) (*DelayAssigner, error) {
	if err := ValidateDelayCycle(cycle); err != nil {
		return nil, err
	}
	c := make([]int, len(cycle))
	copy(c, cycle)
	return &DelayAssigner{cycle: c, base: base, clock: pc}, nil
}

func ValidateDelayCycle(cycle []int) error {
	if len(cycle) == 0 {
		return ErrInvalidDelayCycle
	}
	for _, d := range cycle {
		if d <= 0 {
			return ErrInvalidDelayCycle
		}
	}
	return nil
}

func (a *DelayAssigner) Assign(index int, invoiceID string) Assignment {
	delay := a.cycle[index%len(a.cycle)]
	return Assignment{
		Index:      index,
		InvoiceID:  invoiceID,
		DelayDays:  delay,
		NewInstant: a.clock.NewInstant(a.base, delay),
	}
}
