package app

import "errors"

var (
	ErrTickInProgress    = errors.New("evaluation tick already in progress")
	ErrInvalidLimit      = errors.New("daily limit must be positive")
	ErrInvalidDelayCycle = errors.New("delay cycle must be a non-empty list of positive day offsets")
	ErrInvalidInvoiceID  = errors.New("invoice has no id")
	ErrUnsupportedStatus = errors.New("invoice status is not reschedulable")

	errMissingSettlementRef = errors.New("charge has no settlement reference")
)
