package app

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recorder receives tick-level signals. The metrics package provides the
// Prometheus implementation.
type Recorder interface {
	TickFinished(result string, d time.Duration)
	VolumeObserved(volume decimal.Decimal)
	LimitObserved(limit decimal.Decimal)
	InvoiceOutcome(outcome string)
	AlertSent()
	SettlementLookupFailed()
}

type NopRecorder struct{}

func (NopRecorder) TickFinished(string, time.Duration) {}
func (NopRecorder) VolumeObserved(decimal.Decimal) {}
func (NopRecorder) LimitObserved(decimal.Decimal) {}
func (NopRecorder) InvoiceOutcome(string) {}
func (NopRecorder) AlertSent() {}
func (NopRecorder) SettlementLookupFailed() {}
