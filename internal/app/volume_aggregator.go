// internal/app/volume_aggregator.go
package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"volume_guard_worker/internal/domain/billing"
)

const defaultLookupConcurrency = 8

// VolumeAggregator sums the settled amount of every succeeded charge in a
// period. Settlement lookups that fail are left out of the sum.
type VolumeAggregator struct {
	store       billing.Store
	currency    string
	concurrency int
	recorder    Recorder
	logger      *logrus.Entry
}

func NewVolumeAggregator(store billing.Store, currency string, concurrency int, recorder Recorder, logger *logrus.Entry) *VolumeAggregator {
	if concurrency <= 0 {
		concurrency = defaultLookupConcurrency
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &VolumeAggregator{
		store:       store,
		currency:    billing.NormalizeCurrency(currency),
		concurrency: concurrency,
		recorder:    recorder,
		logger:      logger.WithField("component", "volume_aggregator"),
	}
}

type lookupResult struct {
	event  billing.SettlementEvent
	detail billing.SettlementDetail
	err    error
}

// GrossVolume returns the period's volume in the account currency. Only a
// failure to enumerate events is returned as an error.
func (a *VolumeAggregator) GrossVolume(ctx context.Context, period billing.DayPeriod) (decimal.Decimal, error) {
	var events []billing.SettlementEvent
	err := a.store.ListEvents(ctx, period, billing.EventTypeChargeSucceeded, func(ev billing.SettlementEvent) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list settlement events: %w", err)
	}
	if len(events) == 0 {
		a.logger.Info("No succeeded charges found for period")
		return decimal.Zero, nil
	}

	results := make([]lookupResult, len(events))
	g := new(errgroup.Group)
	g.SetLimit(a.concurrency)
	for i, ev := range events {
		if ev.SettlementRef == "" {
			a.logger.WithField("charge_id", ev.ChargeID).Warn("Charge has no balance transaction, skipping")
			results[i] = lookupResult{event: ev, err: errMissingSettlementRef}
			continue
		}
		g.Go(func() error {
			detail, err := a.store.GetSettlementDetail(ctx, ev.SettlementRef)
			results[i] = lookupResult{event: ev, detail: detail, err: err}
			return nil
		})
	}
	_ = g.Wait()

	total := decimal.Zero
	for _, r := range results {
		if r.err != nil {
			if r.err != errMissingSettlementRef {
				a.recorder.SettlementLookupFailed()
				a.logger.WithFields(logrus.Fields{
					"charge_id":      r.event.ChargeID,
					"settlement_ref": r.event.SettlementRef,
				}).WithError(r.err).Error("Failed to retrieve balance transaction for charge")
			}
			continue
		}
		entry := a.logger.WithFields(logrus.Fields{
			"charge_id":           r.event.ChargeID,
			"charge_amount":       billing.FromMinorUnits(r.event.Amount, r.event.Currency).StringFixed(2),
			"charge_currency":     billing.NormalizeCurrency(r.event.Currency),
			"settled_amount":      billing.FromMinorUnits(r.detail.Amount, r.detail.Currency).StringFixed(2),
			"settlement_currency": billing.NormalizeCurrency(r.detail.Currency),
		})
		if !billing.SameCurrency(r.detail.Currency, a.currency) {
			entry.Warn("Settlement currency differs from account currency, excluded")
			continue
		}
		entry.Debug("Charge settled")
		total = total.Add(billing.FromMinorUnits(r.detail.Amount, r.detail.Currency))
	}

	a.logger.WithFields(logrus.Fields{
		"period":       period.String(),
		"charges":      len(events),
		"gross_volume": total.StringFixed(2),
		"currency":     a.currency,
	}).Info("Gross volume calculated")
	return total, nil
}
