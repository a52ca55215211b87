// internal/app/volume_guard.go
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"volume_guard_worker/internal/domain/billing"
)

// Settings is the immutable part of the worker configuration.
type Settings struct {
	AccountID  string
	Currency   string
	DelayCycle []int
	DryRun     bool
}

// RuntimeSettings is replaced as a whole on reconfiguration.
type RuntimeSettings struct {
	DailyLimit decimal.Decimal
	UpdatedAt  time.Time
}

// TickSummary is the structured result of one evaluation tick.
type TickSummary struct {
	RunID       string
	Period      billing.DayPeriod
	GrossVolume decimal.Decimal
	DailyLimit  decimal.Decimal
	Breached    bool
	Alerted     bool
	Selected    int
	Batch       BatchSummary
	DryRun      bool
	Duration    time.Duration
}

// VolumeGuard runs the evaluation pipeline: volume, gate, alert, select,
// defer. Ticks never overlap; a tick arriving while another runs is refused.
type VolumeGuard struct {
	settings   Settings
	runtime    atomic.Pointer[RuntimeSettings]
	clock      *PeriodClock
	aggregator *VolumeAggregator
	selector   *InvoiceSelector
	executor   *RescheduleExecutor
	debouncer  *NotificationDebouncer
	recorder   Recorder
	logger     *logrus.Entry
	tickMu     sync.Mutex
}

func NewVolumeGuard(
	settings Settings,
	initialLimit decimal.Decimal,
	pc *PeriodClock,
	aggregator *VolumeAggregator,
	selector *InvoiceSelector,
	executor *RescheduleExecutor,
	debouncer *NotificationDebouncer,
	recorder Recorder,
	logger *logrus.Entry,
) (*VolumeGuard, error) {
	if err := ValidateDelayCycle(settings.DelayCycle); err != nil {
		return nil, err
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	settings.Currency = billing.NormalizeCurrency(settings.Currency)
	g := &VolumeGuard{
		settings:   settings,
		clock:      pc,
		aggregator: aggregator,
		selector:   selector,
		executor:   executor,
		debouncer:  debouncer,
		recorder:   recorder,
		logger:     logger.WithField("component", "volume_guard"),
	}
	if err := g.UpdateLimit(initialLimit); err != nil {
		return nil, err
	}
	return g, nil
}

// UpdateLimit swaps in a new daily limit. The next tick reads it; a tick
// already running keeps the value it started with.
func (g *VolumeGuard) UpdateLimit(limit decimal.Decimal) error {
	if !limit.IsPositive() {
		return ErrInvalidLimit
	}
	g.runtime.Store(&RuntimeSettings{DailyLimit: limit, UpdatedAt: g.clock.Now()})
	g.recorder.LimitObserved(limit)
	g.logger.WithField("daily_limit", limit.String()).Info("Daily limit updated")
	return nil
}

func (g *VolumeGuard) Limit() decimal.Decimal {
	return g.runtime.Load().DailyLimit
}

func (g *VolumeGuard) Settings() Settings {
	return g.settings
}

// ResetNotification is the daily reset action for the alert debouncer.
func (g *VolumeGuard) ResetNotification() {
	g.debouncer.Reset()
}

func (g *VolumeGuard) NotificationState() NotificationState {
	return g.debouncer.State()
}

// CurrentVolume computes today's gross volume without side effects.
func (g *VolumeGuard) CurrentVolume(ctx context.Context) (decimal.Decimal, error) {
	return g.aggregator.GrossVolume(ctx, g.clock.CurrentDayPeriod())
}

// RunTick performs one evaluation. Listing failures abort the tick and are
// returned; per-invoice failures only show up in the summary.
func (g *VolumeGuard) RunTick(ctx context.Context) (summary TickSummary, err error) {
	if !g.tickMu.TryLock() {
		g.logger.Warn("Previous tick still running, skipping this one")
		return TickSummary{}, ErrTickInProgress
	}
	defer g.tickMu.Unlock()

	started := time.Now()
	now := g.clock.Now()
	rt := g.runtime.Load()
	summary = TickSummary{
		RunID:      uuid.NewString(),
		Period:     g.clock.DayPeriodAt(now),
		DailyLimit: rt.DailyLimit,
		DryRun:     g.settings.DryRun,
	}
	log := g.logger.WithField("run_id", summary.RunID)
	log.WithField("period", summary.Period.String()).Info("Evaluation tick started")

	result := "error"
	defer func() {
		summary.Duration = time.Since(started)
		g.recorder.TickFinished(result, summary.Duration)
	}()

	volume, err := g.aggregator.GrossVolume(ctx, summary.Period)
	if err != nil {
		log.WithError(err).Error("Tick aborted: could not compute gross volume")
		return summary, err
	}
	summary.GrossVolume = volume
	summary.Breached = IsBreached(volume, rt.DailyLimit)
	g.recorder.VolumeObserved(volume)

	if !summary.Breached {
		result = "below_limit"
		g.logSummary(log, summary)
		return summary, nil
	}

	summary.Alerted = g.debouncer.ObserveBreach(ctx, Breach{
		AccountID:   g.settings.AccountID,
		Currency:    g.settings.Currency,
		GrossVolume: volume,
		DailyLimit:  rt.DailyLimit,
	})

	invoices, err := g.selector.SelectEligible(ctx, summary.Period)
	if err != nil {
		log.WithError(err).Error("Tick aborted: could not select invoices")
		return summary, err
	}
	summary.Selected = len(invoices)
	if len(invoices) == 0 {
		result = "nothing_to_reschedule"
		log.Info("No unprocessed invoices to reschedule")
		g.logSummary(log, summary)
		return summary, nil
	}

	assigner, err := NewDelayAssigner(g.settings.DelayCycle, now, g.clock)
	if err != nil {
		return summary, fmt.Errorf("failed to build delay assigner: %w", err)
	}
	summary.Batch, _ = g.executor.Execute(ctx, invoices, assigner, g.settings.DryRun, log)

	result = "rescheduled"
	if summary.Batch.Failed > 0 {
		result = "partial_failure"
	}
	g.logSummary(log, summary)
	return summary, nil
}

func (g *VolumeGuard) logSummary(log *logrus.Entry, s TickSummary) {
	log.WithFields(logrus.Fields{
		"gross_volume": s.GrossVolume.StringFixed(2),
		"daily_limit":  s.DailyLimit.StringFixed(2),
		"currency":     g.settings.Currency,
		"breached":     s.Breached,
		"alerted":      s.Alerted,
		"selected":     s.Selected,
		"attempted":    s.Batch.Attempted,
		"succeeded":    s.Batch.Succeeded,
		"failed":       s.Batch.Failed,
		"skipped":      s.Batch.Skipped,
		"dry_run":      s.DryRun,
	}).Info("Evaluation tick finished")
}
