// internal/app/reschedule_executor.go
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"volume_guard_worker/internal/domain/billing"
)

// OutcomeStatus is the result of applying one reschedule.
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeDryRun    OutcomeStatus = "dry_run"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeSkipped   OutcomeStatus = "skipped"
)

// Outcome describes what happened (or, in dry-run, would have happened) to one invoice.
type Outcome struct {
	InvoiceID  string
	Status     OutcomeStatus
	Assignment Assignment
	Update     billing.InvoiceUpdate
	Err        error
}

// BatchSummary is the fold of every Outcome of a batch. Skipped invoices are
// not attempted.
type BatchSummary struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
}

func (b BatchSummary) add(o Outcome) BatchSummary {
	switch o.Status {
	case OutcomeSucceeded, OutcomeDryRun:
		b.Attempted++
		b.Succeeded++
	case OutcomeFailed:
		b.Attempted++
		b.Failed++
	case OutcomeSkipped:
		b.Skipped++
	}
	return b
}

// Rescheduled is passed to post-reschedule hooks after a real mutation.
type Rescheduled struct {
	Invoice    billing.Invoice
	Assignment Assignment
	TaggedOn   string
}

// PostRescheduleHook runs after each successful non-dry-run reschedule.
// Errors are logged and never change the outcome.
type PostRescheduleHook interface {
	Name() string
	AfterReschedule(ctx context.Context, r Rescheduled) error
}

type RescheduleExecutor struct {
	store    billing.Store
	clock    *PeriodClock
	hooks    []PostRescheduleHook
	recorder Recorder
	logger   *logrus.Entry
}

func NewRescheduleExecutor(store billing.Store, pc *PeriodClock, hooks []PostRescheduleHook, recorder Recorder, logger *logrus.Entry) *RescheduleExecutor {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &RescheduleExecutor{
		store:    store,
		clock:    pc,
		hooks:    hooks,
		recorder: recorder,
		logger:   logger.WithField("component", "reschedule_executor"),
	}
}

// BuildUpdate picks the date fields to move for an invoice. Manual-collection
// drafts carry their own due date, which moves together with finalization.
func BuildUpdate(inv billing.Invoice, newInstant int64, tagDate string) (billing.InvoiceUpdate, error) {
	ts := newInstant
	update := billing.InvoiceUpdate{
		Metadata: map[string]string{billing.RescheduleTagKey: tagDate},
	}
	switch inv.Status {
	case billing.InvoiceStatusDraft:
		update.FinalizesAt = &ts
		if inv.CollectionMethod == billing.CollectionSendInvoice {
			update.DueDate = &ts
		}
	case billing.InvoiceStatusOpen:
		update.DueDate = &ts
	default:
		return billing.InvoiceUpdate{}, fmt.Errorf("%w: %q", ErrUnsupportedStatus, inv.Status)
	}
	return update, nil
}

// Apply reschedules a single invoice. It never panics on bad input.
func (e *RescheduleExecutor) Apply(ctx context.Context, inv billing.Invoice, a Assignment, dryRun bool, logger *logrus.Entry) Outcome {
	if logger == nil {
		logger = e.logger
	}
	out := Outcome{InvoiceID: inv.ID, Assignment: a}
	if !inv.HasValidID() {
		out.Status, out.Err = OutcomeSkipped, ErrInvalidInvoiceID
		logger.WithField("index", a.Index).Warn("Skipping invoice with empty id")
		return out
	}

	log := logger.WithFields(logrus.Fields{
		"invoice_id":        inv.ID,
		"status":            inv.Status,
		"collection_method": inv.CollectionMethod,
		"delay_days":        a.DelayDays,
		"current_due_date":  e.clock.Format(inv.DueDate),
		"current_finalize":  e.clock.Format(inv.FinalizesAt),
		"new_date":          e.clock.Format(a.NewInstant),
		"dry_run":           dryRun,
	})

	update, err := BuildUpdate(inv, a.NewInstant, e.clock.Today())
	if err != nil {
		out.Status, out.Err = OutcomeSkipped, err
		log.WithError(err).Warn("Skipping invoice")
		return out
	}
	out.Update = update

	if dryRun {
		out.Status = OutcomeDryRun
		log.Info("Dry-run: invoice not updated")
		return out
	}

	updated, err := e.store.UpdateInvoice(ctx, inv.ID, update)
	if err != nil {
		out.Status, out.Err = OutcomeFailed, err
		log.WithError(err).Warn("Failed to reschedule invoice, continuing with the next one")
		return out
	}
	if updated.ID == "" {
		updated = inv
	}
	out.Status = OutcomeSucceeded
	log.Info("Invoice rescheduled")

	e.runHooks(ctx, Rescheduled{Invoice: updated, Assignment: a, TaggedOn: update.Metadata[billing.RescheduleTagKey]}, log)
	return out
}

// Execute processes a batch sequentially in the given order. Index i of the
// batch always receives the i-th offset of the cycle.
func (e *RescheduleExecutor) Execute(ctx context.Context, invoices []billing.Invoice, assigner *DelayAssigner, dryRun bool, logger *logrus.Entry) (BatchSummary, []Outcome) {
	var summary BatchSummary
	outcomes := make([]Outcome, 0, len(invoices))
	for i, inv := range invoices {
		var o Outcome
		if err := ctx.Err(); err != nil {
			o = Outcome{InvoiceID: inv.ID, Status: OutcomeFailed, Err: err}
		} else {
			o = e.Apply(ctx, inv, assigner.Assign(i, inv.ID), dryRun, logger)
		}
		summary = summary.add(o)
		outcomes = append(outcomes, o)
		e.recorder.InvoiceOutcome(string(o.Status))
	}
	return summary, outcomes
}

func (e *RescheduleExecutor) runHooks(ctx context.Context, r Rescheduled, log *logrus.Entry) {
	for _, h := range e.hooks {
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.WithField("hook", h.Name()).Errorf("Post-reschedule hook panicked: %v", p)
				}
			}()
			if err := h.AfterReschedule(ctx, r); err != nil {
				log.WithField("hook", h.Name()).WithError(err).Warn("Post-reschedule hook failed")
			}
		}()
	}
}
