// internal/app/invoice_selector.go
package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"volume_guard_worker/internal/domain/billing"
)

// InvoiceSelector finds the invoices to defer for a period: auto-advancing
// drafts that finalize inside it and open invoices due inside it. Anything
// already carrying a reschedule tag is excluded.
type InvoiceSelector struct {
	store  billing.Store
	logger *logrus.Entry
}

func NewInvoiceSelector(store billing.Store, logger *logrus.Entry) *InvoiceSelector {
	return &InvoiceSelector{
		store:  store,
		logger: logger.WithField("component", "invoice_selector"),
	}
}

// SelectEligible returns candidates ordered by creation time, then id.
func (s *InvoiceSelector) SelectEligible(ctx context.Context, period billing.DayPeriod) ([]billing.Invoice, error) {
	drafts, err := s.store.ListInvoices(ctx, billing.InvoiceFilter{Status: billing.InvoiceStatusDraft})
	if err != nil {
		return nil, fmt.Errorf("failed to list draft invoices: %w", err)
	}
	open, err := s.store.ListInvoices(ctx, billing.InvoiceFilter{
		Status:      billing.InvoiceStatusOpen,
		DueDateFrom: period.Start,
		DueDateTo:   period.End,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list open invoices: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"drafts": len(drafts),
		"open":   len(open),
	}).Info("Invoices fetched, filtering")

	seen := make(map[string]struct{}, len(drafts)+len(open))
	eligible := make([]billing.Invoice, 0)
	tagged := 0
	for _, inv := range append(drafts, open...) {
		if !isInPeriod(inv, period) {
			continue
		}
		if tag, ok := inv.RescheduleTag(); ok {
			tagged++
			s.logger.WithFields(logrus.Fields{"invoice_id": inv.ID, "tag": tag}).Debug("Invoice already rescheduled, skipping")
			continue
		}
		if inv.ID != "" {
			if _, dup := seen[inv.ID]; dup {
				continue
			}
			seen[inv.ID] = struct{}{}
		}
		eligible = append(eligible, inv)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Created != eligible[j].Created {
			return eligible[i].Created < eligible[j].Created
		}
		return eligible[i].ID < eligible[j].ID
	})

	s.logger.WithFields(logrus.Fields{
		"eligible":        len(eligible),
		"already_tagged": tagged,
	}).Info("Eligible invoices selected")
	return eligible, nil
}

func isInPeriod(inv billing.Invoice, period billing.DayPeriod) bool {
	switch inv.Status {
	case billing.InvoiceStatusDraft:
		return inv.AutoAdvance && inv.FinalizesAt != 0 && period.Contains(inv.FinalizesAt)
	case billing.InvoiceStatusOpen:
		return inv.DueDate != 0 && period.Contains(inv.DueDate)
	default:
		return false
	}
}
