// internal/infra/stripestore/store.go
package stripestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"volume_guard_worker/internal/domain/billing"
)

const pageSize = 100

// Store implements billing.Store on top of the Stripe API.
type Store struct {
	api    *client.API
	logger *logrus.Entry
}

// NewStore builds a store for the given secret key. backends may be nil.
func NewStore(secretKey string, backends *stripe.Backends, logger *logrus.Entry) *Store {
	s := &Store{
		api:    client.New(secretKey, backends),
		logger: logger.WithField("component", "stripe_store"),
	}
	s.logger.Info("Stripe store initialized")
	return s
}

func (s *Store) ListEvents(ctx context.Context, period billing.DayPeriod, eventType string, fn func(billing.SettlementEvent) error) error {
	params := &stripe.EventListParams{
		Type: stripe.String(eventType),
		CreatedRange: &stripe.RangeQueryParams{
			GreaterThanOrEqual: period.Start,
			LesserThanOrEqual:  period.End,
		},
	}
	params.Limit = stripe.Int64(pageSize)
	params.Context = ctx

	it := s.api.Events.List(params)
	for it.Next() {
		ev, err := settlementFromEvent(it.Event())
		if err != nil {
			s.logger.WithError(err).Warn("Skipping undecodable charge event")
			continue
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("error listing %s events: %w", eventType, err)
	}
	return nil
}

func (s *Store) GetSettlementDetail(ctx context.Context, settlementRef string) (billing.SettlementDetail, error) {
	params := &stripe.BalanceTransactionParams{}
	params.Context = ctx
	bt, err := s.api.BalanceTransactions.Get(settlementRef, params)
	if err != nil {
		return billing.SettlementDetail{}, fmt.Errorf("error retrieving balance transaction %s: %w", settlementRef, err)
	}
	return billing.SettlementDetail{Amount: bt.Amount, Currency: string(bt.Currency)}, nil
}

func (s *Store) ListInvoices(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	params := &stripe.InvoiceListParams{}
	if filter.Status != "" {
		params.Status = stripe.String(string(filter.Status))
	}
	if filter.DueDateFrom != 0 || filter.DueDateTo != 0 {
		params.DueDateRange = &stripe.RangeQueryParams{
			GreaterThanOrEqual: filter.DueDateFrom,
			LesserThanOrEqual:  filter.DueDateTo,
		}
	}
	params.Limit = stripe.Int64(pageSize)
	params.Context = ctx

	invoices := make([]billing.Invoice, 0)
	it := s.api.Invoices.List(params)
	for it.Next() {
		invoices = append(invoices, toInvoice(it.Invoice()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("error listing %s invoices: %w", filter.Status, err)
	}
	return invoices, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, id string, update billing.InvoiceUpdate) (billing.Invoice, error) {
	params := updateParams(update)
	params.Context = ctx
	inv, err := s.api.Invoices.Update(id, params)
	if err != nil {
		return billing.Invoice{}, fmt.Errorf("error updating invoice %s: %w", id, err)
	}
	return toInvoice(inv), nil
}

func (s *Store) RetrieveInvoice(ctx context.Context, id string) (billing.Invoice, error) {
	params := &stripe.InvoiceParams{}
	params.Context = ctx
	inv, err := s.api.Invoices.Get(id, params)
	if err != nil {
		return billing.Invoice{}, fmt.Errorf("error retrieving invoice %s: %w", id, err)
	}
	return toInvoice(inv), nil
}

func updateParams(update billing.InvoiceUpdate) *stripe.InvoiceParams {
	params := &stripe.InvoiceParams{}
	if update.FinalizesAt != nil {
		params.AutomaticallyFinalizesAt = stripe.Int64(*update.FinalizesAt)
	}
	if update.DueDate != nil {
		params.DueDate = stripe.Int64(*update.DueDate)
	}
	for k, v := range update.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

// settlementFromEvent decodes the charge carried by a charge.succeeded event.
// An unexpanded balance_transaction decodes to an object holding only its id.
func settlementFromEvent(ev *stripe.Event) (billing.SettlementEvent, error) {
	if ev == nil || ev.Data == nil {
		return billing.SettlementEvent{}, fmt.Errorf("event has no data")
	}
	var ch stripe.Charge
	if err := json.Unmarshal(ev.Data.Raw, &ch); err != nil {
		return billing.SettlementEvent{}, fmt.Errorf("event %s: decode charge: %w", ev.ID, err)
	}
	out := billing.SettlementEvent{
		EventID:  ev.ID,
		ChargeID: ch.ID,
		Amount:   ch.Amount,
		Currency: string(ch.Currency),
		Created:  ev.Created,
	}
	if ch.BalanceTransaction != nil {
		out.SettlementRef = ch.BalanceTransaction.ID
	}
	return out, nil
}

func toInvoice(inv *stripe.Invoice) billing.Invoice {
	if inv == nil {
		return billing.Invoice{}
	}
	return billing.Invoice{
		ID:               inv.ID,
		Status:           billing.InvoiceStatus(inv.Status),
		CollectionMethod: billing.CollectionMethod(inv.CollectionMethod),
		DueDate:          inv.DueDate,
		FinalizesAt:      inv.AutomaticallyFinalizesAt,
		AutoAdvance:      inv.AutoAdvance,
		Created:          inv.Created,
		AmountDue:        inv.AmountDue,
		Currency:         string(inv.Currency),
		Metadata:         inv.Metadata,
	}
}
