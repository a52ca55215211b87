// internal/domain/billing/store.go
package billing

import "context"

// Store is the remote invoice store. The worker depends on nothing else from
// the payment provider.
type Store interface {
	// ListEvents streams events of the given type created inside the period.
	// Pages are fetched lazily; fn is called once per event in order.
	ListEvents(ctx context.Context, period DayPeriod, eventType string, fn func(SettlementEvent) error) error
	GetSettlementDetail(ctx context.Context, settlementRef string) (SettlementDetail, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)
	UpdateInvoice(ctx context.Context, id string, update InvoiceUpdate) (Invoice, error)
	RetrieveInvoice(ctx context.Context, id string) (Invoice, error)
}
