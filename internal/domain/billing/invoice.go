// internal/domain/billing/invoice.go
package billing

import "strings"

// InvoiceStatus mirrors the remote store's invoice lifecycle.
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusOpen  InvoiceStatus = "open"
)

// CollectionMethod describes how the remote store collects payment.
type CollectionMethod string

const (
	CollectionChargeAutomatically CollectionMethod = "charge_automatically"
	CollectionSendInvoice         CollectionMethod = "send_invoice"
)

// RescheduleTagKey is the metadata key written onto every rescheduled invoice.
// Its value is the account-local calendar date (YYYY-MM-DD) of the reschedule.
const RescheduleTagKey = "volume_guard_rescheduled_at"

// Invoice is the subset of a remote invoice this worker reads.
// Zero instants mean "not set".
type Invoice struct {
	ID               string
	Status           InvoiceStatus
	CollectionMethod CollectionMethod
	DueDate          int64 // epoch seconds
	FinalizesAt      int64 // epoch seconds, drafts only
	AutoAdvance      bool  // drafts only
	Created          int64 // epoch seconds
	AmountDue        int64 // minor units
	Currency         string
	Metadata         map[string]string
}

// RescheduleTag returns the tag value and whether the invoice carries one.
func (i Invoice) RescheduleTag() (string, bool) {
	v, ok := i.Metadata[RescheduleTagKey]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// HasValidID reports whether the invoice can participate in a reschedule.
func (i Invoice) HasValidID() bool {
	return strings.TrimSpace(i.ID) != ""
}

// InvoiceUpdate is a partial update. Nil fields are left untouched.
type InvoiceUpdate struct {
	FinalizesAt *int64
	DueDate     *int64
	Metadata    map[string]string
}

// InvoiceFilter narrows a listing call. Zero ranges are not sent to the store.
type InvoiceFilter struct {
	Status      InvoiceStatus
	DueDateFrom int64
	DueDateTo   int64
}
