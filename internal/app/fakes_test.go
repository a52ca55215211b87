package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"volume_guard_worker/internal/clock"
	"volume_guard_worker/internal/domain/billing"
)

const testZone = "Etc/GMT-4"

// 2026-10-14 10:00 in the account zone.
var testNow = time.Date(2026, 10, 14, 6, 0, 0, 0, time.UTC)

var errRemote = errors.New("remote store unavailable")

type updateCall struct {
	id     string
	update billing.InvoiceUpdate
}

type fakeStore struct {
	mu sync.Mutex

	events        []billing.SettlementEvent
	listEventsErr error
	details       map[string]billing.SettlementDetail
	detailErrs    map[string]error

	invoices          []*billing.Invoice
	listInvoicesErr   error
	listInvoicesCalls int
	updateErrs        map[string]error
	updates           []updateCall
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		details:    map[string]billing.SettlementDetail{},
		detailErrs: map[string]error{},
		updateErrs: map[string]error{},
	}
}

func (f *fakeStore) addCharge(id string, amount int64, currency string) {
	ref := "txn_" + id
	f.events = append(f.events, billing.SettlementEvent{
		EventID: "evt_" + id, ChargeID: id, Amount: amount, Currency: currency, SettlementRef: ref,
	})
	f.details[ref] = billing.SettlementDetail{Amount: amount, Currency: currency}
}

func (f *fakeStore) addInvoice(inv billing.Invoice) {
	cp := inv
	f.invoices = append(f.invoices, &cp)
}

func (f *fakeStore) ListEvents(ctx context.Context, period billing.DayPeriod, eventType string, fn func(billing.SettlementEvent) error) error {
	if f.listEventsErr != nil {
		return f.listEventsErr
	}
	for _, ev := range f.events {
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) GetSettlementDetail(ctx context.Context, ref string) (billing.SettlementDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.detailErrs[ref]; err != nil {
		return billing.SettlementDetail{}, err
	}
	d, ok := f.details[ref]
	if !ok {
		return billing.SettlementDetail{}, errors.New("no such balance transaction")
	}
	return d, nil
}

func (f *fakeStore) ListInvoices(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listInvoicesCalls++
	if f.listInvoicesErr != nil {
		return nil, f.listInvoicesErr
	}
	out := make([]billing.Invoice, 0)
	for _, inv := range f.invoices {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.DueDateFrom != 0 && inv.DueDate < filter.DueDateFrom {
			continue
		}
		if filter.DueDateTo != 0 && inv.DueDate > filter.DueDateTo {
			continue
		}
		out = append(out, copyInvoice(*inv))
	}
	return out, nil
}

func (f *fakeStore) UpdateInvoice(ctx context.Context, id string, update billing.InvoiceUpdate) (billing.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{id: id, update: update})
	if err := f.updateErrs[id]; err != nil {
		return billing.Invoice{}, err
	}
	for _, inv := range f.invoices {
		if inv.ID != id {
			continue
		}
		if update.FinalizesAt != nil {
			inv.FinalizesAt = *update.FinalizesAt
		}
		if update.DueDate != nil {
			inv.DueDate = *update.DueDate
		}
		if inv.Metadata == nil {
			inv.Metadata = map[string]string{}
		}
		for k, v := range update.Metadata {
			inv.Metadata[k] = v
		}
		return copyInvoice(*inv), nil
	}
	return billing.Invoice{}, errors.New("no such invoice")
}

func (f *fakeStore) RetrieveInvoice(ctx context.Context, id string) (billing.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invoices {
		if inv.ID == id {
			return copyInvoice(*inv), nil
		}
	}
	return billing.Invoice{}, errors.New("no such invoice")
}

func (f *fakeStore) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func copyInvoice(inv billing.Invoice) billing.Invoice {
	if inv.Metadata != nil {
		md := make(map[string]string, len(inv.Metadata))
		for k, v := range inv.Metadata {
			md[k] = v
		}
		inv.Metadata = md
	}
	return inv
}

type fakeAlertChannel struct {
	mu       sync.Mutex
	messages []string
}

func (c *fakeAlertChannel) SendAlert(ctx context.Context, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, text)
}

func (c *fakeAlertChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

type recordingHook struct {
	name  string
	err   error
	panic bool
	calls []Rescheduled
}

func (h *recordingHook) Name() string { return h.name }

func (h *recordingHook) AfterReschedule(ctx context.Context, r Rescheduled) error {
	h.calls = append(h.calls, r)
	if h.panic {
		panic("reporter exploded")
	}
	return h.err
}

func newTestLogger() (*logrus.Entry, *logtest.Hook) {
	l, hook := logtest.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(l), hook
}

func newTestPeriodClock(t *testing.T, now time.Time) (*PeriodClock, *clock.FakeClock) {
	t.Helper()
	fc := clock.NewFakeClock(now)
	pc, err := NewPeriodClock(fc, testZone, clock.Noon)
	require.NoError(t, err)
	return pc, fc
}

// localAt builds an epoch instant on the account-local test day.
func localAt(pc *PeriodClock, day, hour int) int64 {
	return time.Date(2026, 10, day, hour, 0, 0, 0, pc.Location()).Unix()
}
