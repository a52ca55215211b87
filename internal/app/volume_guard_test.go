package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volume_guard_worker/internal/clock"
	"volume_guard_worker/internal/domain/billing"
)

type guardFixture struct {
	guard   *VolumeGuard
	store   *fakeStore
	alerts  *fakeAlertChannel
	clock   *clock.FakeClock
	pc      *PeriodClock
	journal *recordingHook
}

func newGuardFixture(t *testing.T, limit string, dryRun bool) *guardFixture {
	t.Helper()
	pc, fc := newTestPeriodClock(t, testNow)
	store := newFakeStore()
	alerts := &fakeAlertChannel{}
	journal := &recordingHook{name: "journal"}
	logger, _ := newTestLogger()

	g, err := NewVolumeGuard(
		Settings{AccountID: "acct_1", Currency: "AED", DelayCycle: []int{1, 3, 5, 7, 9}, DryRun: dryRun},
		decimal.RequireFromString(limit),
		pc,
		NewVolumeAggregator(store, "aed", 4, nil, logger),
		NewInvoiceSelector(store, logger),
		NewRescheduleExecutor(store, pc, []PostRescheduleHook{journal}, nil, logger),
		NewNotificationDebouncer(alerts, nil, logger),
		nil,
		logger,
	)
	require.NoError(t, err)
	return &guardFixture{guard: g, store: store, alerts: alerts, clock: fc, pc: pc, journal: journal}
}

func (f *guardFixture) addDrafts(ids ...string) {
	for i, id := range ids {
		f.store.addInvoice(billing.Invoice{
			ID:               id,
			Status:           billing.InvoiceStatusDraft,
			CollectionMethod: billing.CollectionChargeAutomatically,
			AutoAdvance:      true,
			FinalizesAt:      localAt(f.pc, 14, 20),
			Created:          int64(100 + i),
		})
	}
}

func TestRunTick_BreachReschedulesCyclically(t *testing.T) {
	f := newGuardFixture(t, "30", false)
	f.store.addCharge("ch_1", 4200, "aed")
	f.addDrafts("A", "B", "C")

	s, err := f.guard.RunTick(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Breached)
	assert.True(t, s.Alerted)
	assert.Equal(t, 3, s.Selected)
	assert.Equal(t, BatchSummary{Attempted: 3, Succeeded: 3}, s.Batch)

	want := map[string]int{"A": 15, "B": 17, "C": 19}
	for _, inv := range f.store.invoices {
		expected := time.Date(2026, 10, want[inv.ID], 12, 0, 0, 0, f.pc.Location()).Unix()
		assert.Equal(t, expected, inv.FinalizesAt, inv.ID)
		assert.Zero(t, inv.DueDate, inv.ID)
		tag, ok := inv.RescheduleTag()
		assert.True(t, ok)
		assert.Equal(t, "2026-10-14", tag)
	}
	assert.Len(t, f.journal.calls, 3)

	// Second selection the same day finds nothing.
	f.clock.Advance(time.Minute)
	s, err = f.guard.RunTick(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Breached)
	assert.False(t, s.Alerted)
	assert.Equal(t, 0, s.Selected)
	assert.Equal(t, 3, f.store.updateCount())
	assert.Equal(t, 1, f.alerts.count())
}

func TestRunTick_BoundaryIsBreach(t *testing.T) {
	f := newGuardFixture(t, "30", false)
	f.store.addCharge("ch_1", 3000, "aed")

	s, err := f.guard.RunTick(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Breached)
	assert.Equal(t, 1, f.alerts.count())
}

func TestRunTick_BelowLimitNeverSelects(t *testing.T) {
	f := newGuardFixture(t, "30", false)
	f.store.addCharge("ch_1", 2999, "aed")
	f.addDrafts("A")

	s, err := f.guard.RunTick(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Breached)
	assert.Equal(t, 0, f.store.listInvoicesCalls)
	assert.Equal(t, 0, f.alerts.count())
	assert.Equal(t, 0, f.store.updateCount())
}

func TestRunTick_OneAlertPerDayUntilReset(t *testing.T) {
	f := newGuardFixture(t, "30", false)
	f.store.addCharge("ch_1", 5000, "aed")

	for i := 0; i < 10; i++ {
		_, err := f.guard.RunTick(context.Background())
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}
	assert.Equal(t, 1, f.alerts.count())

	f.guard.ResetNotification()
	_, err := f.guard.RunTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.alerts.count())
}

func TestRunTick_DryRunMatchesRealRunWithoutMutations(t *testing.T) {
	dry := newGuardFixture(t, "30", true)
	live := newGuardFixture(t, "30", false)
	for _, f := range []*guardFixture{dry, live} {
		f.store.addCharge("ch_1", 4200, "aed")
		f.addDrafts("A", "B", "C", "D")
	}

	dryS, err := dry.guard.RunTick(context.Background())
	require.NoError(t, err)
	realS, err := live.guard.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, realS.Breached, dryS.Breached)
	assert.Equal(t, realS.Selected, dryS.Selected)
	assert.Equal(t, realS.Batch, dryS.Batch)
	assert.True(t, dryS.DryRun)
	assert.Equal(t, 0, dry.store.updateCount())
	assert.Empty(t, dry.journal.calls)

	// Dry runs can be repeated: nothing was tagged.
	again, err := dry.guard.RunTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, again.Selected)
}

func TestRunTick_PicksUpNewLimitOnNextTick(t *testing.T) {
	f := newGuardFixture(t, "100", false)
	f.store.addCharge("ch_1", 4200, "aed")

	s, err := f.guard.RunTick(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Breached)

	require.NoError(t, f.guard.UpdateLimit(decimal.NewFromInt(30)))
	s, err = f.guard.RunTick(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Breached)
	assert.True(t, decimal.NewFromInt(30).Equal(s.DailyLimit))

	assert.ErrorIs(t, f.guard.UpdateLimit(decimal.Zero), ErrInvalidLimit)
	assert.True(t, decimal.NewFromInt(30).Equal(f.guard.Limit()))
}

func TestRunTick_SelectionFailureAbortsTick(t *testing.T) {
	f := newGuardFixture(t, "30", false)
	f.store.addCharge("ch_1", 4200, "aed")
	f.store.listInvoicesErr = errRemote

	_, err := f.guard.RunTick(context.Background())
	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, 0, f.store.updateCount())
}

func TestRunTick_RefusesOverlap(t *testing.T) {
	f := newGuardFixture(t, "30", false)
	f.guard.tickMu.Lock()
	_, err := f.guard.RunTick(context.Background())
	f.guard.tickMu.Unlock()
	assert.ErrorIs(t, err, ErrTickInProgress)
}

func TestNewVolumeGuard_RejectsBadConfig(t *testing.T) {
	pc, _ := newTestPeriodClock(t, testNow)
	logger, _ := newTestLogger()
	_, err := NewVolumeGuard(Settings{DelayCycle: nil}, decimal.NewFromInt(1), pc, nil, nil, nil, nil, nil, logger)
	assert.ErrorIs(t, err, ErrInvalidDelayCycle)
	_, err = NewVolumeGuard(Settings{DelayCycle: []int{1}}, decimal.Zero, pc, nil, nil, nil, nil, nil, logger)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}
