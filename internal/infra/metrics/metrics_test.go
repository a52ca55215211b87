package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"volume_guard_worker/internal/app"
)

var _ app.Recorder = (*GuardMetrics)(nil)

func newTestMetrics(t *testing.T) (*GuardMetrics, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	return New(registry, Config{AccountID: "acct_1", Environment: "test"}), registry
}

func TestTickFinished(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.TickFinished("ok", 250*time.Millisecond)
	m.TickFinished("ok", time.Second)
	m.TickFinished("error", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticks.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.tickDuration, "volume_guard_tick_duration_seconds"))
}

func TestGaugesTrackLatestValue(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.VolumeObserved(decimal.RequireFromString("12.50"))
	m.VolumeObserved(decimal.RequireFromString("31.25"))
	m.LimitObserved(decimal.NewFromInt(30))

	assert.Equal(t, 31.25, testutil.ToFloat64(m.grossVolume))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.dailyLimit))
}

func TestCounters(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.InvoiceOutcome("succeeded")
	m.InvoiceOutcome("succeeded")
	m.InvoiceOutcome("failed")
	m.AlertSent()
	m.SettlementLookupFailed()
	m.SettlementLookupFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.invoices.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invoices.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alerts))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.lookupFailures))
}

func TestConstLabels(t *testing.T) {
	m, registry := newTestMetrics(t)
	m.AlertSent()

	families, err := registry.Gather()
	assert.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "volume_guard_alerts_sent_total" {
			continue
		}
		labels := map[string]string{}
		for _, lp := range mf.GetMetric()[0].GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		assert.Equal(t, map[string]string{"account": "acct_1", "env": "test"}, labels)
		return
	}
	t.Fatal("alerts metric not gathered")
}
