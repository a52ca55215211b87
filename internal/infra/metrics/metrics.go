// internal/infra/metrics/metrics.go
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const namespace = "volume_guard"

// Config carries the constant labels attached to every series.
type Config struct {
	AccountID   string
	Environment string
}

// GuardMetrics implements app.Recorder on Prometheus collectors.
type GuardMetrics struct {
	ticks          *prometheus.CounterVec
	tickDuration   prometheus.Histogram
	invoices       *prometheus.CounterVec
	alerts         prometheus.Counter
	lookupFailures prometheus.Counter
	grossVolume    prometheus.Gauge
	dailyLimit     prometheus.Gauge
}

// New registers the worker collectors on registerer. A nil registerer means
// the default one.
func New(registerer prometheus.Registerer, cfg Config) *GuardMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"account": cfg.AccountID,
		"env":     environment,
	}

	m := &GuardMetrics{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "ticks_total",
			Help:        "Guard ticks by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "tick_duration_seconds",
			Help:        "Wall time of a full guard tick.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
			ConstLabels: constLabels,
		}),
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "invoices_rescheduled_total",
			Help:        "Invoice reschedule attempts by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "alerts_sent_total",
			Help:        "Limit breach alerts handed to the alert channel.",
			ConstLabels: constLabels,
		}),
		lookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "settlement_lookup_failures_total",
			Help:        "Settlement detail lookups that failed and were left out of the volume.",
			ConstLabels: constLabels,
		}),
		grossVolume: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "gross_volume",
			Help:        "Gross settled volume of the current day in major units.",
			ConstLabels: constLabels,
		}),
		dailyLimit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "daily_limit",
			Help:        "Configured daily limit in major units.",
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(
		m.ticks,
		m.tickDuration,
		m.invoices,
		m.alerts,
		m.lookupFailures,
		m.grossVolume,
		m.dailyLimit,
	)
	return m
}

func (m *GuardMetrics) TickFinished(result string, d time.Duration) {
	m.ticks.WithLabelValues(result).Inc()
	m.tickDuration.Observe(d.Seconds())
}

func (m *GuardMetrics) VolumeObserved(volume decimal.Decimal) {
	m.grossVolume.Set(volume.InexactFloat64())
}

func (m *GuardMetrics) LimitObserved(limit decimal.Decimal) {
	m.dailyLimit.Set(limit.InexactFloat64())
}

func (m *GuardMetrics) InvoiceOutcome(outcome string) {
	m.invoices.WithLabelValues(outcome).Inc()
}

func (m *GuardMetrics) AlertSent() { m.alerts.Inc() }

func (m *GuardMetrics) SettlementLookupFailed() { m.lookupFailures.Inc() }
