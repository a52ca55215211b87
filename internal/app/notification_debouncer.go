// internal/app/notification_debouncer.go
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AlertChannel delivers operator alerts. Implementations swallow their own
// failures and may no-op when unconfigured.
type AlertChannel interface {
	SendAlert(ctx context.Context, text string)
}

// NotificationState is the debouncer's state.
type NotificationState int

const (
	StateQuiet NotificationState = iota
	StateNotified
)

func (s NotificationState) String() string {
	if s == StateNotified {
		return "notified"
	}
	return "quiet"
}

// Breach is what the debouncer needs to word an alert.
type Breach struct {
	AccountID   string
	Currency    string
	GrossVolume decimal.Decimal
	DailyLimit  decimal.Decimal
}

// NotificationDebouncer lets at most one limit alert through between resets.
// Reset is driven by its own schedule, independently of ticks.
type NotificationDebouncer struct {
	mu       sync.Mutex
	state    NotificationState
	channel  AlertChannel
	recorder Recorder
	logger   *logrus.Entry
}

func NewNotificationDebouncer(channel AlertChannel, recorder Recorder, logger *logrus.Entry) *NotificationDebouncer {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &NotificationDebouncer{
		state:    StateQuiet,
		channel:  channel,
		recorder: recorder,
		logger:   logger.WithField("component", "notification_debouncer"),
	}
}

func (d *NotificationDebouncer) State() NotificationState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// ObserveBreach reports a detected breach and returns true if it produced an alert.
func (d *NotificationDebouncer) ObserveBreach(ctx context.Context, b Breach) bool {
	d.mu.Lock()
	if d.state == StateNotified {
		d.mu.Unlock()
		d.logger.Info("Limit exceeded, but the alert was already sent today")
		return false
	}
	d.state = StateNotified
	d.mu.Unlock()

	d.logger.WithFields(logrus.Fields{
		"gross_volume": b.GrossVolume.StringFixed(2),
		"daily_limit":  b.DailyLimit.StringFixed(2),
	}).Warn("Daily limit exceeded for the first time today, sending alert")
	d.channel.SendAlert(ctx, FormatLimitAlert(b))
	d.recorder.AlertSent()
	return true
}

// Reset returns to Quiet whether or not an alert went out.
func (d *NotificationDebouncer) Reset() {
	d.mu.Lock()
	prev := d.state
	d.state = StateQuiet
	d.mu.Unlock()
	d.logger.WithField("previous_state", prev.String()).Info("Limit notification state reset for the new day")
}

// FormatLimitAlert renders the Markdown alert text.
func FormatLimitAlert(b Breach) string {
	cur := strings.ToUpper(b.Currency)
	return fmt.Sprintf(
		"🚨 *Daily limit exceeded!* 🚨\n\n"+
			"👤 *Account:* `%s`\n\n"+
			"📉 *Limit:* `%s %s`\n"+
			"📈 *Current volume:* `%s %s`\n\n"+
			"✅ _Invoice rescheduling has started._",
		b.AccountID, b.DailyLimit.StringFixed(2), cur, b.GrossVolume.StringFixed(2), cur,
	)
}
