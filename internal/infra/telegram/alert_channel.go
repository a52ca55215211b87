// internal/infra/telegram/alert_channel.go
package telegram

import (
	"context"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	domainTelegram "volume_guard_worker/internal/domain/telegram"
)

// AlertChannel sends limit alerts to the operator chat. It never returns an
// error: an unconfigured channel logs and does nothing.
type AlertChannel struct {
	client domainTelegram.Client
	chatID int64
	logger *logrus.Entry
}

// NewAlertChannel accepts a nil client when Telegram is not configured.
func NewAlertChannel(client domainTelegram.Client, chatID int64, logger *logrus.Entry) *AlertChannel {
	return &AlertChannel{
		client: client,
		chatID: chatID,
		logger: logger.WithField("component", "telegram_alerts"),
	}
}

func (a *AlertChannel) SendAlert(ctx context.Context, text string) {
	if a.client == nil || a.chatID == 0 {
		a.logger.Warn("Attempted to send an alert, but Telegram is not configured")
		return
	}
	if err := ctx.Err(); err != nil {
		a.logger.WithError(err).Warn("Alert not sent: context done")
		return
	}
	err := a.client.SendMessage(a.chatID, text, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	if err != nil {
		a.logger.WithError(err).WithField("chat_id", a.chatID).Error("Failed to send Telegram alert")
		return
	}
	a.logger.WithField("chat_id", a.chatID).Info("Telegram alert sent successfully")
}
