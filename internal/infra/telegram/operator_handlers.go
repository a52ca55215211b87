// internal/infra/telegram/operator_handlers.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"volume_guard_worker/internal/app"
)

// Controller is what operator commands may read or change on the running worker.
type Controller interface {
	Limit() decimal.Decimal
	UpdateLimit(limit decimal.Decimal) error
	CurrentVolume(ctx context.Context) (decimal.Decimal, error)
	NotificationState() app.NotificationState
}

type operatorHandlers struct {
	ctrl           Controller
	operatorChatID int64
	currency       string
	logger         *logrus.Entry
}

// RegisterOperatorHandlers registers /status, /set_limit and /help. Only the
// configured operator chat may use them.
func RegisterOperatorHandlers(ctx context.Context, b *telebot.Bot, ctrl Controller, operatorChatID int64, currency string, baseLogger *logrus.Entry) {
	h := &operatorHandlers{
		ctrl:           ctrl,
		operatorChatID: operatorChatID,
		currency:       strings.ToUpper(currency),
		logger:         baseLogger.WithField("handler_group", "operator"),
	}

	b.Handle("/status", func(c telebot.Context) error {
		if !h.authorized(c) {
			return c.Send(msgUnauthorized)
		}
		return c.Send(h.status(ctx), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle("/set_limit", func(c telebot.Context) error {
		if !h.authorized(c) {
			return c.Send(msgUnauthorized)
		}
		return c.Send(h.setLimit(c.Args()))
	})

	b.Handle("/help", func(c telebot.Context) error {
		if !h.authorized(c) {
			return c.Send(msgUnauthorized)
		}
		return c.Send(helpText, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

const (
	msgUnauthorized = "Error: this chat is not allowed to manage the volume guard."
	helpText        = "Available commands:\n\n" +
		"`/status`\n - Show today's gross volume, the daily limit and the alert state.\n\n" +
		"`/set_limit <amount>`\n - Change the daily limit. Applies from the next evaluation.\n\n" +
		"`/help`\n - Show this message."
)

func (h *operatorHandlers) authorized(c telebot.Context) bool {
	chat := c.Chat()
	var chatID int64
	if chat != nil {
		chatID = chat.ID
	}
	ok := h.allowed(chatID)
	if !ok {
		h.logger.WithField("chat_id", chatID).Warn("Unauthorized access attempt")
	}
	return ok
}

func (h *operatorHandlers) allowed(chatID int64) bool {
	return h.operatorChatID != 0 && chatID == h.operatorChatID
}

func (h *operatorHandlers) status(ctx context.Context) string {
	volume, err := h.ctrl.CurrentVolume(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute gross volume for /status")
		return "Could not compute today's gross volume, try again later."
	}
	limit := h.ctrl.Limit()
	return fmt.Sprintf(
		"📊 *Volume guard status*\n\n"+
			"📈 *Gross volume today:* `%s %s`\n"+
			"📉 *Daily limit:* `%s %s`\n"+
			"🚦 *Limit reached:* `%t`\n"+
			"🔔 *Alert state:* `%s`",
		volume.StringFixed(2), h.currency,
		limit.StringFixed(2), h.currency,
		app.IsBreached(volume, limit),
		h.ctrl.NotificationState(),
	)
}

func (h *operatorHandlers) setLimit(args []string) string {
	if len(args) != 1 {
		return "Invalid command format. Use: /set_limit <amount>"
	}
	limit, err := decimal.NewFromString(strings.TrimSpace(args[0]))
	if err != nil {
		return "Error: the limit must be a number."
	}
	if err := h.ctrl.UpdateLimit(limit); err != nil {
		if errors.Is(err, app.ErrInvalidLimit) {
			return "Error: the limit must be greater than zero."
		}
		h.logger.WithError(err).Error("Failed to update daily limit")
		return fmt.Sprintf("Failed to update the limit: %s", err.Error())
	}
	h.logger.WithField("new_limit", limit.String()).Info("Daily limit updated via Telegram")
	return fmt.Sprintf("Daily limit updated to %s %s.", limit.StringFixed(2), h.currency)
}
