// internal/infra/telegram/client.go
package telegram

import (
	"errors"
	"fmt"

	"gopkg.in/telebot.v3"
)

var errNoBot = errors.New("telegram bot is not initialized")

// TelebotAdapter is the telebot.v3 implementation of the domain Client.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage posts text to a chat id. Link previews are off unless the caller
// passes its own options.
func (tba *TelebotAdapter) SendMessage(chatID int64, text string, options *telebot.SendOptions) error {
	if tba == nil || tba.bot == nil {
		return errNoBot
	}
	if options == nil {
		options = &telebot.SendOptions{DisableWebPagePreview: true}
	}
	if _, err := tba.bot.Send(&telebot.Chat{ID: chatID}, text, options); err != nil {
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return nil
}
