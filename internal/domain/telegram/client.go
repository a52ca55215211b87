package telegram

import "gopkg.in/telebot.v3"

// Client sends a text message to a chat. Alerts and operator replies go
// through it so the bot library stays at the edge.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
