package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SendMessageRequest is a reply the dispatcher wants delivered.
type SendMessageRequest struct {
	ChatID           int64
	Text             string
	ParseMode        string
	ReplyToMessageID int
}

func (r SendMessageRequest) config() tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(r.ChatID, r.Text)
	msg.ParseMode = r.ParseMode
	msg.ReplyToMessageID = r.ReplyToMessageID
	msg.AllowSendingWithoutReply = true
	return msg
}

// displayName returns the username, falling back to the first name.
func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return u.UserName
	}
	return u.FirstName
}
