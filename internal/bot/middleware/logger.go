// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники и rate-limiting.
package middleware

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// LogMessage логирует входящее сообщение.
// Записывает: user_id, chat_id, username, текст (первые 50 символов);
// для подтверждений оплаты — отдельный флаг, текст у них пустой.
func LogMessage(message *tgbotapi.Message) {
	if message == nil || message.Chat == nil {
		return
	}

	text := message.Text
	if len(text) > 50 {
		text = text[:50] + "..."
	}

	fields := log.Fields{
		"chat_id": message.Chat.ID,
		"text":    text,
	}
	if message.From != nil {
		fields["user_id"] = message.From.ID
		fields["username"] = message.From.UserName
	}
	if message.SuccessfulPayment != nil {
		fields["payment"] = true
	}

	log.WithFields(fields).Debug("Входящее сообщение")
}
