// Package bot содержит главный модуль бота — запуск polling,
// маршрутизацию апдейтов и остановку.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"raffle-bot/internal/bot/middleware"
	"raffle-bot/internal/config"
	"raffle-bot/internal/features/raffle"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	rateLimiter *middleware.RateLimiter

	raffleHandler *raffle.Handler

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(api *tgbotapi.BotAPI, cfg *config.Config, raffleHandler *raffle.Handler) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:           api,
		cfg:           cfg,
		rateLimiter:   middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		raffleHandler: raffleHandler,
		inflight:      make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	// Pre-checkout одобряем всегда, сверка идёт после оплаты
	if update.PreCheckoutQuery != nil {
		b.raffleHandler.HandlePreCheckout(update.PreCheckoutQuery)
		return
	}

	if update.Message == nil {
		return
	}
	message := update.Message

	// Логируем входящее
	middleware.LogMessage(message)

	// Подтверждение оплаты — до rate limit: оплату терять нельзя
	if message.SuccessfulPayment != nil {
		b.raffleHandler.HandleSuccessfulPayment(ctx, message)
		return
	}

	if message.From == nil || message.Chat == nil {
		return
	}

	// Rate limiting
	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	if message.IsCommand() {
		b.routeCommand(ctx, message)
		return
	}

	// Обычный текст в группе — возможная заявка на участие
	if message.Text != "" {
		b.raffleHandler.HandleGroupMessage(ctx, message)
	}
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, message *tgbotapi.Message) {
	cmd := message.Command()
	args := strings.Fields(message.CommandArguments())

	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("routing command")

	switch cmd {
	case "start":
		b.raffleHandler.HandleStartPrivate(ctx, message)

	case "status":
		b.raffleHandler.HandleStatus(ctx, message)

	case "reset":
		b.raffleHandler.HandleReset(ctx, message)

	case "setlimit":
		b.raffleHandler.HandleSetLimit(ctx, message, args)

	case "forcestart":
		b.raffleHandler.HandleForceStart(ctx, message)

	case "winners":
		b.raffleHandler.HandleWinners(ctx, message)
	}
}
