// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: загружает таблицы состояния, создаёт Telegram API,
// сервис розыгрыша, обработчики и собирает всё в один объект.
package app

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"raffle-bot/internal/bot"
	"raffle-bot/internal/config"
	"raffle-bot/internal/features/raffle"
	"raffle-bot/internal/jobs"
	"raffle-bot/internal/server"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	Server    *server.Server
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(cfg *config.Config) (*App, error) {
	// === 1. Таблицы состояния ===
	repo := raffle.NewRepository(cfg.DataDir)
	if err := repo.Load(); err != nil {
		return nil, fmt.Errorf("ошибка загрузки состояния: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Сервис и обработчики розыгрыша ===
	raffleService := raffle.NewService(repo, cfg)
	raffleHandler := raffle.NewHandler(raffleService, botAPI, cfg)

	// === 4. Бот ===
	b := bot.New(botAPI, cfg, raffleHandler)

	// === 5. Планировщик задач ===
	scheduler := jobs.NewScheduler(raffleService, cfg.AppTimezone, cfg.PendingTTL)

	// === 6. Keep-alive HTTP ===
	srv := server.New(cfg.HTTPAddr)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		Server:    srv,
		BotAPI:    botAPI,
	}, nil
}
