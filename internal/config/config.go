// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	// Токен платёжного провайдера; для Stars остаётся пустым.
	ProviderToken string `envconfig:"PROVIDER_TOKEN" default:""`

	// --- Розыгрыш ---
	DefaultMaxPlayers int `envconfig:"MAX_PLAYERS" default:"100"`
	PriceStars        int `envconfig:"PRICE_STARS" default:"9"`
	// Приз информационный: выплачивает владелец вручную.
	PrizeStars int    `envconfig:"PRIZE_STARS" default:"25"`
	Currency   string `envconfig:"CURRENCY" default:"XTR"`
	// Множитель суммы в счёте: поставь 100, если счёт показывает 900 вместо 9.
	AmountMultiplier int `envconfig:"AMOUNT_MULTIPLIER" default:"1"`
	// TTL брошенных ожидающих оплат; 0 — не удалять никогда.
	PendingTTL time.Duration `envconfig:"PENDING_TTL" default:"0"`

	// --- Хранилище ---
	DataDir string `envconfig:"DATA_DIR" default:"."`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Keep-alive HTTP ---
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":10000"`
}

func (c *Config) Validate() error {
	if c.DefaultMaxPlayers <= 0 {
		return fmt.Errorf("MAX_PLAYERS должен быть > 0")
	}
	if c.PriceStars <= 0 {
		return fmt.Errorf("PRICE_STARS должен быть > 0")
	}
	if c.AmountMultiplier <= 0 {
		return fmt.Errorf("AMOUNT_MULTIPLIER должен быть > 0")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
