package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresBotToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")

	_, err := Load()
	assert.Error(t, err, "без BOT_TOKEN не стартуем")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.ProviderToken, "для Stars провайдерский токен пустой")
	assert.Equal(t, 100, cfg.DefaultMaxPlayers)
	assert.Equal(t, 9, cfg.PriceStars)
	assert.Equal(t, 25, cfg.PrizeStars)
	assert.Equal(t, "XTR", cfg.Currency)
	assert.Equal(t, 1, cfg.AmountMultiplier)
	assert.Equal(t, time.Duration(0), cfg.PendingTTL)
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, ":10000", cfg.HTTPAddr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("MAX_PLAYERS", "10")
	t.Setenv("PRICE_STARS", "15")
	t.Setenv("AMOUNT_MULTIPLIER", "100")
	t.Setenv("PENDING_TTL", "24h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.DefaultMaxPlayers)
	assert.Equal(t, 15, cfg.PriceStars)
	assert.Equal(t, 100, cfg.AmountMultiplier)
	assert.Equal(t, 24*time.Hour, cfg.PendingTTL)
}

func TestValidate(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("MAX_PLAYERS", "0")

	_, err := Load()
	assert.Error(t, err)
}
