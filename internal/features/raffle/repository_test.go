package raffle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFiles(t *testing.T) {
	repo := NewRepository(t.TempDir())
	require.NoError(t, repo.Load(), "отсутствующие файлы — пустые таблицы, не ошибка")
	assert.Equal(t, 0, repo.CountPlayers("-1001"))

	_, ok := repo.LastRound("-1001")
	assert.False(t, ok)
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, playersFile), []byte("{broken"), 0o644))

	repo := NewRepository(dir)
	assert.Error(t, repo.Load())
}

func TestReloadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	repo := NewRepository(dir)
	require.NoError(t, repo.Load())
	repo.PutPlayer("-1001", "10", Entry{Username: "@alice", Choice: 4})
	repo.CreatePending("participation:tok", PendingPayment{
		ChatID: "-1001", UserID: "20", Username: "@bob", Choice: 2,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	repo.SetMaxPlayers("-1001", 50)
	repo.SetLastRound("-1001", RoundResult{Result: 4, Winners: []string{"@alice"}})

	// новый процесс читает те же файлы
	reloaded := NewRepository(dir)
	require.NoError(t, reloaded.Load())

	assert.True(t, reloaded.HasPlayer("-1001", "10"))
	assert.Equal(t, Entry{Username: "@alice", Choice: 4}, reloaded.Players("-1001")["10"])

	p, ok := reloaded.TakePending("participation:tok")
	require.True(t, ok)
	assert.Equal(t, "@bob", p.Username)

	limit, ok := reloaded.MaxPlayers("-1001")
	require.True(t, ok)
	assert.Equal(t, 50, limit)

	res, ok := reloaded.LastRound("-1001")
	require.True(t, ok)
	assert.Equal(t, RoundResult{Result: 4, Winners: []string{"@alice"}}, res)
}

// Формат на диске — исторический контракт, его читают руками и внешние скрипты.
func TestOnDiskShapes(t *testing.T) {
	dir := t.TempDir()
	repo := NewRepository(dir)
	require.NoError(t, repo.Load())

	repo.PutPlayer("-1001", "10", Entry{Username: "@alice", Choice: 4})
	repo.CreatePending("participation:tok", PendingPayment{
		ChatID: "-1001", UserID: "10", Username: "@alice", Choice: 4,
		CreatedAt: time.Now().UTC(),
	})
	repo.SetMaxPlayers("-1001", 50)
	repo.SetLastRound("-1001", RoundResult{Result: 4, Winners: []string{"@alice"}})

	var players map[string]map[string]map[string]any
	readJSON(t, filepath.Join(dir, playersFile), &players)
	assert.Equal(t, "@alice", players["-1001"]["10"]["username"])
	assert.EqualValues(t, 4, players["-1001"]["10"]["choice"])

	var pending map[string]map[string]any
	readJSON(t, filepath.Join(dir, pendingFile), &pending)
	rec := pending["participation:tok"]
	assert.Equal(t, "-1001", rec["chat_id"])
	assert.Equal(t, "10", rec["user_id"])
	assert.Equal(t, "@alice", rec["username"])
	assert.EqualValues(t, 4, rec["choice"])

	var settings map[string]map[string]any
	readJSON(t, filepath.Join(dir, configFile), &settings)
	assert.EqualValues(t, 50, settings["-1001"]["max_players"])

	var lastRound map[string]map[string]any
	readJSON(t, filepath.Join(dir, lastRoundFile), &lastRound)
	assert.EqualValues(t, 4, lastRound["-1001"]["result"])
	assert.Equal(t, []any{"@alice"}, lastRound["-1001"]["winners"])
}

func TestTakePendingTwice(t *testing.T) {
	repo := NewRepository(t.TempDir())
	require.NoError(t, repo.Load())

	repo.CreatePending("tok", PendingPayment{ChatID: "-1001", UserID: "10"})

	_, ok := repo.TakePending("tok")
	require.True(t, ok)
	_, ok = repo.TakePending("tok")
	assert.False(t, ok)
}

func TestSweepPending(t *testing.T) {
	repo := NewRepository(t.TempDir())
	require.NoError(t, repo.Load())

	now := time.Now().UTC()
	repo.CreatePending("old", PendingPayment{CreatedAt: now.Add(-2 * time.Hour)})
	repo.CreatePending("new", PendingPayment{CreatedAt: now})

	assert.Equal(t, 1, repo.SweepPending(now.Add(-time.Hour)))

	_, ok := repo.TakePending("old")
	assert.False(t, ok)
	_, ok = repo.TakePending("new")
	assert.True(t, ok)
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}
