// repository.go владеет четырьмя таблицами состояния и их сохранением на диск.
// Таблицы живут в памяти; после каждой мутации соответствующий файл
// перезаписывается целиком. Ошибка записи логируется, но память не
// откатывается — процесс продолжает работать по актуальному состоянию
// в памяти до следующей удачной записи.
package raffle

import (
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"raffle-bot/internal/db/jsonstore"
)

// Имена файлов таблиц совпадают с историческим форматом.
const (
	playersFile   = "players.json"
	pendingFile   = "pending.json"
	configFile    = "config.json"
	lastRoundFile = "last_round.json"
)

// Repository хранит игроков, ожидающие оплаты, настройки чатов
// и результаты последних раундов.
//
// Обработчики апдейтов работают в отдельных горутинах, поэтому все
// операции защищены RWMutex.
type Repository struct {
	mu  sync.RWMutex
	dir string

	players   map[string]map[string]Entry // chatKey -> userKey -> Entry
	pending   map[string]PendingPayment   // token -> PendingPayment
	settings  map[string]ChatSettings     // chatKey -> ChatSettings
	lastRound map[string]RoundResult      // chatKey -> RoundResult
}

// NewRepository создаёт репозиторий с файлами в каталоге dir.
func NewRepository(dir string) *Repository {
	return &Repository{
		dir:       dir,
		players:   make(map[string]map[string]Entry),
		pending:   make(map[string]PendingPayment),
		settings:  make(map[string]ChatSettings),
		lastRound: make(map[string]RoundResult),
	}
}

// Load читает все четыре таблицы с диска. Отсутствующие файлы — пустые
// таблицы; нечитаемый файл — ошибка запуска.
func (r *Repository) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := jsonstore.Load(filepath.Join(r.dir, playersFile), &r.players); err != nil {
		return err
	}
	if err := jsonstore.Load(filepath.Join(r.dir, pendingFile), &r.pending); err != nil {
		return err
	}
	if err := jsonstore.Load(filepath.Join(r.dir, configFile), &r.settings); err != nil {
		return err
	}
	if err := jsonstore.Load(filepath.Join(r.dir, lastRoundFile), &r.lastRound); err != nil {
		return err
	}
	return nil
}

// persist перезаписывает один файл; ошибка только логируется (fail-open).
func (r *Repository) persist(file string, table any) {
	if err := jsonstore.Save(filepath.Join(r.dir, file), table); err != nil {
		log.WithError(err).WithField("file", file).Error("Не удалось сохранить таблицу")
	}
}

// --- Players ---

// CountPlayers возвращает число подтверждённых участников чата.
func (r *Repository) CountPlayers(chatKey string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players[chatKey])
}

// HasPlayer сообщает, участвует ли пользователь в текущем раунде чата.
func (r *Repository) HasPlayer(chatKey, userKey string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.players[chatKey][userKey]
	return ok
}

// PutPlayer записывает участника. Существующая запись перезаписывается:
// подтверждённая оплата — решающее доказательство намерения.
func (r *Repository) PutPlayer(chatKey, userKey string, entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.players[chatKey] == nil {
		r.players[chatKey] = make(map[string]Entry)
	}
	r.players[chatKey][userKey] = entry
	r.persist(playersFile, r.players)
}

// Players возвращает копию записей чата.
func (r *Repository) Players(chatKey string) map[string]Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Entry, len(r.players[chatKey]))
	for k, v := range r.players[chatKey] {
		out[k] = v
	}
	return out
}

// ClearPlayers удаляет всех участников чата. Пустой или отсутствующий
// чат — не ошибка.
func (r *Repository) ClearPlayers(chatKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, chatKey)
	r.persist(playersFile, r.players)
}

// --- Pending ---

// CreatePending сохраняет запись ожидающей оплаты под токеном token.
func (r *Repository) CreatePending(token string, p PendingPayment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[token] = p
	r.persist(pendingFile, r.pending)
}

// TakePending извлекает и удаляет запись по токену.
// Повторный вызов с тем же токеном вернёт ok=false — токен
// потребляется ровно один раз.
func (r *Repository) TakePending(token string) (PendingPayment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[token]
	if !ok {
		return PendingPayment{}, false
	}
	delete(r.pending, token)
	r.persist(pendingFile, r.pending)
	return p, true
}

// DeletePending удаляет запись без извлечения (откат после неудачного счёта).
func (r *Repository) DeletePending(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, token)
	r.persist(pendingFile, r.pending)
}

// SweepPending удаляет записи, созданные раньше cutoff, и возвращает
// число удалённых. Используется фоновой уборкой брошенных токенов.
func (r *Repository) SweepPending(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for token, p := range r.pending {
		if p.CreatedAt.Before(cutoff) {
			delete(r.pending, token)
			removed++
		}
	}
	if removed > 0 {
		r.persist(pendingFile, r.pending)
	}
	return removed
}

// --- Config ---

// MaxPlayers возвращает пер-чатовый лимит, если он задан.
func (r *Repository) MaxPlayers(chatKey string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settings[chatKey]
	if !ok || s.MaxPlayers <= 0 {
		return 0, false
	}
	return s.MaxPlayers, true
}

// SetMaxPlayers задаёт пер-чатовый лимит и сохраняет конфиг.
func (r *Repository) SetMaxPlayers(chatKey string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.settings[chatKey]
	s.MaxPlayers = n
	r.settings[chatKey] = s
	r.persist(configFile, r.settings)
}

// --- LastRound ---

// LastRound возвращает снимок последнего раунда чата.
func (r *Repository) LastRound(chatKey string) (RoundResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.lastRound[chatKey]
	return res, ok
}

// SetLastRound перезаписывает снимок последнего раунда чата.
func (r *Repository) SetLastRound(chatKey string, res RoundResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRound[chatKey] = res
	r.persist(lastRoundFile, r.lastRound)
}
