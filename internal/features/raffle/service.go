// service.go — бизнес-правила раунда: приём заявок, сверка оплат,
// порог запуска и завершение розыгрыша.
package raffle

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"raffle-bot/internal/config"
)

// Service реализует жизненный цикл раунда поверх Repository.
type Service struct {
	repo *Repository
	cfg  *config.Config

	// пер-чатовый флаг выполняющегося розыгрыша: второй триггер
	// для того же чата становится no-op, а не пустым раундом
	execMu   sync.Mutex
	inFlight map[string]struct{}
}

// NewService создаёт сервис розыгрыша.
func NewService(repo *Repository, cfg *config.Config) *Service {
	return &Service{
		repo:     repo,
		cfg:      cfg,
		inFlight: make(map[string]struct{}),
	}
}

// ChatKey и UserKey переводят идентификаторы Telegram в ключи таблиц.
func ChatKey(chatID int64) string { return strconv.FormatInt(chatID, 10) }
func UserKey(userID int64) string { return strconv.FormatInt(userID, 10) }

// Count возвращает число подтверждённых участников чата.
func (s *Service) Count(chatKey string) int {
	return s.repo.CountPlayers(chatKey)
}

// Threshold возвращает лимит участников чата: пер-чатовый из конфига
// или глобальный дефолт.
func (s *Service) Threshold(chatKey string) int {
	if n, ok := s.repo.MaxPlayers(chatKey); ok {
		return n
	}
	return s.cfg.DefaultMaxPlayers
}

// SetThreshold задаёт пер-чатовый лимит. Неположительное значение — ошибка.
func (s *Service) SetThreshold(chatKey string, n int) error {
	if n <= 0 {
		return fmt.Errorf("лимит должен быть положительным, получено %d", n)
	}
	s.repo.SetMaxPlayers(chatKey, n)
	return nil
}

// IsParticipant сообщает, занят ли пользователь в текущем раунде чата.
func (s *Service) IsParticipant(chatKey, userKey string) bool {
	return s.repo.HasPlayer(chatKey, userKey)
}

// CreatePending регистрирует попытку участия и возвращает свежий токен,
// который станет payload счёта.
func (s *Service) CreatePending(chatKey, userKey, username string, choice int) string {
	token := "participation:" + uuid.New().String()
	s.repo.CreatePending(token, PendingPayment{
		ChatID:    chatKey,
		UserID:    userKey,
		Username:  username,
		Choice:    choice,
		CreatedAt: time.Now().UTC(),
	})
	return token
}

// RollbackPending удаляет запись после неудачной отправки счёта.
func (s *Service) RollbackPending(token string) {
	s.repo.DeletePending(token)
}

// ConfirmPayment сверяет подтверждённую оплату с ожидающей записью.
// Токен потребляется; заявка переносится в таблицу участников
// (существующая запись перезаписывается — оплата решает). Возвращает
// запись, текущий счёт и лимит чата; ok=false — токен неизвестен,
// никакие таблицы не тронуты.
func (s *Service) ConfirmPayment(token string) (rec PendingPayment, count, threshold int, ok bool) {
	rec, ok = s.repo.TakePending(token)
	if !ok {
		return PendingPayment{}, 0, 0, false
	}
	s.repo.PutPlayer(rec.ChatID, rec.UserID, Entry{Username: rec.Username, Choice: rec.Choice})
	return rec, s.repo.CountPlayers(rec.ChatID), s.Threshold(rec.ChatID), true
}

// BeginRound пытается захватить чат под розыгрыш. false — розыгрыш
// уже идёт, вызывающий должен молча выйти.
func (s *Service) BeginRound(chatKey string) bool {
	s.execMu.Lock()
	defer s.execMu.Unlock()
	if _, busy := s.inFlight[chatKey]; busy {
		return false
	}
	s.inFlight[chatKey] = struct{}{}
	return true
}

// EndRound освобождает чат. Вызывается через defer после BeginRound.
func (s *Service) EndRound(chatKey string) {
	s.execMu.Lock()
	defer s.execMu.Unlock()
	delete(s.inFlight, chatKey)
}

// Winners возвращает @username участников, угадавших result.
// Порядок не определён (итерация по map).
func (s *Service) Winners(chatKey string, result int) []string {
	winners := []string{}
	for _, entry := range s.repo.Players(chatKey) {
		if entry.Choice == result {
			winners = append(winners, entry.Username)
		}
	}
	return winners
}

// SaveLastRound перезаписывает снимок последнего раунда чата.
func (s *Service) SaveLastRound(chatKey string, result int, winners []string) {
	s.repo.SetLastRound(chatKey, RoundResult{Result: result, Winners: winners})
}

// LastRound возвращает снимок последнего раунда чата.
func (s *Service) LastRound(chatKey string) (RoundResult, bool) {
	return s.repo.LastRound(chatKey)
}

// ClearRound безусловно очищает участников чата. Выполняется после
// каждого розыгрыша независимо от исхода и по команде /reset.
func (s *Service) ClearRound(chatKey string) {
	s.repo.ClearPlayers(chatKey)
}

// SweepAbandoned удаляет ожидающие оплаты старше ttl.
// При ttl <= 0 ничего не делает: токены живут вечно.
func (s *Service) SweepAbandoned(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	return s.repo.SweepPending(time.Now().UTC().Add(-ttl))
}
