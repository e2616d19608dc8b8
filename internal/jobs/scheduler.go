// Package jobs управляет фоновыми задачами (cron).
// Единственная задача — ежечасная уборка брошенных ожидающих оплат:
// счёт отправлен, но так и не оплачен.
package jobs

import (
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"raffle-bot/internal/features/raffle"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron          *cron.Cron
	raffleService *raffle.Service
	pendingTTL    time.Duration
}

// NewScheduler создаёт планировщик в часовом поясе tz (fallback — UTC).
func NewScheduler(raffleService *raffle.Service, tz string, pendingTTL time.Duration) *Scheduler {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.WithError(err).WithField("tz", tz).Warn("Не удалось загрузить часовой пояс, используем UTC")
		loc = time.UTC
	}

	return &Scheduler{
		cron:          cron.New(cron.WithLocation(loc)),
		raffleService: raffleService,
		pendingTTL:    pendingTTL,
	}
}

// Start запускает фоновые задачи.
func (s *Scheduler) Start() {
	if s.pendingTTL <= 0 {
		// уборка выключена: токены без оплаты живут вечно
		log.Info("PENDING_TTL не задан, уборка ожидающих оплат выключена")
		return
	}

	s.cron.AddFunc("0 * * * *", func() {
		removed := s.raffleService.SweepAbandoned(s.pendingTTL)
		if removed > 0 {
			log.WithField("removed", removed).Info("[CRON] Удалены брошенные ожидающие оплаты")
		} else {
			log.Debug("[CRON] Брошенных ожидающих оплат нет")
		}
	})

	s.cron.Start()
	log.WithField("ttl", s.pendingTTL).Info("Планировщик задач запущен")
}

// Stop останавливает планировщик и дожидается текущих задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
