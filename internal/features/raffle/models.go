// Package raffle реализует розыгрыш по числу 1–6 с оплатой участия звёздами.
// models.go описывает записи четырёх таблиц состояния.
package raffle

import "time"

// Entry — подтверждённая заявка участника в текущем раунде.
type Entry struct {
	Username string `json:"username"` // "@handle", как записывается при оплате
	Choice   int    `json:"choice"`   // выбранное число, 1..6
}

// PendingPayment — запись ожидающей оплаты, ключ — payload счёта.
// Токен потребляется ровно один раз: либо при подтверждении оплаты,
// либо при откате после неудачной отправки счёта.
type PendingPayment struct {
	ChatID    string    `json:"chat_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Choice    int       `json:"choice"`
	CreatedAt time.Time `json:"created_at"`
}

// RoundResult — снимок последнего завершённого раунда чата.
// Перезаписывается при каждом розыгрыше в этом чате.
type RoundResult struct {
	Result  int      `json:"result"`
	Winners []string `json:"winners"`
}

// ChatSettings — пер-чатовые настройки; отсутствующий ключ
// означает глобальный дефолт из конфигурации.
type ChatSettings struct {
	MaxPlayers int `json:"max_players"`
}
