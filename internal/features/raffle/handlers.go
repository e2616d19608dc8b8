// handlers.go обрабатывает события Telegram: числа в группе, оплаты,
// pre-checkout и команды раунда.
package raffle

import (
	"context"
	"fmt"
	"html"
	"math/rand/v2"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"raffle-bot/internal/config"
)

// botAPI — узкий срез *tgbotapi.BotAPI, который нужен обработчикам.
// Интерфейс позволяет подставить фейк в тестах.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Handler обрабатывает события Telegram, относящиеся к розыгрышу.
type Handler struct {
	service *Service
	bot     botAPI
	cfg     *config.Config

	// локальный бросок на случай, если Telegram не вернул значение кубика
	roll func() int
}

// NewHandler создаёт обработчик розыгрыша.
func NewHandler(service *Service, bot botAPI, cfg *config.Config) *Handler {
	return &Handler{
		service: service,
		bot:     bot,
		cfg:     cfg,
		roll:    func() int { return rand.IntN(6) + 1 },
	}
}

// isGroup сообщает, пришло ли сообщение из группы или супергруппы.
func isGroup(msg *tgbotapi.Message) bool {
	return msg.Chat != nil && (msg.Chat.IsGroup() || msg.Chat.IsSuperGroup())
}

// isDigits — текст состоит только из десятичных цифр (без знака и пробелов).
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// HandleGroupMessage обрабатывает обычный текст в группе как попытку участия.
//
// Проверки по порядку, первая несработавшая обрывает обработку:
// группа → ровно число → диапазон 1..6 → есть @username → ещё не участвует.
// Не-числа молча игнорируются: это обычный чат, не ошибка.
func (h *Handler) HandleGroupMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !isGroup(msg) || msg.From == nil {
		return
	}

	text := strings.TrimSpace(msg.Text)
	if !isDigits(text) {
		return
	}
	choice, err := strconv.Atoi(text)
	if err != nil || choice < 1 || choice > 6 {
		return
	}

	user := msg.From
	if user.UserName == "" {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("❗ %s, установи @username, чтобы участвовать.", user.FirstName))
		return
	}

	ck := ChatKey(msg.Chat.ID)
	uk := UserKey(user.ID)
	if h.service.IsParticipant(ck, uk) {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("ℹ️ %s, ты уже участвуешь.", user.FirstName))
		return
	}

	token := h.service.CreatePending(ck, uk, "@"+user.UserName, choice)

	invoice := tgbotapi.NewInvoice(
		user.ID,
		"Участие в розыгрыше",
		fmt.Sprintf("Оплата участия (%d⭐). Выбор %d.", h.cfg.PriceStars, choice),
		token,
		h.cfg.ProviderToken,
		"",
		h.cfg.Currency,
		[]tgbotapi.LabeledPrice{
			{Label: fmt.Sprintf("Выбор %d", choice), Amount: h.cfg.PriceStars * h.cfg.AmountMultiplier},
		},
	)
	if _, err := h.bot.Send(invoice); err != nil {
		log.WithError(err).WithField("user_id", user.ID).Warn("Не удалось отправить счёт")
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("❗ Не удалось отправить счёт. %s, напиши боту в личку и нажми /start.", user.FirstName))
		// откат: заявка без счёта не должна ждать оплату
		h.service.RollbackPending(token)
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID,
		fmt.Sprintf(`✅ <a href="tg://user?id=%d">%s</a>, счёт на оплату отправлен в личные сообщения.`,
			user.ID, html.EscapeString(user.FirstName)))
	reply.ParseMode = tgbotapi.ModeHTML
	if _, err := h.bot.Send(reply); err != nil {
		log.WithError(err).WithField("chat_id", msg.Chat.ID).Error("Ошибка отправки сообщения")
	}
}

// HandlePreCheckout подтверждает pre-checkout запрос. Всегда одобряем:
// сверка происходит после оплаты по токену.
func (h *Handler) HandlePreCheckout(query *tgbotapi.PreCheckoutQuery) {
	if query == nil {
		return
	}
	_, err := h.bot.Request(tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: query.ID,
		OK:                 true,
	})
	if err != nil {
		log.WithError(err).WithField("query_id", query.ID).Error("Не удалось ответить на pre-checkout")
	}
}

// HandleSuccessfulPayment сверяет подтверждённую оплату с ожидающей записью.
// Неизвестный токен — аномалия (повторное подтверждение или чужой счёт):
// отвечаем "не нашёл", таблицы не трогаем.
func (h *Handler) HandleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) {
	if msg.SuccessfulPayment == nil {
		return
	}
	token := msg.SuccessfulPayment.InvoicePayload

	rec, count, threshold, ok := h.service.ConfirmPayment(token)
	if !ok {
		log.WithField("token", token).Warn("Оплата с неизвестным токеном")
		h.sendMessage(msg.Chat.ID, "Спасибо за оплату! Но я не нашёл связанного раунда.")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ Оплата принята! Ты зарегистрирован (число %d).", rec.Choice))

	chatID, err := strconv.ParseInt(rec.ChatID, 10, 64)
	if err != nil {
		log.WithError(err).WithField("chat_key", rec.ChatID).Error("Битый ключ чата в ожидающей записи")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ %s зарегистрирован! (%d/%d)", rec.Username, count, threshold))

	if count >= threshold {
		go h.RunRound(ctx, chatID)
	}
}

// RunRound выполняет розыгрыш для чата: бросок, победители, анонс,
// снимок. Участники чата очищаются безусловно, даже если анонс упал.
// Повторный триггер для того же чата, пока розыгрыш идёт, — no-op.
func (h *Handler) RunRound(ctx context.Context, chatID int64) {
	ck := ChatKey(chatID)
	if !h.service.BeginRound(ck) {
		log.WithField("chat_id", chatID).Debug("Розыгрыш уже идёт, пропускаем")
		return
	}
	defer h.service.EndRound(ck)
	defer h.service.ClearRound(ck)

	if err := h.runRound(chatID, ck); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка розыгрыша")
		// best effort: если и это сообщение не ушло — просто логируем
		h.sendMessage(chatID, "⚠️ Ошибка розыгрыша. Попробуйте ещё раз.")
	}
}

func (h *Handler) runRound(chatID int64, ck string) error {
	result := h.rollDice(chatID)
	winners := h.service.Winners(ck, result)

	var sb strings.Builder
	fmt.Fprintf(&sb, "🎲 Выпало *%d*!\n\n", result)
	if len(winners) > 0 {
		sb.WriteString("🏆 Победители:\n")
		sb.WriteString(strings.Join(winners, "\n"))
		fmt.Fprintf(&sb, "\n\n💰 Владелец выплатит по %d⭐ каждому.", h.cfg.PrizeStars)
	} else {
		sb.WriteString("😅 Никто не угадал.")
	}

	announce := tgbotapi.NewMessage(chatID, sb.String())
	announce.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(announce); err != nil {
		return fmt.Errorf("анонс результата: %w", err)
	}

	h.service.SaveLastRound(ck, result, winners)
	return nil
}

// rollDice бросает кубик через Telegram; если платформа не вернула
// значение или вызов упал — локальный равномерный бросок 1..6.
func (h *Handler) rollDice(chatID int64) int {
	msg, err := h.bot.Send(tgbotapi.NewDice(chatID))
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("Кубик не отправился, бросаем локально")
		return h.roll()
	}
	if msg.Dice == nil || msg.Dice.Value < 1 || msg.Dice.Value > 6 {
		return h.roll()
	}
	return msg.Dice.Value
}

// --- Команды ---

// HandleStartPrivate отвечает на /start в личке краткой инструкцией.
func (h *Handler) HandleStartPrivate(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || !msg.Chat.IsPrivate() {
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf(
		"Привет! 🎲 Чтобы участвовать: в группе отправь число 1–6. "+
			"Я пришлю счёт на оплату (%d⭐) в личку. После оплаты ты будешь зарегистрирован в текущем раунде.",
		h.cfg.PriceStars))
}

// HandleStatus показывает текущий счёт участников чата.
func (h *Handler) HandleStatus(ctx context.Context, msg *tgbotapi.Message) {
	if !isGroup(msg) {
		h.sendMessage(msg.Chat.ID, "Команда /status доступна только в группе.")
		return
	}
	ck := ChatKey(msg.Chat.ID)
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("📋 Зарегистрировано %d/%d участников.",
		h.service.Count(ck), h.service.Threshold(ck)))
}

// HandleReset сбрасывает текущий раунд чата. Только для администратора;
// возвраты оплат не делаем.
func (h *Handler) HandleReset(ctx context.Context, msg *tgbotapi.Message) {
	if !isGroup(msg) {
		h.sendMessage(msg.Chat.ID, "Команда /reset доступна только в группе.")
		return
	}
	if !h.isAdmin(msg.Chat.ID, msg.From.ID) {
		h.sendMessage(msg.Chat.ID, "❌ Только администратор может сбросить раунд.")
		return
	}
	h.service.ClearRound(ChatKey(msg.Chat.ID))
	h.sendMessage(msg.Chat.ID, "♻️ Раунд сброшен.")
}

// HandleSetLimit показывает или меняет лимит участников чата.
// Без аргумента — показ текущего лимита; с числом — установка.
func (h *Handler) HandleSetLimit(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if !isGroup(msg) {
		h.sendMessage(msg.Chat.ID, "Команда /setlimit доступна только в группе.")
		return
	}
	if !h.isAdmin(msg.Chat.ID, msg.From.ID) {
		h.sendMessage(msg.Chat.ID, "❌ Только администратор может менять лимит.")
		return
	}

	ck := ChatKey(msg.Chat.ID)
	if len(args) == 0 {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Текущий лимит для этой группы: %d участников.", h.service.Threshold(ck)))
		return
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		h.sendMessage(msg.Chat.ID, "Укажите корректное положительное число. Пример: /setlimit 50")
		return
	}
	if err := h.service.SetThreshold(ck, n); err != nil {
		h.sendMessage(msg.Chat.ID, "Укажите корректное положительное число. Пример: /setlimit 50")
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ Лимит для этой группы изменён на %d участников.", n))
}

// HandleForceStart запускает розыгрыш немедленно, не дожидаясь лимита.
func (h *Handler) HandleForceStart(ctx context.Context, msg *tgbotapi.Message) {
	if !isGroup(msg) {
		h.sendMessage(msg.Chat.ID, "Команда /forcestart работает только в группе.")
		return
	}
	if !h.isAdmin(msg.Chat.ID, msg.From.ID) {
		h.sendMessage(msg.Chat.ID, "❌ Только администратор может принудительно запустить розыгрыш.")
		return
	}

	cnt := h.service.Count(ChatKey(msg.Chat.ID))
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("⚠️ Инициирован принудительный розыгрыш. Сейчас участников: %d.", cnt))
	go h.RunRound(ctx, msg.Chat.ID)
}

// HandleWinners показывает результат последнего раунда чата.
func (h *Handler) HandleWinners(ctx context.Context, msg *tgbotapi.Message) {
	if !isGroup(msg) {
		h.sendMessage(msg.Chat.ID, "Команда /winners доступна только в группе.")
		return
	}
	res, ok := h.service.LastRound(ChatKey(msg.Chat.ID))
	if !ok {
		h.sendMessage(msg.Chat.ID, "Информация о последнем раунде отсутствует.")
		return
	}
	if len(res.Winners) > 0 {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("🎲 Последний раунд — выпало %d.\n🏆 Победители:\n%s",
			res.Result, strings.Join(res.Winners, "\n")))
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("🎲 Последний раунд — выпало %d.\n😅 Никто не угадал.", res.Result))
}

// isAdmin проверяет роль пользователя через Telegram. Любая ошибка
// запроса трактуется как "не админ" (fail-closed).
func (h *Handler) isAdmin(chatID, userID int64) bool {
	member, err := h.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id": chatID,
			"user_id": userID,
		}).Debug("GetChatMember не удался, считаем не-админом")
		return false
	}
	return member.Status == "administrator" || member.Status == "creator"
}

// sendMessage — утилита для отправки сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
