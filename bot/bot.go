/*
bot.go - Command dispatch and the conversational state machine

PURPOSE:
  Routes every incoming direct message either to a command (помощь,
  проекты, отчет, вход, выход, статус) or, when the user has a session
  in flight, to the current conversation step.

DISPATCH RULES:
  - Only direct-message channels are served; everything else is ignored.
  - An in-flight session takes precedence over command matching, so a
    period phrase like "отчет за май" typed on the period step is parsed
    as a period, not treated as a new command. Only "отмена" breaks out
    of a session.
  - Command matching is substring-based over the lower-cased message;
    session input is handled verbatim (tokens are case-sensitive).

SEE ALSO:
  - session.go: steps and session persistence
  - report.go: report generation once a session completes
  - period/resolver.go: free-form period parsing on the period step
*/
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/relay/timesheet-bot/auth"
	"github.com/relay/timesheet-bot/jira"
	"github.com/relay/timesheet-bot/period"
	"github.com/relay/timesheet-bot/store/sqlite"
)

// =============================================================================
// BOT
// =============================================================================

// Bot is the conversation engine. It is safe for sequential use from a
// single event loop; all state lives in the store.
type Bot struct {
	Chat   Chat
	Store  *sqlite.Store
	Vault  *auth.Vault
	Source SourceFactory

	// Now supplies the reference date for relative periods. It is called
	// fresh on every period step, never cached. Tests override it.
	Now func() period.Date
}

// New wires a bot from its collaborators.
func New(chat Chat, store *sqlite.Store, vault *auth.Vault, source SourceFactory) *Bot {
	return &Bot{
		Chat:   chat,
		Store:  store,
		Vault:  vault,
		Source: source,
		Now:    period.Today,
	}
}

// Restore logs the sessions that survived a restart and drops the ones
// whose DM channel is no longer reachable.
func (b *Bot) Restore(ctx context.Context) error {
	sessions, err := b.Store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("restore sessions: %w", err)
	}
	if len(sessions) == 0 {
		log.Printf("bot: no active sessions to restore")
		return nil
	}

	kept := 0
	for _, s := range sessions {
		dm, err := b.Chat.IsDirectChannel(s.ChannelID)
		if err != nil || !dm {
			log.Printf("bot: dropping session for %s: channel %s unavailable", s.UserID, s.ChannelID)
			b.clearSession(ctx, s.UserID)
			continue
		}
		kept++
	}
	log.Printf("bot: restored %d active sessions", kept)
	return nil
}

// =============================================================================
// DISPATCH
// =============================================================================

// HandlePost processes one incoming message. Errors are reported to the
// user and logged; they never propagate to the event loop.
func (b *Bot) HandlePost(ctx context.Context, post Post) {
	dm, err := b.Chat.IsDirectChannel(post.ChannelID)
	if err != nil {
		log.Printf("bot: channel check failed for %s: %v", post.ChannelID, err)
		return
	}
	if !dm {
		// The bot only works in direct messages.
		return
	}

	text := strings.TrimSpace(post.Message)
	lower := strings.ToLower(text)

	rec, err := b.Store.GetSession(ctx, post.UserID)
	switch {
	case err == nil:
		if containsAny(lower, "отмена", "cancel") {
			b.clearSession(ctx, post.UserID)
			b.send(post.ChannelID, "Действие отменено. Введите `отчет` чтобы начать заново.")
			return
		}
		b.handleSessionInput(ctx, rec, text, lower)
	case errors.Is(err, sqlite.ErrSessionNotFound):
		b.handleCommand(ctx, post, lower)
	default:
		log.Printf("bot: session lookup failed for %s: %v", post.UserID, err)
		b.sendError(post.ChannelID, "Произошла ошибка при обработке команды")
	}
}

func (b *Bot) handleCommand(ctx context.Context, post Post, lower string) {
	switch {
	case containsAny(lower, "помощь", "help", "команды"):
		b.send(post.ChannelID, helpText)

	case containsAny(lower, "проекты", "список проектов"):
		b.sendProjectsList(ctx, post.UserID, post.ChannelID)

	case containsAny(lower, "отчет", "отчёт", "трудозатраты"):
		b.startReport(ctx, post.UserID, post.ChannelID)

	case containsAny(lower, "вход", "login", "авторизация"):
		b.startLogin(ctx, post.UserID, post.ChannelID)

	case containsAny(lower, "выход", "logout"):
		b.logout(ctx, post.UserID, post.ChannelID)

	case containsAny(lower, "статус", "status"):
		b.sendStatus(ctx, post.UserID, post.ChannelID)

	default:
		b.send(post.ChannelID,
			"❓ Неизвестная команда. Введите `помощь` для просмотра доступных команд.")
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

const helpText = "**Бот для выгрузки трудозатрат из Jira** 📊\n\n" +
	"Доступные команды:\n" +
	"• `отчет` или `трудозатраты` - сгенерировать отчет по трудозатратам\n" +
	"• `проекты` - показать список доступных проектов\n" +
	"• `вход` - подключить учетную запись Jira\n" +
	"• `выход` - удалить сохраненные учетные данные\n" +
	"• `статус` - показать состояние подключения\n" +
	"• `отмена` - прервать текущее действие\n" +
	"• `помощь` - показать эту справку\n\n" +
	"**Для генерации отчета:**\n" +
	"1. Введите команду `отчет`\n" +
	"2. Выберите один или несколько проектов:\n" +
	"   • Один проект: `PROJ`\n" +
	"   • Несколько проектов: `PROJ1, PROJ2, PROJ3`\n" +
	"3. Укажите период в свободной форме\n" +
	"4. Получите Excel файл с трудозатратами\n\n" +
	periodExamples

const periodExamples = "**Примеры периодов:**\n" +
	"• `прошлая неделя`, `этот месяц`, `прошлый квартал`\n" +
	"• `май`, `июнь 2024`, `с мая по июнь`\n" +
	"• `2 квартал 2024`, `последние 7 дней`\n" +
	"• `с 15 мая по 20 июня`\n" +
	"• `2024-01-01` или `с 2024-01-01 по 2024-01-31`"

func (b *Bot) startLogin(ctx context.Context, userID, channelID string) {
	if err := b.beginSession(ctx, userID, channelID, StepEmail); err != nil {
		log.Printf("bot: failed to start login for %s: %v", userID, err)
		b.sendError(channelID, "Не удалось начать авторизацию")
		return
	}
	b.send(channelID,
		"🔐 **Подключение к Jira**\n\n"+
			"Введите ваш email в Jira (например: ivanov@company.ru):")
}

func (b *Bot) logout(ctx context.Context, userID, channelID string) {
	if err := b.Vault.Remove(ctx, userID); err != nil {
		log.Printf("bot: logout failed for %s: %v", userID, err)
		b.sendError(channelID, "Не удалось удалить учетные данные")
		return
	}
	b.send(channelID, "✅ Учетные данные Jira удалены. Введите `вход` чтобы подключиться заново.")
}

func (b *Bot) sendStatus(ctx context.Context, userID, channelID string) {
	if b.Vault.IsAuthenticated(ctx, userID) {
		b.send(channelID, "✅ Учетная запись Jira подключена. Введите `отчет` для генерации отчета.")
		return
	}
	b.send(channelID, "⚠️ Учетная запись Jira не подключена. Введите `вход` для авторизации.")
}

func (b *Bot) startReport(ctx context.Context, userID, channelID string) {
	if !b.Vault.IsAuthenticated(ctx, userID) {
		// Route through the login flow first.
		b.send(channelID, "⚠️ Сначала нужно подключить учетную запись Jira.")
		b.startLogin(ctx, userID, channelID)
		return
	}

	if err := b.beginSession(ctx, userID, channelID, StepProject); err != nil {
		log.Printf("bot: failed to start report for %s: %v", userID, err)
		b.sendError(channelID, "Не удалось начать генерацию отчета")
		return
	}
	b.send(channelID,
		"📋 **Генерация отчета по трудозатратам**\n\n"+
			"Введите ключ проекта или несколько ключей через запятую:\n"+
			"• Один проект: `PROJ`\n"+
			"• Несколько проектов: `PROJ1, PROJ2, PROJ3`\n"+
			"• Введите `проекты` для просмотра списка доступных проектов")
}

func (b *Bot) sendProjectsList(ctx context.Context, userID, channelID string) {
	src, err := b.userSource(ctx, userID)
	if err != nil {
		b.reportSourceError(channelID, err)
		return
	}

	projects, err := src.Projects(ctx)
	if err != nil {
		log.Printf("bot: project list failed for %s: %v", userID, err)
		b.sendError(channelID, "Ошибка получения списка проектов")
		return
	}
	if len(projects) == 0 {
		b.send(channelID, "❌ Не удалось получить список проектов")
		return
	}

	var sb strings.Builder
	sb.WriteString("**Доступные проекты:**\n\n")
	shown := projects
	if len(shown) > 20 {
		shown = shown[:20]
	}
	for _, p := range shown {
		fmt.Fprintf(&sb, "• `%s` - %s\n", p.Key, p.Name)
	}
	if len(projects) > 20 {
		fmt.Fprintf(&sb, "\n... и еще %d проектов", len(projects)-20)
	}
	b.send(channelID, sb.String())
}

// =============================================================================
// SESSION STEPS
// =============================================================================

func (b *Bot) handleSessionInput(ctx context.Context, rec sqlite.SessionRecord, text, lower string) {
	switch Step(rec.Step) {
	case StepEmail:
		b.stepEmail(ctx, rec, text)
	case StepToken:
		b.stepToken(ctx, rec, text)
	case StepProject:
		b.stepProject(ctx, rec, text, lower)
	case StepPeriod:
		b.stepPeriod(ctx, rec, text)
	default:
		log.Printf("bot: unknown session step %q for %s", rec.Step, rec.UserID)
		b.clearSession(ctx, rec.UserID)
		b.sendError(rec.ChannelID, "Сессия повреждена, начните заново")
	}
}

func (b *Bot) stepEmail(ctx context.Context, rec sqlite.SessionRecord, text string) {
	email := strings.TrimSpace(text)
	if !strings.Contains(email, "@") || strings.ContainsAny(email, " \t") {
		b.send(rec.ChannelID, "❌ Некорректный email. Введите email вида ivanov@company.ru:")
		return
	}

	rec.Email = email
	if err := b.advance(ctx, rec, StepToken); err != nil {
		log.Printf("bot: failed to advance login for %s: %v", rec.UserID, err)
		b.sendError(rec.ChannelID, "Произошла ошибка, попробуйте еще раз")
		return
	}
	b.send(rec.ChannelID,
		fmt.Sprintf("✅ Email: %s\n\nТеперь введите ваш API токен Jira:", email))
}

func (b *Bot) stepToken(ctx context.Context, rec sqlite.SessionRecord, text string) {
	token := strings.TrimSpace(text)
	if token == "" {
		b.send(rec.ChannelID, "❌ Токен не может быть пустым. Введите API токен Jira:")
		return
	}

	src, err := b.Source(rec.Email, token)
	if err != nil {
		log.Printf("bot: source init failed for %s: %v", rec.UserID, err)
		b.sendError(rec.ChannelID, "Не удалось подключиться к Jira")
		return
	}

	who, err := src.Verify(ctx)
	if err != nil {
		log.Printf("bot: credential check failed for %s: %v", rec.UserID, err)
		b.send(rec.ChannelID,
			"❌ Не удалось подключиться к Jira с этими данными.\n"+
				"Проверьте email и токен, затем введите токен еще раз (или `отмена`):")
		return
	}

	err = b.Vault.Save(ctx, rec.UserID, auth.Credentials{Email: rec.Email, APIToken: token})
	if err != nil {
		log.Printf("bot: failed to save credentials for %s: %v", rec.UserID, err)
		b.sendError(rec.ChannelID, "Не удалось сохранить учетные данные")
		return
	}

	b.clearSession(ctx, rec.UserID)
	b.send(rec.ChannelID,
		fmt.Sprintf("✅ Успешно! Подключен как: %s\n\nВведите `отчет` для генерации отчета.", who))
}

func (b *Bot) stepProject(ctx context.Context, rec sqlite.SessionRecord, text, lower string) {
	if strings.Contains(lower, "проекты") {
		b.sendProjectsList(ctx, rec.UserID, rec.ChannelID)
		return
	}

	src, err := b.userSource(ctx, rec.UserID)
	if err != nil {
		b.reportSourceError(rec.ChannelID, err)
		return
	}

	available, err := src.Projects(ctx)
	if err != nil {
		log.Printf("bot: project validation failed for %s: %v", rec.UserID, err)
		b.sendError(rec.ChannelID, "Ошибка получения списка проектов")
		return
	}
	byKey := make(map[string]jira.Project, len(available))
	for _, p := range available {
		byKey[p.Key] = p
	}

	var selected []jira.Project
	var invalid []string
	for _, raw := range strings.Split(text, ",") {
		key := strings.ToUpper(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		if p, ok := byKey[key]; ok {
			selected = append(selected, p)
		} else {
			invalid = append(invalid, key)
		}
	}

	if len(invalid) > 0 {
		b.send(rec.ChannelID, fmt.Sprintf(
			"❌ Проекты не найдены: `%s`\n"+
				"Введите корректные ключи проектов или `проекты` для просмотра списка.",
			strings.Join(invalid, ", ")))
		return
	}
	if len(selected) == 0 {
		b.send(rec.ChannelID,
			"❌ Не указан ни один проект. Введите ключ проекта или `проекты` для просмотра списка.")
		return
	}

	keys := make([]string, len(selected))
	for i, p := range selected {
		keys[i] = p.Key
	}
	rec.ProjectKeys = keys
	if err := b.advance(ctx, rec, StepPeriod); err != nil {
		log.Printf("bot: failed to advance report for %s: %v", rec.UserID, err)
		b.sendError(rec.ChannelID, "Произошла ошибка, попробуйте еще раз")
		return
	}

	var chosen string
	if len(selected) == 1 {
		chosen = fmt.Sprintf("**%s** (%s)", selected[0].Name, selected[0].Key)
	} else {
		lines := make([]string, len(selected))
		for i, p := range selected {
			lines[i] = fmt.Sprintf("• **%s** (%s)", p.Name, p.Key)
		}
		chosen = fmt.Sprintf("%d проектов:\n%s", len(selected), strings.Join(lines, "\n"))
	}
	b.send(rec.ChannelID, fmt.Sprintf(
		"✅ Выбрано %s\n\nУкажите период в свободной форме.\n\n%s", chosen, periodExamples))
}

func (b *Bot) stepPeriod(ctx context.Context, rec sqlite.SessionRecord, text string) {
	// The reference date is sampled fresh for every request.
	res := period.Resolve(text, b.Now())
	if !res.Matched {
		b.send(rec.ChannelID, res.Explanation+"\n\n"+periodExamples)
		return
	}

	rec.PeriodStart = res.Period.Start.String()
	rec.PeriodEnd = res.Period.End.String()

	b.send(rec.ChannelID, res.Explanation+"\n\n⏳ Генерирую отчет... Это может занять некоторое время.")
	b.generateReport(ctx, rec, res.Period)
}

// =============================================================================
// HELPERS
// =============================================================================

// userSource builds a WorklogSource from the user's stored credentials.
func (b *Bot) userSource(ctx context.Context, userID string) (WorklogSource, error) {
	creds, err := b.Vault.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return b.Source(creds.Email, creds.APIToken)
}

func (b *Bot) reportSourceError(channelID string, err error) {
	if errors.Is(err, auth.ErrNotAuthenticated) {
		b.send(channelID, "⚠️ Учетная запись Jira не подключена. Введите `вход` для авторизации.")
		return
	}
	log.Printf("bot: jira source unavailable: %v", err)
	b.sendError(channelID, "Не удалось подключиться к Jira")
}

func (b *Bot) send(channelID, message string) {
	if err := b.Chat.SendMessage(channelID, message); err != nil {
		log.Printf("bot: failed to send message to %s: %v", channelID, err)
	}
}

func (b *Bot) sendError(channelID, message string) {
	b.send(channelID, "❌ **Ошибка:** "+message)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
