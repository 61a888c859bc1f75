package bot_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relay/timesheet-bot/auth"
	"github.com/relay/timesheet-bot/bot"
	"github.com/relay/timesheet-bot/jira"
	"github.com/relay/timesheet-bot/period"
	"github.com/relay/timesheet-bot/store/sqlite"
)

// =============================================================================
// FAKES
// =============================================================================

type sentFile struct {
	channelID string
	filename  string
	data      []byte
	message   string
}

// fakeChat records outbound traffic. Channels are DMs unless marked otherwise.
type fakeChat struct {
	messages   []string
	files      []sentFile
	notDirect  map[string]bool
	channelErr error
}

func (c *fakeChat) SendMessage(channelID, message string) error {
	c.messages = append(c.messages, message)
	return nil
}

func (c *fakeChat) SendFile(channelID, filename string, data []byte, message string) error {
	c.files = append(c.files, sentFile{channelID, filename, data, message})
	return nil
}

func (c *fakeChat) IsDirectChannel(channelID string) (bool, error) {
	if c.channelErr != nil {
		return false, c.channelErr
	}
	return !c.notDirect[channelID], nil
}

func (c *fakeChat) lastMessage() string {
	if len(c.messages) == 0 {
		return ""
	}
	return c.messages[len(c.messages)-1]
}

// fakeSource is an in-memory WorklogSource.
type fakeSource struct {
	name      string
	verifyErr error
	projects  []jira.Project
	rows      map[string][]jira.Row // by project key
}

func (s *fakeSource) Verify(ctx context.Context) (string, error) {
	if s.verifyErr != nil {
		return "", s.verifyErr
	}
	return s.name, nil
}

func (s *fakeSource) Projects(ctx context.Context) ([]jira.Project, error) {
	return s.projects, nil
}

func (s *fakeSource) WorklogsForProject(ctx context.Context, projectKey string, p period.Period) ([]jira.Row, error) {
	return s.rows[projectKey], nil
}

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	bot    *bot.Bot
	chat   *fakeChat
	store  *sqlite.Store
	vault  *auth.Vault
	source *fakeSource

	// credentials the factory was last called with
	factoryEmail string
	factoryToken string
}

func newFixture(t *testing.T) *fixture {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	vault, err := auth.NewVault(store, "test-secret")
	require.NoError(t, err)

	fx := &fixture{
		chat:  &fakeChat{notDirect: map[string]bool{}},
		store: store,
		vault: vault,
		source: &fakeSource{
			name: "Иван Иванов",
			projects: []jira.Project{
				{Key: "PORT", Name: "Портал"},
				{Key: "BILL", Name: "Биллинг"},
			},
			rows: map[string][]jira.Row{},
		},
	}

	factory := func(email, apiToken string) (bot.WorklogSource, error) {
		fx.factoryEmail = email
		fx.factoryToken = apiToken
		return fx.source, nil
	}

	fx.bot = bot.New(fx.chat, store, vault, factory)
	fx.bot.Now = func() period.Date { return period.NewDate(2024, time.June, 18) }
	return fx
}

func (fx *fixture) send(text string) {
	fx.bot.HandlePost(context.Background(), bot.Post{
		UserID:    "user-1",
		ChannelID: "dm-1",
		Message:   text,
	})
}

func (fx *fixture) authenticate(t *testing.T) {
	t.Helper()
	err := fx.vault.Save(context.Background(), "user-1", auth.Credentials{
		Email:    "ivanov@company.ru",
		APIToken: "token",
	})
	require.NoError(t, err)
}

func worklogRow(day int, hours string) jira.Row {
	h, _ := decimal.NewFromString(hours)
	return jira.Row{
		Date:        time.Date(2024, time.June, day, 10, 0, 0, 0, time.UTC),
		Executor:    "ivanov",
		Hours:       h,
		Description: "PORT-1 - Настройка CI",
		ProjectTask: "Сопровождение Июнь",
		Project:     "Портал",
	}
}

// =============================================================================
// DISPATCH TESTS
// =============================================================================

func TestHandlePost_IgnoresNonDirectChannels(t *testing.T) {
	fx := newFixture(t)
	fx.chat.notDirect["town-square"] = true

	fx.bot.HandlePost(context.Background(), bot.Post{
		UserID: "user-1", ChannelID: "town-square", Message: "помощь",
	})

	assert.Empty(t, fx.chat.messages)
}

func TestHandlePost_Help(t *testing.T) {
	fx := newFixture(t)
	fx.send("помощь")

	assert.Contains(t, fx.chat.lastMessage(), "Доступные команды")
	assert.Contains(t, fx.chat.lastMessage(), "отчет")
}

func TestHandlePost_UnknownCommand(t *testing.T) {
	fx := newFixture(t)
	fx.send("сделай красиво")

	assert.Contains(t, fx.chat.lastMessage(), "Неизвестная команда")
}

func TestHandlePost_Status(t *testing.T) {
	fx := newFixture(t)
	fx.send("статус")
	assert.Contains(t, fx.chat.lastMessage(), "не подключена")

	fx.authenticate(t)
	fx.send("статус")
	assert.Contains(t, fx.chat.lastMessage(), "подключена")
}

// =============================================================================
// LOGIN FLOW
// =============================================================================

func TestLoginFlow_Success(t *testing.T) {
	// GIVEN: A user with no credentials
	// WHEN: Walking вход -> email -> token
	// THEN: Credentials are verified, encrypted and stored; session cleared

	fx := newFixture(t)

	fx.send("вход")
	assert.Contains(t, fx.chat.lastMessage(), "Введите ваш email")

	fx.send("ivanov@company.ru")
	assert.Contains(t, fx.chat.lastMessage(), "введите ваш API токен")

	fx.send("ATATT3-MiXeD-CaSe")
	assert.Contains(t, fx.chat.lastMessage(), "Успешно! Подключен как: Иван Иванов")

	creds, err := fx.vault.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ivanov@company.ru", creds.Email)
	assert.Equal(t, "ATATT3-MiXeD-CaSe", creds.APIToken)

	_, err = fx.store.GetSession(context.Background(), "user-1")
	assert.ErrorIs(t, err, sqlite.ErrSessionNotFound)
}

func TestLoginFlow_TokenKeepsCase(t *testing.T) {
	// Command matching lower-cases input; the token step must not.
	fx := newFixture(t)

	fx.send("вход")
	fx.send("ivanov@company.ru")
	fx.send("ОТЧЕТ-ЭтоНеКоманда-ABC")

	assert.Equal(t, "ОТЧЕТ-ЭтоНеКоманда-ABC", fx.factoryToken)
}

func TestLoginFlow_InvalidEmailRejected(t *testing.T) {
	fx := newFixture(t)

	fx.send("вход")
	fx.send("не email вовсе")
	assert.Contains(t, fx.chat.lastMessage(), "Некорректный email")

	// Still on the email step.
	rec, err := fx.store.GetSession(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, string(bot.StepEmail), rec.Step)
}

func TestLoginFlow_BadCredentials_RetriesTokenStep(t *testing.T) {
	fx := newFixture(t)
	fx.source.verifyErr = errors.New("401 unauthorized")

	fx.send("вход")
	fx.send("ivanov@company.ru")
	fx.send("bad-token")
	assert.Contains(t, fx.chat.lastMessage(), "Не удалось подключиться")

	// Credentials were not saved; the token step is still active.
	assert.False(t, fx.vault.IsAuthenticated(context.Background(), "user-1"))
	rec, err := fx.store.GetSession(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, string(bot.StepToken), rec.Step)

	// A correct token afterwards completes the flow.
	fx.source.verifyErr = nil
	fx.send("good-token")
	assert.Contains(t, fx.chat.lastMessage(), "Успешно")
}

func TestLogout_RemovesCredentials(t *testing.T) {
	fx := newFixture(t)
	fx.authenticate(t)

	fx.send("выход")
	assert.Contains(t, fx.chat.lastMessage(), "удалены")
	assert.False(t, fx.vault.IsAuthenticated(context.Background(), "user-1"))
}

// =============================================================================
// REPORT FLOW
// =============================================================================

func TestReportFlow_RequiresAuthentication(t *testing.T) {
	fx := newFixture(t)

	fx.send("отчет")
	joined := strings.Join(fx.chat.messages, "\n")
	assert.Contains(t, joined, "Сначала нужно подключить")
	assert.Contains(t, joined, "Введите ваш email")
}

func TestReportFlow_FullConversation(t *testing.T) {
	// GIVEN: An authenticated user with worklogs in the requested period
	// WHEN: Walking отчет -> project -> period
	// THEN: An .xlsx is delivered with a summary; the run is recorded

	fx := newFixture(t)
	fx.authenticate(t)
	fx.source.rows["PORT"] = []jira.Row{worklogRow(11, "1.5"), worklogRow(12, "2")}

	fx.send("отчет")
	assert.Contains(t, fx.chat.lastMessage(), "Введите ключ проекта")

	fx.send("port")
	assert.Contains(t, fx.chat.lastMessage(), "Выбрано **Портал** (PORT)")
	assert.Contains(t, fx.chat.lastMessage(), "Укажите период")

	fx.send("прошлая неделя")

	require.Len(t, fx.chat.files, 1)
	file := fx.chat.files[0]
	assert.Equal(t, "trudozatraty_Портал_2024-06-10_2024-06-16.xlsx", file.filename)
	assert.NotEmpty(t, file.data)
	assert.Contains(t, file.message, "Отчет готов")
	assert.Contains(t, file.message, "Записей: 2")
	assert.Contains(t, file.message, "Всего часов: 3,5")

	// Session cleared, run recorded.
	_, err := fx.store.GetSession(context.Background(), "user-1")
	assert.ErrorIs(t, err, sqlite.ErrSessionNotFound)
	count, err := fx.store.CountReportRuns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReportFlow_MultiProjectSummary(t *testing.T) {
	fx := newFixture(t)
	fx.authenticate(t)
	fx.source.rows["PORT"] = []jira.Row{worklogRow(11, "1.5")}
	fx.source.rows["BILL"] = []jira.Row{worklogRow(12, "2")}

	fx.send("отчет")
	fx.send("PORT, BILL")
	fx.send("прошлая неделя")

	require.Len(t, fx.chat.files, 1)
	msg := fx.chat.files[0].message
	assert.Contains(t, msg, "По проектам:")
	assert.Contains(t, msg, "Портал (PORT): 1 записей")
	assert.Contains(t, msg, "Биллинг (BILL): 1 записей")
}

func TestReportFlow_UnknownProjectKey(t *testing.T) {
	fx := newFixture(t)
	fx.authenticate(t)

	fx.send("отчет")
	fx.send("NOPE")
	assert.Contains(t, fx.chat.lastMessage(), "Проекты не найдены: `NOPE`")

	// Still on the project step.
	rec, err := fx.store.GetSession(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, string(bot.StepProject), rec.Step)
}

func TestReportFlow_ProjectListOnDemand(t *testing.T) {
	fx := newFixture(t)
	fx.authenticate(t)

	fx.send("отчет")
	fx.send("проекты")
	assert.Contains(t, fx.chat.lastMessage(), "Доступные проекты")
	assert.Contains(t, fx.chat.lastMessage(), "`PORT` - Портал")

	// The step did not advance.
	rec, err := fx.store.GetSession(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, string(bot.StepProject), rec.Step)
}

func TestReportFlow_UnparseablePeriod_Retries(t *testing.T) {
	// GIVEN: A user on the period step
	// WHEN: Sending something unparseable, then a real period
	// THEN: The failure explains itself with examples; the retry succeeds

	fx := newFixture(t)
	fx.authenticate(t)
	fx.source.rows["PORT"] = []jira.Row{worklogRow(3, "1")}

	fx.send("отчет")
	fx.send("PORT")
	fx.send("когда-нибудь потом")
	assert.Contains(t, fx.chat.lastMessage(), "Не удалось распознать период")
	assert.Contains(t, fx.chat.lastMessage(), "Примеры периодов")

	fx.send("этот месяц")
	require.Len(t, fx.chat.files, 1)
}

func TestReportFlow_EmptyPeriod_NoFile(t *testing.T) {
	fx := newFixture(t)
	fx.authenticate(t)
	// No worklogs configured.

	fx.send("отчет")
	fx.send("PORT")
	fx.send("прошлая неделя")

	assert.Empty(t, fx.chat.files)
	assert.Contains(t, fx.chat.lastMessage(), "не найдены")

	_, err := fx.store.GetSession(context.Background(), "user-1")
	assert.ErrorIs(t, err, sqlite.ErrSessionNotFound)
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestCancel_AbortsSession(t *testing.T) {
	fx := newFixture(t)
	fx.authenticate(t)

	fx.send("отчет")
	fx.send("отмена")
	assert.Contains(t, fx.chat.lastMessage(), "отменено")

	_, err := fx.store.GetSession(context.Background(), "user-1")
	assert.ErrorIs(t, err, sqlite.ErrSessionNotFound)
}

func TestSessionInput_BeatsCommandWords(t *testing.T) {
	// "отчет за май" on the period step is a period, not a new command.
	fx := newFixture(t)
	fx.authenticate(t)
	fx.source.rows["PORT"] = []jira.Row{worklogRow(3, "1")}

	fx.send("отчет")
	fx.send("PORT")
	fx.send("отчет за май")

	require.Len(t, fx.chat.files, 1)
	assert.Contains(t, fx.chat.files[0].filename, "2024-05-01_2024-05-31")
}
