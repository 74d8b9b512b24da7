package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"todo-keeper/internal/model"
	"todo-keeper/internal/repository"
	"todo-keeper/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTaskText
	stageTaskColor
	stageTaskPriority
	stageEditText
)

const (
	cbTogglePrefix = "toggle:"
	cbDeletePrefix = "delete:"
)

const (
	btnSkip         = "⏭️ Пропустить"
	btnConfirm      = "✅ Подтвердить"
	btnCancel       = "↩️ Отмена"
	btnCancelDialog = "⏪ Отменить ввод"

	menuLabelNewTask = "➕ Новая задача"
	menuLabelTasks   = "📋 Задачи"
	menuLabelStats   = "📊 Статистика"
	menuLabelHelp    = "ℹ️ Помощь"
)

// colorOptions maps keyboard labels to palette values.
var colorOptions = []struct {
	Label string
	Hex   string
}{
	{"🔵 Голубой", "#4FC3F7"},
	{"🔴 Красный", "#E57373"},
	{"🟢 Зелёный", "#81C784"},
	{"🟡 Жёлтый", "#FFD54F"},
	{"🟣 Фиолетовый", "#BA68C8"},
}

var priorityOptions = []struct {
	Label    string
	Priority model.Priority
}{
	{"🔺 Высокий", model.PriorityHigh},
	{"▫️ Средний", model.PriorityMedium},
	{"🔽 Низкий", model.PriorityLow},
}

type conversationState struct {
	stage  conversationStage
	text   string
	color  string
	taskID int64
}

type confirmationAction int

const (
	actionDeleteTask confirmationAction = iota
	actionClearCompleted
	actionDeleteAll
	actionDeleteAccount
)

type confirmationRequest struct {
	action confirmationAction
	taskID int64
}

// session keeps the per-chat display state: filter, sort mode and any
// conversation or confirmation in flight. It lives in memory only.
type session struct {
	filter  service.Filter
	sort    service.SortMode
	conv    *conversationState
	confirm *confirmationRequest
}

// Bot wires the Telegram surface to the task and account services.
// The active task store follows the process-wide current user: one
// signed-in account at a time, the guest list otherwise.
type Bot struct {
	api      *tgbotapi.BotAPI
	accounts *service.AccountService
	lists    *repository.TaskListRepository
	settings *repository.SettingsRepository
	reports  *service.ReportService
	proj     *service.Projector

	store *service.TaskStore
	dark  bool

	sessions map[int64]*session
	mu       sync.Mutex
}

func New(token string, accounts *service.AccountService, lists *repository.TaskListRepository, settings *repository.SettingsRepository, reports *service.ReportService, proj *service.Projector) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	owner, signedIn, err := accounts.Current()
	if err != nil {
		return nil, err
	}
	if !signedIn {
		owner = ""
	}
	store, err := service.NewTaskStore(lists, owner)
	if err != nil {
		return nil, err
	}

	dark, err := settings.DarkTheme()
	if err != nil {
		return nil, err
	}

	return &Bot{
		api:      api,
		accounts: accounts,
		lists:    lists,
		settings: settings,
		reports:  reports,
		proj:     proj,
		store:    store,
		dark:     dark,
		sessions: make(map[int64]*session),
	}, nil
}

// Start begins polling updates until ctx is cancelled. Updates are
// handled one at a time, so store mutations never overlap.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	chatID := msg.Chat.ID
	sess := b.session(chatID)

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		sess.conv = nil
		sess.confirm = nil
		return b.sendText(chatID, "⏪ Ввод отменён.")
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s", msg.From.ID, msg.Command())
		sess.conv = nil
		sess.confirm = nil
		return b.handleCommand(msg)
	}

	if sess.confirm != nil {
		return b.handleConfirmationResponse(msg, sess)
	}

	if sess.conv != nil {
		return b.handleConversation(msg, sess)
	}

	if handled, err := b.handleMenuAlias(msg); handled {
		return err
	}

	return b.sendText(chatID, "Я пока не понял сообщение. Набери /new, чтобы добавить задачу, или /help для списка команд.")
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "new":
		return b.startNewTaskConversation(msg)
	case "add":
		return b.handleQuickAdd(msg)
	case "list":
		return b.sendTaskList(msg.Chat.ID)
	case "toggle":
		return b.handleToggle(msg)
	case "edit":
		return b.handleEdit(msg)
	case "move":
		return b.handleMove(msg)
	case "delete":
		return b.handleDelete(msg)
	case "clear":
		return b.handleClearCompleted(msg)
	case "deleteall":
		return b.handleDeleteAll(msg)
	case "filter":
		return b.handleFilter(msg)
	case "sort":
		return b.handleSort(msg)
	case "theme":
		return b.handleTheme(msg)
	case "stats":
		return b.handleStats(msg)
	case "report":
		return b.handleReport(msg)
	case "register":
		return b.handleRegister(msg)
	case "login":
		return b.handleLogin(msg)
	case "logout":
		return b.handleLogout(msg)
	case "account":
		return b.handleAccount(msg)
	case "changeemail":
		return b.handleChangeEmail(msg)
	case "changepassword":
		return b.handleChangePassword(msg)
	case "deleteaccount":
		return b.handleDeleteAccount(msg)
	case "cancel":
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	if owner, signedIn, err := b.accounts.Current(); err == nil && signedIn {
		if err := b.sendText(msg.Chat.ID, fmt.Sprintf("👋 С возвращением, %s!", html.EscapeString(owner))); err != nil {
			return err
		}
		return b.sendTaskList(msg.Chat.ID)
	}

	hasAccounts, err := b.accounts.HasAccounts()
	if err != nil {
		return err
	}

	text := "👋 Привет!\n<b>Я веду твой список задач: добавляй, отмечай, сортируй.</b>\n\n" +
		"• /new — добавить задачу по шагам\n" +
		"• /list — показать список\n" +
		"• /stats — статистика и прогресс\n" +
		"• /help — все команды"
	if hasAccounts {
		text += "\n\nУ тебя есть аккаунт? Войди: /login email пароль"
	} else {
		text += "\n\nМожно завести аккаунт: /register email пароль"
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Команды</b>\n" +
		"• /new — добавить задачу по шагам\n" +
		"• /add &lt;текст&gt; — быстрое добавление\n" +
		"• /list — показать список\n" +
		"• /toggle &lt;id&gt; — переключить выполнение\n" +
		"• /edit &lt;id&gt; [текст] — изменить текст\n" +
		"• /move &lt;id&gt; &lt;позиция&gt; — переставить задачу\n" +
		"• /delete &lt;id&gt; — удалить задачу\n" +
		"• /clear — удалить выполненные\n" +
		"• /deleteall — удалить все задачи\n" +
		"• /filter all|pending|completed — фильтр\n" +
		"• /sort date|priority|alpha — сортировка\n" +
		"• /theme — переключить тему\n" +
		"• /stats — статистика и прогресс\n" +
		"• /report — отчёт как по расписанию\n" +
		"• /register, /login, /logout, /account — аккаунт\n" +
		"• /cancel — отменить текущий ввод"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) startNewTaskConversation(msg *tgbotapi.Message) error {
	sess := b.session(msg.Chat.ID)
	sess.conv = &conversationState{stage: stageTaskText}
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Создаём задачу.\n<b>Шаг 1:</b> какой у неё текст?", cancelKeyboard())
}

func (b *Bot) handleConversation(msg *tgbotapi.Message, sess *session) error {
	state := sess.conv
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch state.stage {
	case stageTaskText:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "⚠️ Текст задачи не может быть пустым. Попробуй ещё раз.", cancelKeyboard())
		}
		state.text = text
		state.stage = stageTaskColor
		return b.sendWithReplyMarkup(chatID, "🎨 Выбери цвет (или «Пропустить» — возьму случайный).", colorKeyboard())
	case stageTaskColor:
		if !isSkipInput(text) {
			hex, ok := colorFromInput(text)
			if !ok {
				return b.sendWithReplyMarkup(chatID, "Выбери цвет кнопкой или пришли hex вида <code>#AABBCC</code>.", colorKeyboard())
			}
			state.color = hex
		}
		state.stage = stageTaskPriority
		return b.sendWithReplyMarkup(chatID, "❗ Какой приоритет?", priorityKeyboard())
	case stageTaskPriority:
		priority, ok := priorityFromInput(text)
		if !ok {
			return b.sendWithReplyMarkup(chatID, "Выбери приоритет кнопкой: высокий, средний или низкий.", priorityKeyboard())
		}
		sess.conv = nil
		return b.finishTaskCreation(chatID, state.text, state.color, priority)
	case stageEditText:
		sess.conv = nil
		_, changed, err := b.store.Edit(state.taskID, text)
		b.notifySaveError(chatID, err)
		if !changed {
			// Abandoned edit: empty text or vanished task, no error shown.
			return b.sendTextWithRemove(chatID, "✏️ Без изменений.")
		}
		if err := b.sendTextWithRemove(chatID, "✏️ Задача обновлена."); err != nil {
			return err
		}
		return b.sendTaskList(chatID)
	default:
		sess.conv = nil
		return b.sendText(chatID, "Диалог сброшен. Попробуй ещё раз через /new.")
	}
}

func (b *Bot) finishTaskCreation(chatID int64, text, color string, priority model.Priority) error {
	task, err := b.store.Add(text, color, priority)
	if err != nil && task.ID == 0 {
		return b.sendTextWithRemove(chatID, fmt.Sprintf("⚠️ Не удалось добавить задачу: %s", html.EscapeString(err.Error())))
	}
	b.notifySaveError(chatID, err)

	log.Printf("[info] task created id=%d priority=%s", task.ID, task.Priority)
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("✅ Задача <b>#%d</b> добавлена.", task.ID)); err != nil {
		return err
	}
	return b.sendTaskList(chatID)
}

func (b *Bot) handleQuickAdd(msg *tgbotapi.Message) error {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		return b.sendText(msg.Chat.ID, "⚠️ Текст задачи пуст. Пример: /add купить хлеб")
	}
	return b.finishTaskCreation(msg.Chat.ID, text, "", model.PriorityMedium)
}

func (b *Bot) handleToggle(msg *tgbotapi.Message) error {
	id, err := parseIDArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /toggle 3")
	}

	task, found, saveErr := b.store.Toggle(id)
	b.notifySaveError(msg.Chat.ID, saveErr)
	if found {
		log.Printf("[info] task toggled id=%d completed=%t", task.ID, task.Completed)
	}
	// Unknown id is silently ignored; just show the list again.
	return b.sendTaskList(msg.Chat.ID)
}

func (b *Bot) handleEdit(msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /edit 3 новый текст")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "ID задачи должен быть числом.")
	}

	if len(args) == 1 {
		sess := b.session(msg.Chat.ID)
		sess.conv = &conversationState{stage: stageEditText, taskID: id}
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Пришли новый текст задачи.", cancelKeyboard())
	}

	_, changed, saveErr := b.store.Edit(id, strings.Join(args[1:], " "))
	b.notifySaveError(msg.Chat.ID, saveErr)
	if changed {
		if err := b.sendText(msg.Chat.ID, "✏️ Задача обновлена."); err != nil {
			return err
		}
	}
	return b.sendTaskList(msg.Chat.ID)
}

func (b *Bot) handleMove(msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, "Формат: /move <id> <позиция>, например /move 3 1")
	}
	id, err1 := strconv.ParseInt(args[0], 10, 64)
	pos, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil || pos < 1 {
		return b.sendText(msg.Chat.ID, "ID и позиция должны быть положительными числами.")
	}

	moved, saveErr := b.store.Move(id, pos-1)
	b.notifySaveError(msg.Chat.ID, saveErr)
	if moved {
		log.Printf("[info] task moved id=%d pos=%d", id, pos)
	}
	return b.sendTaskList(msg.Chat.ID)
}

func (b *Bot) handleDelete(msg *tgbotapi.Message) error {
	id, err := parseIDArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /delete 3")
	}
	return b.askDeleteConfirmation(msg.Chat.ID, id)
}

func (b *Bot) askDeleteConfirmation(chatID, taskID int64) error {
	task, ok := b.store.Get(taskID)
	if !ok {
		// Deleting a missing id is a silent no-op.
		return b.sendTaskList(chatID)
	}

	sess := b.session(chatID)
	sess.confirm = &confirmationRequest{action: actionDeleteTask, taskID: taskID}
	text := fmt.Sprintf("🗑 Удалить задачу «%s» (<b>#%d</b>)?", html.EscapeString(task.Text), task.ID)
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleClearCompleted(msg *tgbotapi.Message) error {
	completed := b.store.CompletedCount()
	if completed == 0 {
		return b.sendText(msg.Chat.ID, "Нет выполненных задач — нечего очищать.")
	}

	sess := b.session(msg.Chat.ID)
	sess.confirm = &confirmationRequest{action: actionClearCompleted}
	return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("🧹 Удалить выполненные задачи (%d)?", completed), confirmKeyboard())
}

func (b *Bot) handleDeleteAll(msg *tgbotapi.Message) error {
	if b.store.Len() == 0 {
		return b.sendText(msg.Chat.ID, "Список и так пуст — удалять нечего.")
	}

	sess := b.session(msg.Chat.ID)
	sess.confirm = &confirmationRequest{action: actionDeleteAll}
	text := fmt.Sprintf("⚠️ Удалить <b>все</b> задачи (%d)? Это действие необратимо.", b.store.Len())
	return b.sendWithReplyMarkup(msg.Chat.ID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(msg *tgbotapi.Message, sess *session) error {
	req := *sess.confirm
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch {
	case isConfirmInput(text):
		sess.confirm = nil
		return b.runConfirmedAction(chatID, req)
	case isCancelInput(text):
		sess.confirm = nil
		return b.sendMenuPlaceholder(chatID)
	default:
		return b.sendWithReplyMarkup(chatID, "Подтверди или отмени действие.", confirmKeyboard())
	}
}

func (b *Bot) runConfirmedAction(chatID int64, req confirmationRequest) error {
	switch req.action {
	case actionDeleteTask:
		task, found, err := b.store.Delete(req.taskID)
		b.notifySaveError(chatID, err)
		if found {
			log.Printf("[info] task deleted id=%d", task.ID)
			if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 Задача «%s» удалена.", html.EscapeString(task.Text))); err != nil {
				return err
			}
		}
		return b.sendTaskList(chatID)
	case actionClearCompleted:
		removed, err := b.store.ClearCompleted()
		b.notifySaveError(chatID, err)
		log.Printf("[info] cleared completed count=%d", removed)
		if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🧹 Удалено выполненных: %d.", removed)); err != nil {
			return err
		}
		return b.sendTaskList(chatID)
	case actionDeleteAll:
		removed, err := b.store.DeleteAll()
		b.notifySaveError(chatID, err)
		log.Printf("[info] deleted all count=%d", removed)
		if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 Удалено задач: %d.", removed)); err != nil {
			return err
		}
		return b.sendTaskList(chatID)
	case actionDeleteAccount:
		return b.finishAccountDeletion(chatID)
	default:
		return b.sendMenuPlaceholder(chatID)
	}
}

func (b *Bot) handleFilter(msg *tgbotapi.Message) error {
	sess := b.session(msg.Chat.ID)
	filter, err := service.ParseFilter(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Фильтры: /filter all, /filter pending, /filter completed")
	}
	sess.filter = filter
	return b.sendTaskList(msg.Chat.ID)
}

func (b *Bot) handleSort(msg *tgbotapi.Message) error {
	sess := b.session(msg.Chat.ID)
	mode, err := service.ParseSortMode(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Сортировки: /sort date, /sort priority, /sort alpha")
	}
	sess.sort = mode
	return b.sendTaskList(msg.Chat.ID)
}

func (b *Bot) handleTheme(msg *tgbotapi.Message) error {
	b.dark = !b.dark
	if err := b.settings.SetDarkTheme(b.dark); err != nil {
		log.Printf("[warn] save theme: %v", err)
	}
	note := "☀️ Светлая тема включена."
	if b.dark {
		note = "🌙 Тёмная тема включена."
	}
	if err := b.sendText(msg.Chat.ID, note); err != nil {
		return err
	}
	return b.sendTaskList(msg.Chat.ID)
}

func (b *Bot) handleStats(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, renderStats(service.Collect(b.store.Tasks())))
}

func (b *Bot) handleReport(msg *tgbotapi.Message) error {
	text, err := b.reports.DailySummary(time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось сформировать отчёт: %s", html.EscapeString(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

// SendReports pushes the scheduled summary to every chat seen since
// startup.
func (b *Bot) SendReports(ctx context.Context) error {
	text, err := b.reports.DailySummary(time.Now())
	if err != nil {
		return err
	}

	b.mu.Lock()
	chatIDs := make([]int64, 0, len(b.sessions))
	for id := range b.sessions {
		chatIDs = append(chatIDs, id)
	}
	b.mu.Unlock()

	for _, chatID := range chatIDs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendText(chatID, text); err != nil {
			log.Printf("send report to %d: %v", chatID, err)
		}
	}
	return nil
}

func (b *Bot) handleRegister(msg *tgbotapi.Message) error {
	email, pass, ok := splitCredentials(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Формат: /register email пароль")
	}

	switch err := b.accounts.Register(email, pass); err {
	case nil:
		// Registration does not log in; that is a separate step.
		return b.sendText(msg.Chat.ID, "✅ Регистрация успешна. Теперь войди: /login email пароль")
	case service.ErrEmptyCredentials:
		return b.sendText(msg.Chat.ID, "⚠️ Укажи и email, и пароль.")
	case service.ErrAccountExists:
		return b.sendText(msg.Chat.ID, "⚠️ Аккаунт с таким email уже существует. Войди через /login.")
	default:
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Ошибка: %s", html.EscapeString(err.Error())))
	}
}

func (b *Bot) handleLogin(msg *tgbotapi.Message) error {
	email, pass, ok := splitCredentials(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Формат: /login email пароль")
	}

	logged, err := b.accounts.Login(email, pass)
	switch err {
	case nil:
	case service.ErrNoAccount:
		return b.sendText(msg.Chat.ID, "⚠️ Аккаунт не найден. Зарегистрируйся: /register email пароль")
	case service.ErrWrongPassword:
		return b.sendText(msg.Chat.ID, "⚠️ Неверный пароль.")
	default:
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Ошибка: %s", html.EscapeString(err.Error())))
	}

	if err := b.switchStore(logged); err != nil {
		return err
	}
	if err := b.sendText(msg.Chat.ID, fmt.Sprintf("👋 Привет, %s!", html.EscapeString(logged))); err != nil {
		return err
	}
	return b.sendTaskList(msg.Chat.ID)
}

func (b *Bot) handleLogout(msg *tgbotapi.Message) error {
	if err := b.accounts.Logout(); err != nil {
		return err
	}
	if err := b.switchStore(""); err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, "Вы вышли из аккаунта. Список гостя доступен через /list.")
}

func (b *Bot) handleAccount(msg *tgbotapi.Message) error {
	owner, signedIn, err := b.accounts.Current()
	if err != nil {
		return err
	}
	if !signedIn {
		return b.sendText(msg.Chat.ID, "Ты не вошёл в аккаунт. /login или /register")
	}
	text := fmt.Sprintf("👤 <b>Аккаунт</b>\nEmail: %s\n\n"+
		"• /changeemail &lt;новый&gt; — сменить email\n"+
		"• /changepassword &lt;пароль&gt; &lt;повтор&gt; — сменить пароль\n"+
		"• /deleteaccount — удалить аккаунт\n"+
		"• /logout — выйти", html.EscapeString(owner))
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleChangeEmail(msg *tgbotapi.Message) error {
	newEmail := strings.TrimSpace(msg.CommandArguments())

	changed, err := b.accounts.ChangeEmail(newEmail)
	switch err {
	case nil:
	case service.ErrNotSignedIn:
		return b.sendText(msg.Chat.ID, "Сначала войди в аккаунт: /login")
	case service.ErrEmptyEmail:
		return b.sendText(msg.Chat.ID, "Укажи новый email: /changeemail новый@адрес")
	case service.ErrEmailTaken:
		return b.sendText(msg.Chat.ID, "⚠️ Этот email уже занят.")
	default:
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Ошибка: %s", html.EscapeString(err.Error())))
	}

	if err := b.switchStore(changed); err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Email обновлён: %s", html.EscapeString(changed)))
}

func (b *Bot) handleChangePassword(msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	pass, repeat := "", ""
	if len(args) > 0 {
		pass = args[0]
	}
	if len(args) > 1 {
		repeat = args[1]
	}

	switch err := b.accounts.ChangePassword(pass, repeat); err {
	case nil:
		return b.sendText(msg.Chat.ID, "✅ Пароль обновлён.")
	case service.ErrNotSignedIn:
		return b.sendText(msg.Chat.ID, "Сначала войди в аккаунт: /login")
	case service.ErrEmptyPassword:
		return b.sendText(msg.Chat.ID, "Укажи новый пароль: /changepassword пароль повтор")
	case service.ErrPasswordMismatch:
		return b.sendText(msg.Chat.ID, "⚠️ Пароли не совпадают.")
	default:
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Ошибка: %s", html.EscapeString(err.Error())))
	}
}

func (b *Bot) handleDeleteAccount(msg *tgbotapi.Message) error {
	if _, signedIn, err := b.accounts.Current(); err != nil {
		return err
	} else if !signedIn {
		return b.sendText(msg.Chat.ID, "Сначала войди в аккаунт: /login")
	}

	sess := b.session(msg.Chat.ID)
	sess.confirm = &confirmationRequest{action: actionDeleteAccount}
	return b.sendWithReplyMarkup(msg.Chat.ID, "⚠️ Удалить аккаунт и все его задачи? Это действие необратимо.", confirmKeyboard())
}

func (b *Bot) finishAccountDeletion(chatID int64) error {
	if err := b.accounts.DeleteAccount(); err != nil {
		return b.sendTextWithRemove(chatID, fmt.Sprintf("Ошибка: %s", html.EscapeString(err.Error())))
	}
	if err := b.switchStore(""); err != nil {
		return err
	}
	// Back to the registration entry point, as before any account existed.
	return b.sendTextWithRemove(chatID, "Аккаунт удалён. Завести новый: /register email пароль")
}

// switchStore reloads the active task store for a new owner (empty for
// the guest list).
func (b *Bot) switchStore(owner string) error {
	store, err := service.NewTaskStore(b.lists, owner)
	if err != nil {
		return err
	}
	b.store = store
	return nil
}

// sendTaskList is the single render path: every successful mutation
// ends in a call here, so the display always reflects the store.
func (b *Bot) sendTaskList(chatID int64) error {
	sess := b.session(chatID)
	tasks := b.store.Tasks()
	projected := b.proj.Project(tasks, sess.filter, sess.sort)
	stats := service.Collect(tasks)

	text, keyboard := renderList(projected, stats, sess.filter, sess.sort, b.dark)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if len(keyboard.InlineKeyboard) > 0 {
		msg.ReplyMarkup = keyboard
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(data, cbTogglePrefix):
		id, err := parseCallbackID(data, cbTogglePrefix)
		if err != nil {
			return nil
		}
		task, found, saveErr := b.store.Toggle(id)
		b.notifySaveError(chatID, saveErr)
		if found {
			log.Printf("[info] task toggled id=%d completed=%t", task.ID, task.Completed)
		}
		return b.sendTaskList(chatID)
	case strings.HasPrefix(data, cbDeletePrefix):
		id, err := parseCallbackID(data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		return b.askDeleteConfirmation(chatID, id)
	default:
		return nil
	}
}

func (b *Bot) handleMenuAlias(msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(msg.Text)
	switch text {
	case menuLabelNewTask:
		return true, b.startNewTaskConversation(msg)
	case menuLabelTasks:
		return true, b.sendTaskList(msg.Chat.ID)
	case menuLabelStats:
		return true, b.handleStats(msg)
	case menuLabelHelp:
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

// notifySaveError surfaces a failed persist as a recoverable warning:
// the change is kept in memory and rewritten on the next mutation.
func (b *Bot) notifySaveError(chatID int64, err error) {
	if err == nil {
		return
	}
	log.Printf("[warn] persist: %v", err)
	if sendErr := b.sendText(chatID, "⚠️ Не удалось сохранить изменения. Они остались в памяти и запишутся при следующем действии."); sendErr != nil {
		log.Printf("notify save error: %v", sendErr)
	}
}

func (b *Bot) session(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	sess, ok := b.sessions[chatID]
	if !ok {
		sess = &session{filter: service.FilterAll, sort: service.SortDate}
		b.sessions[chatID] = sess
	}
	return sess
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	return b.sendText(chatID, "🔹 Главное меню")
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelStats),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func colorKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(colorOptions[0].Label),
			tgbotapi.NewKeyboardButton(colorOptions[1].Label),
			tgbotapi.NewKeyboardButton(colorOptions[2].Label),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(colorOptions[3].Label),
			tgbotapi.NewKeyboardButton(colorOptions[4].Label),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(priorityOptions[0].Label),
			tgbotapi.NewKeyboardButton(priorityOptions[1].Label),
			tgbotapi.NewKeyboardButton(priorityOptions[2].Label),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func colorFromInput(text string) (string, bool) {
	for _, opt := range colorOptions {
		if strings.EqualFold(text, opt.Label) {
			return opt.Hex, true
		}
	}
	// Free-form hex is accepted too.
	if len(text) == 7 && strings.HasPrefix(text, "#") {
		return strings.ToUpper(text), true
	}
	return "", false
}

func priorityFromInput(text string) (model.Priority, bool) {
	for _, opt := range priorityOptions {
		if strings.EqualFold(text, opt.Label) {
			return opt.Priority, true
		}
	}
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "высокий":
		return model.PriorityHigh, true
	case "средний":
		return model.PriorityMedium, true
	case "низкий":
		return model.PriorityLow, true
	}
	if p, err := model.ParsePriority(text); err == nil {
		return p, true
	}
	return "", false
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "пропустить" || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "подтвердить" || value == "да"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "отмена"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "отменить ввод"
}

func splitCredentials(args string) (string, string, bool) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

func parseIDArg(args string) (int64, error) {
	raw := strings.TrimSpace(args)
	if raw == "" {
		return 0, fmt.Errorf("empty id")
	}
	return strconv.ParseInt(raw, 10, 64)
}

func parseCallbackID(data, prefix string) (int64, error) {
	return strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
}
