// Package tgbot routes Telegram commands to the assistant's handlers
// and formats the replies.
package tgbot

import (
	"context"
	"fmt"
	"strings"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"assistantbot/feed"
	"assistantbot/reminder"
	"assistantbot/store"
	"assistantbot/weather"
)

const (
	txtWelcomeMessage = `👋 Hi! I'm your personal assistant 🌤

I can:
🗓 Plan tasks
🌦 Show the weather
📰 Send you news
📝 Keep notes

Send /help to learn more.`
	txtHelpMessage = `📖 Commands:
/start — start the bot
/help — this help
/weather <city> — current weather in the city
/note <text> — add a note
/notes — list your notes
/task <DD.MM.YY> <HH:MM> <text> — add a task
/tasks — list your tasks
/clear_tasks — remove all your tasks
/remind <minutes|HH:MM> <text> — one-shot reminder
/setfeed <url> — set your news source
/news — latest news
/time — current time`
	txtUnknownCommand = "I don't know this command. Use /help to list commands I know"
	txtWeatherUsage   = "🌆 Tell me the city: /weather London"
	txtWeatherFailed  = "❌ Couldn't fetch the weather. Try again later."
	txtNoteUsage      = "✍️ Write the note after the command: /note buy bread"
	txtNoteAdded      = "✅ Note added!"
	txtNoNotes        = "📭 You don't have any notes yet."
	txtNotesHeader    = "📝 Your notes:\n"
	txtTaskUsage      = "🗓 I expect a task as /task <DD.MM.YY> <HH:MM> <text>"
	txtTaskAdded      = "✅ Task added!"
	txtNoTasks        = "📭 You don't have any tasks yet."
	txtTasksHeader    = "🗓 Your tasks:\n"
	txtTasksCleared   = "🗑 All tasks removed."
	txtRemindUsage    = "⏰ I expect a reminder as /remind <minutes|HH:MM> <text>"
	txtBadRemindTime  = "⏰ I expect the time as minutes (e.g. 25) or HH:MM. Please repeat the command with a correct value"
	txtNewsFailed     = "⚠️ News is temporarily unavailable. Try again later."
	txtFeedUsage      = "📡 Send the feed address: /setfeed https://example.com/rss.xml"
	txtFeedUpdated    = "✅ News source updated!"

	fmtReminderSet = "⏰ Reminder set for %s"
	fmtTimeNow     = "🕓 Current time: %s"

	timeNowLayout  = "15:04:05, 02.01.2006"
	remindAtLayout = "15:04"
)

// botAPI is the slice of tg.BotAPI the handlers need to send replies.
type botAPI interface {
	Request(c tg.Chattable) (*tg.APIResponse, error)
}

// TBot glues the stores, the scheduler and the fetch clients to the
// Telegram transport.
type TBot struct {
	Bot       botAPI
	Logger    *zap.SugaredLogger
	Notes     *store.List
	Tasks     *store.List
	Feeds     *store.Feeds
	Reminders *reminder.Manager
	Weather   *weather.Client
	News      *feed.Client

	clk clock.Clock
}

func New(api botAPI, notes, tasks *store.List, feeds *store.Feeds,
	w *weather.Client, n *feed.Client, l *zap.SugaredLogger) *TBot {

	return &TBot{
		Bot:     api,
		Logger:  l,
		Notes:   notes,
		Tasks:   tasks,
		Feeds:   feeds,
		Weather: w,
		News:    n,
		clk:     clock.New(),
	}
}

// HandleCommand dispatches a single /command message. Every failure is
// converted to a fixed reply here; nothing propagates.
func (b *TBot) HandleCommand(ctx context.Context, msg *tg.Message) {
	usr := msg.From.ID
	cht := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.SendMessage(cht, txtWelcomeMessage, -1)

	case "help":
		b.SendMessage(cht, txtHelpMessage, -1)

	case "weather":
		b.sendWeather(ctx, cht, msg.MessageID, args)

	case "note":
		if b.Notes.Append(usr, args) != nil {
			b.SendMessage(cht, txtNoteUsage, msg.MessageID)
			return
		}
		b.SendMessage(cht, txtNoteAdded, msg.MessageID)

	case "notes":
		b.sendList(cht, b.Notes.Items(usr), txtNotesHeader, txtNoNotes)

	case "task":
		b.addTask(usr, cht, msg.MessageID, args)

	case "tasks":
		b.sendList(cht, b.Tasks.Items(usr), txtTasksHeader, txtNoTasks)

	case "clear_tasks":
		b.Tasks.Clear(usr)
		b.SendMessage(cht, txtTasksCleared, msg.MessageID)

	case "remind":
		b.scheduleReminder(cht, msg.MessageID, args)

	case "setfeed":
		if args == "" {
			b.SendMessage(cht, txtFeedUsage, msg.MessageID)
			return
		}
		b.Feeds.Set(usr, args)
		b.SendMessage(cht, txtFeedUpdated, msg.MessageID)

	case "news":
		b.sendNews(ctx, usr, cht, msg.MessageID)

	case "time":
		now := b.clk.Now()
		b.SendMessage(cht, fmt.Sprintf(fmtTimeNow, now.Format(timeNowLayout)), -1)

	default:
		b.SendMessage(cht, txtUnknownCommand, msg.MessageID)
	}
}

// HandleMessage echoes non-command text back verbatim.
func (b *TBot) HandleMessage(ctx context.Context, msg *tg.Message) {
	if msg.Text == "" {
		return
	}

	b.SendMessage(msg.Chat.ID, msg.Text, msg.MessageID)
}

func (b *TBot) sendWeather(ctx context.Context, cht int64, replyID int, city string) {
	if city == "" {
		b.SendMessage(cht, txtWeatherUsage, replyID)
		return
	}

	forecast, err := b.Weather.Fetch(ctx, city)
	if err != nil {
		b.Logger.Errorw("failed fetching weather", "city", city, "err", err)
		b.SendMessage(cht, txtWeatherFailed, replyID)
		return
	}

	b.SendMessage(cht, "☀️ "+forecast, replyID)
}

func (b *TBot) sendNews(ctx context.Context, usr int64, cht int64, replyID int) {
	url := b.Feeds.Get(usr)

	digest, err := b.News.Digest(ctx, url)
	if err != nil {
		b.Logger.Errorw("failed fetching news", "url", url, "err", err)
		b.SendMessage(cht, txtNewsFailed, replyID)
		return
	}

	b.SendMessage(cht, digest, -1)
}

func (b *TBot) sendList(cht int64, items []string, header, emptyText string) {
	if len(items) == 0 {
		b.SendMessage(cht, emptyText, -1)
		return
	}

	b.SendMessage(cht, header+store.Enumerate(items), -1)
}

// addTask composes a "date time — text" entry. The date isn't checked
// against a calendar, matching the loose format users actually send.
func (b *TBot) addTask(usr int64, cht int64, replyID int, args string) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		b.SendMessage(cht, txtTaskUsage, replyID)
		return
	}

	entry := fields[0] + " " + fields[1] + " — " + strings.Join(fields[2:], " ")
	if err := b.Tasks.Append(usr, entry); err != nil {
		b.SendMessage(cht, txtTaskUsage, replyID)
		return
	}

	b.SendMessage(cht, txtTaskAdded, replyID)
}

func (b *TBot) scheduleReminder(cht int64, replyID int, args string) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		b.SendMessage(cht, txtRemindUsage, replyID)
		return
	}

	at, err := reminder.ParseWhen(b.clk.Now(), fields[0])
	if err != nil {
		b.SendMessage(cht, txtBadRemindTime, replyID)
		return
	}

	// acknowledge with the resolved absolute time before scheduling
	b.SendMessage(cht, fmt.Sprintf(fmtReminderSet, at.Format(remindAtLayout)), replyID)
	b.Reminders.Schedule(cht, at, strings.Join(fields[1:], " "))
}

// SendReminder delivers a due reminder. The reminder manager invokes it
// as its SendFunc.
func (b *TBot) SendReminder(cht int64, text string) error {
	return b.SendMessage(cht, "⏰ "+text, -1)
}

// SendMessage sends a single message. There is no retry; a failed send
// is logged and reported to the caller.
func (b *TBot) SendMessage(cht int64, txt string, replyTo int) error {
	m := tg.NewMessage(cht, txt)
	if replyTo >= 0 {
		m.ReplyToMessageID = replyTo
	}
	m.DisableWebPagePreview = true

	if _, err := b.Bot.Request(m); err != nil {
		b.Logger.Errorw("failed sending message", "err", err)
		return err
	}
	return nil
}
