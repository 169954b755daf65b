package tgbot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"assistantbot/feed"
	"assistantbot/reminder"
	"assistantbot/store"
	"assistantbot/weather"
)

var noon = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu   sync.Mutex
	sent []tg.MessageConfig
	err  error
}

func (f *fakeAPI) Request(c tg.Chattable) (*tg.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if m, ok := c.(tg.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &tg.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.sent, "no message was sent")
	return f.sent[len(f.sent)-1].Text
}

func newTestBot(api *fakeAPI) *TBot {
	b := New(api,
		store.NewList(), store.NewList(),
		store.NewFeeds("https://default.example/rss.xml"),
		weather.NewClient(""), feed.NewClient(),
		zap.NewNop().Sugar())

	clk := clock.NewFake()
	clk.Set(noon)
	b.clk = clk

	b.Reminders = reminder.NewManager(b.SendReminder, zap.NewNop().Sugar())
	return b
}

func commandMessage(usr, cht int64, text string) *tg.Message {
	cmd := strings.Fields(text)[0]
	return &tg.Message{
		MessageID: 7,
		From:      &tg.User{ID: usr},
		Chat:      &tg.Chat{ID: cht},
		Text:      text,
		Entities:  []tg.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
}

func handle(b *TBot, usr, cht int64, text string) {
	b.HandleCommand(context.Background(), commandMessage(usr, cht, text))
}

func TestStartAndHelp(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	handle(b, 1, 1, "/start")
	assert.Equal(t, txtWelcomeMessage, api.lastText(t))

	handle(b, 1, 1, "/help")
	assert.Equal(t, txtHelpMessage, api.lastText(t))
}

func TestNoteFlow(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	handle(b, 1, 1, "/notes")
	assert.Equal(t, txtNoNotes, api.lastText(t))

	handle(b, 1, 1, "/note buy bread")
	assert.Equal(t, txtNoteAdded, api.lastText(t))

	handle(b, 1, 1, "/note call mom")
	handle(b, 1, 1, "/notes")
	assert.Equal(t, txtNotesHeader+"1. buy bread\n2. call mom", api.lastText(t))

	// notes are per user
	handle(b, 2, 2, "/notes")
	assert.Equal(t, txtNoNotes, api.lastText(t))
}

func TestNoteWithoutTextReprompts(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	handle(b, 1, 1, "/note")
	assert.Equal(t, txtNoteUsage, api.lastText(t))
	assert.Empty(t, b.Notes.Items(1))
}

func TestTaskFlow(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	handle(b, 1, 1, "/task 12.05.25 14:00 dentist appointment")
	assert.Equal(t, txtTaskAdded, api.lastText(t))

	handle(b, 1, 1, "/tasks")
	assert.Equal(t, txtTasksHeader+"1. 12.05.25 14:00 — dentist appointment", api.lastText(t))

	handle(b, 1, 1, "/clear_tasks")
	assert.Equal(t, txtTasksCleared, api.lastText(t))

	handle(b, 1, 1, "/tasks")
	assert.Equal(t, txtNoTasks, api.lastText(t))
}

func TestTaskWithTooFewArgumentsReprompts(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	for _, txt := range []string{"/task", "/task 12.05.25", "/task 12.05.25 14:00"} {
		handle(b, 1, 1, txt)
		assert.Equal(t, txtTaskUsage, api.lastText(t))
	}
	assert.Empty(t, b.Tasks.Items(1))
}

func TestRemindAcknowledgesAbsoluteTime(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	handle(b, 1, 1, "/remind 25 drink water")
	assert.Equal(t, fmt.Sprintf(fmtReminderSet, "10:25"), api.lastText(t))
	assert.Equal(t, 1, b.Reminders.Pending())

	handle(b, 1, 1, "/remind 09:00 morning run")
	assert.Equal(t, fmt.Sprintf(fmtReminderSet, "09:00"), api.lastText(t))
	assert.Equal(t, 2, b.Reminders.Pending())
}

func TestRemindRejectsMalformedTime(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	handle(b, 1, 1, "/remind tomorrow water plants")
	assert.Equal(t, txtBadRemindTime, api.lastText(t))
	assert.Equal(t, 0, b.Reminders.Pending())

	handle(b, 1, 1, "/remind 25")
	assert.Equal(t, txtRemindUsage, api.lastText(t))
	assert.Equal(t, 0, b.Reminders.Pending())
}

func TestSendReminderPrefixesText(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	require.NoError(t, b.SendReminder(42, "drink water"))
	m := api.sent[len(api.sent)-1]
	assert.Equal(t, int64(42), m.ChatID)
	assert.Equal(t, "⏰ drink water", m.Text)
}

func TestSendMessageReportsTransportError(t *testing.T) {
	api := &fakeAPI{err: errors.New("telegram is down")}
	b := newTestBot(api)

	assert.Error(t, b.SendMessage(1, "hello", -1))
}

func TestWeatherCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("London: ⛅️ +10°C\n"))
	}))
	defer srv.Close()

	api := &fakeAPI{}
	b := newTestBot(api)
	b.Weather = weather.NewClient(srv.URL)

	handle(b, 1, 1, "/weather London")
	assert.Equal(t, "☀️ London: ⛅️ +10°C", api.lastText(t))

	handle(b, 1, 1, "/weather")
	assert.Equal(t, txtWeatherUsage, api.lastText(t))
}

func TestWeatherFailureYieldsFixedMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	api := &fakeAPI{}
	b := newTestBot(api)
	b.Weather = weather.NewClient(srv.URL)

	handle(b, 1, 1, "/weather Atlantis")
	assert.Equal(t, txtWeatherFailed, api.lastText(t))
}

func rssBody(label string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>%s</title>`+
		`<item><title>%s headline</title><link>https://news.example/%s</link></item>`+
		`</channel></rss>`, label, label, label)
}

func TestSetFeedIsPerUser(t *testing.T) {
	defaultSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody("default")))
	}))
	defer defaultSrv.Close()
	customSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody("custom")))
	}))
	defer customSrv.Close()

	api := &fakeAPI{}
	b := newTestBot(api)
	b.Feeds = store.NewFeeds(defaultSrv.URL)

	handle(b, 1, 1, "/setfeed "+customSrv.URL)
	assert.Equal(t, txtFeedUpdated, api.lastText(t))

	handle(b, 1, 1, "/news")
	assert.Contains(t, api.lastText(t), "custom headline")

	// another user still gets the default feed
	handle(b, 2, 2, "/news")
	assert.Contains(t, api.lastText(t), "default headline")
}

func TestNewsFailureYieldsFixedMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	api := &fakeAPI{}
	b := newTestBot(api)
	b.Feeds = store.NewFeeds(srv.URL)

	handle(b, 1, 1, "/news")
	assert.Equal(t, txtNewsFailed, api.lastText(t))
}

func TestTimeCommand(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	handle(b, 1, 1, "/time")
	assert.Equal(t, fmt.Sprintf(fmtTimeNow, "10:00:00, 15.03.2024"), api.lastText(t))
}

func TestUnknownCommand(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	handle(b, 1, 1, "/dance")
	assert.Equal(t, txtUnknownCommand, api.lastText(t))
}

func TestEchoRepeatsTextVerbatim(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	msg := &tg.Message{
		MessageID: 3,
		From:      &tg.User{ID: 1},
		Chat:      &tg.Chat{ID: 1},
		Text:      "hello there",
	}
	b.HandleMessage(context.Background(), msg)
	assert.Equal(t, "hello there", api.lastText(t))
}
