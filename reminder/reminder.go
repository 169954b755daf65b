// Package reminder schedules one-shot delayed message deliveries. A
// reminder lives only in memory; a restart drops everything pending.
package reminder

import (
	"container/heap"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const reminderTick = 1 * time.Second

// ErrBadTime is returned for remind times that are neither a number of
// minutes nor a valid HH:MM.
var ErrBadTime = errors.New("unknown remind time format")

// SendFunc delivers a reminder text to a chat.
type SendFunc func(chatID int64, text string) error

type Reminder struct {
	id     int64
	at     time.Time
	chatID int64
	text   string
}

// Manager keeps pending reminders in a queue ordered by due time and
// fires each of them exactly once. A failed delivery is logged and
// dropped; there is no retry and no cancellation.
type Manager struct {
	mu     sync.Mutex
	queue  *reminderQueue
	clk    clock.Clock
	logger *zap.SugaredLogger
	send   SendFunc
	nextID int64
}

func NewManager(send SendFunc, l *zap.SugaredLogger) *Manager {
	return &Manager{
		queue:  newReminderQueue(),
		clk:    clock.New(),
		logger: l,
		send:   send,
	}
}

// Run starts the tick loop in its own goroutine.
func (m *Manager) Run() {
	ch := time.NewTicker(reminderTick).C
	go m.remind(ch)
}

// Schedule queues a reminder to be delivered at the given time. Many
// reminders may be pending for the same chat.
func (m *Manager) Schedule(chatID int64, at time.Time, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	heap.Push(m.queue, &Reminder{
		id:     m.nextID,
		at:     at,
		chatID: chatID,
		text:   text,
	})
}

// Pending returns the number of reminders that haven't fired yet.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.queue.Len()
}

func (m *Manager) remind(ch <-chan time.Time) {
	for range ch {
		m.fire(m.clk.Now())
	}
}

// fire pops every due reminder and delivers each in its own goroutine.
func (m *Manager) fire(now time.Time) {
	m.mu.Lock()
	var due []*Reminder
	for {
		r, ok := m.queue.Peek().(*Reminder)
		if !ok || now.Before(r.at) {
			break
		}

		heap.Pop(m.queue)
		due = append(due, r)
	}
	m.mu.Unlock()

	for _, r := range due {
		go m.deliver(r)
	}
}

// deliver sends the reminder. A send failure is a best-effort drop: one
// log line, no retry, nothing surfaced to the user.
func (m *Manager) deliver(r *Reminder) {
	if err := m.send(r.chatID, r.text); err != nil {
		m.logger.Errorw("reminder delivery failed, dropping it", "chat", r.chatID, "err", err)
	}
}

// ParseWhen resolves a remind time given either as a bare number of
// minutes from now or as an HH:MM wall-clock target. A wall-clock time
// that has already passed today rolls forward to tomorrow, so the
// result is never in the past.
func ParseWhen(now time.Time, txt string) (time.Time, error) {
	txt = strings.TrimSpace(txt)

	if mins, err := strconv.Atoi(txt); err == nil {
		if mins < 0 {
			return time.Time{}, ErrBadTime
		}
		return now.Add(time.Duration(mins) * time.Minute), nil
	}

	parts := strings.Split(txt, ":")
	if len(parts) != 2 {
		return time.Time{}, ErrBadTime
	}

	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 {
		return time.Time{}, ErrBadTime
	}

	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return time.Time{}, ErrBadTime
	}

	at := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, 0, 0, now.Location())
	if !at.After(now) {
		at = at.Add(24 * time.Hour)
	}

	return at, nil
}
