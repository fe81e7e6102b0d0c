package services

import (
	"sync"
	"time"
)

// NotificationLevel is the severity of a user-facing notification
type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelInfo    NotificationLevel = "info"
	LevelError   NotificationLevel = "error"
)

// Notification is a transient, user-facing message (a toast)
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	At      time.Time         `json:"at"`
}

// Notifier is the side channel operations use to tell the user what happened
type Notifier interface {
	Notify(level NotificationLevel, title, message string)
}

// NotificationBuffer collects notifications until the transport drains them
type NotificationBuffer struct {
	mu    sync.Mutex
	items []Notification
	max   int
}

// NewNotificationBuffer creates a buffer keeping at most max pending notifications
func NewNotificationBuffer(max int) *NotificationBuffer {
	if max <= 0 {
		max = 20
	}
	return &NotificationBuffer{max: max}
}

// Notify appends a notification, dropping the oldest when full
func (b *NotificationBuffer) Notify(level NotificationLevel, title, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, Notification{Level: level, Title: title, Message: message, At: time.Now()})
	if len(b.items) > b.max {
		b.items = b.items[len(b.items)-b.max:]
	}
}

// Drain returns and clears pending notifications
func (b *NotificationBuffer) Drain() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.items
	b.items = nil
	return out
}

type nopNotifier struct{}

func (nopNotifier) Notify(NotificationLevel, string, string) {}

// NopNotifier discards notifications (background jobs)
var NopNotifier Notifier = nopNotifier{}
