// Package notify содержит уведомления, которые консоль показывает пользователю.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level описывает важность уведомления.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification описывает одно сообщение пользователю.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

const defaultFeedCapacity = 50

// Feed накапливает уведомления сеанса до тех пор, пока клиент их не заберёт.
// При переполнении отбрасываются самые старые.
type Feed struct {
	mu       sync.Mutex
	items    []Notification
	capacity int
	logger   *zap.Logger
	now      func() time.Time
}

// NewFeed создаёт ленту уведомлений. Каждое уведомление также пишется в журнал.
func NewFeed(logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		capacity: defaultFeedCapacity,
		logger:   logger,
		now:      time.Now,
	}
}

// Notify добавляет уведомление в ленту.
func (f *Feed) Notify(level Level, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.items) == f.capacity {
		f.items = append(f.items[:0], f.items[1:]...)
	}
	f.items = append(f.items, Notification{Level: level, Message: message, At: f.now()})

	if level == LevelError {
		f.logger.Warn("user notified of failure", zap.String("message", message))
	} else {
		f.logger.Debug("user notified", zap.String("level", string(level)), zap.String("message", message))
	}
}

// Drain возвращает накопленные уведомления и очищает ленту.
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	res := f.items
	f.items = nil
	if res == nil {
		res = []Notification{}
	}
	return res
}

// Last возвращает последнее уведомление, не удаляя его.
func (f *Feed) Last() (Notification, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.items) == 0 {
		return Notification{}, false
	}
	return f.items[len(f.items)-1], true
}
