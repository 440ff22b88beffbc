// Package notify implements the user-facing notification center: a bounded
// ring of recent notifications, the service-side stand-in for the UI's
// toast stream.
package notify

import (
	"sync"

	"go.uber.org/zap"

	"satotrack/internal/app/port"
	"satotrack/internal/domain/entity"
)

// Compile-time check: *Center must satisfy port.Notifier.
var _ port.Notifier = (*Center)(nil)

// Center stores the most recent notifications and logs each one.
type Center struct {
	logger *zap.Logger
	limit  int

	mu      sync.RWMutex
	entries []entity.Notification
}

// NewCenter creates a notification center keeping at most limit entries.
func NewCenter(logger *zap.Logger, limit int) *Center {
	if limit <= 0 {
		limit = 100
	}
	return &Center{logger: logger.Named("notifications"), limit: limit}
}

// Notify records the notification, evicting the oldest entry when full.
func (c *Center) Notify(n entity.Notification) {
	c.mu.Lock()
	c.entries = append(c.entries, n)
	if len(c.entries) > c.limit {
		c.entries = c.entries[len(c.entries)-c.limit:]
	}
	c.mu.Unlock()

	c.logger.Info("Notification",
		zap.String("level", string(n.Level)),
		zap.String("title", n.Title),
		zap.String("message", n.Message))
}

// Recent returns the stored notifications, newest first.
func (c *Center) Recent() []entity.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]entity.Notification, len(c.entries))
	for i, n := range c.entries {
		out[len(c.entries)-1-i] = n
	}
	return out
}
