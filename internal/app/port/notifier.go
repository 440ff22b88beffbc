package port

import "satotrack/internal/domain/entity"

// Notifier receives user-facing notifications. Every mutating failure and
// every realtime balance or transaction change surfaces through it.
type Notifier interface {
	Notify(n entity.Notification)
}
