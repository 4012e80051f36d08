// Package notify delivers fire-and-forget operator notifications.
// Delivery failures are logged and swallowed — a notification must never
// fail a cycle.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel is the pub/sub channel notifications are published on.
const Channel = "agent:notifications"

// Notifier is the notification sink the agent depends on.
type Notifier interface {
	Notify(ctx context.Context, title, message, category string)
}

// event is the published JSON shape.
type event struct {
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Category string    `json:"category"`
	At       time.Time `json:"at"`
}

// RedisNotifier publishes notifications to a Redis channel for dashboard
// or desktop forwarders to consume.
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier returns a Notifier over rdb.
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

// Notify implements Notifier. Non-fatal: publish failures are logged only.
func (n *RedisNotifier) Notify(ctx context.Context, title, message, category string) {
	payload, _ := json.Marshal(event{
		Title:    title,
		Message:  message,
		Category: category,
		At:       time.Now().UTC(),
	})
	if err := n.rdb.Publish(ctx, Channel, payload).Err(); err != nil {
		slog.Warn("notification publish failed", "category", category, "err", err)
	}
}

// Nop is a Notifier that discards everything. Used in tests and when no
// sink is configured.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, string, string, string) {}
