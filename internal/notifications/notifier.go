package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"

	"inkwell/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const roomChannelPrefix = "notifications:room:"

// Notifier publishes room events into Redis so every API instance can
// deliver them to its own connections.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishRoom sends an encoded event to a room's channel.
func (n *Notifier) PublishRoom(ctx context.Context, room, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, RoomChannel(room), payload).Err()
}

// StartPatternSubscriber subscribes to every room channel and calls onMessage
// with the room name and payload until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(room string, payload string),
) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, roomChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				room, found := strings.CutPrefix(msg.Channel, roomChannelPrefix)
				if !found {
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in room subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(room, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// RoomChannel derives the Redis channel name for a room.
func RoomChannel(room string) string {
	return roomChannelPrefix + room
}
