package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes notifications on the wizard's channel; the websocket
// handler subscribed to that channel forwards them to the browser.
type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func (n *RedisNotifier) Notify(ctx context.Context, wizardID string, note Notification) error {
	b, err := json.Marshal(note)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, Channel(wizardID), b).Err()
}
