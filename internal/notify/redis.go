package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/project-management-api/internal/models"
)

// RedisPublisher publishes notifications to a redis pub/sub channel
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

type event struct {
	UserID       uint64               `json:"user_id"`
	Notification *models.Notification `json:"notification"`
}

// Publish sends the notification on "<channel>:<userID>" so subscribers can listen per user
func (p *RedisPublisher) Publish(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(event{UserID: n.UserID, Notification: n})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	channel := fmt.Sprintf("%s:%d", p.channel, n.UserID)
	return p.rdb.Publish(ctx, channel, payload).Err()
}
