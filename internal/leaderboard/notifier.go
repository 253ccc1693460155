package leaderboard

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

const channel = "quizdeck:leaderboard"

// HubNotifier pushes refresh signals straight into the local hub. Used when
// the service runs as a single instance.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) QuizSubmitted(_ context.Context, quizID int64) {
	n.hub.Broadcast(RefreshMessage(quizID))
}

// RedisNotifier publishes refresh signals through redis pub/sub so every
// instance's hub sees every finalize. Publish failures are logged and
// swallowed; notify is best-effort and never fails the submit.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) QuizSubmitted(ctx context.Context, quizID int64) {
	if err := n.client.Publish(ctx, channel, RefreshMessage(quizID)).Err(); err != nil {
		log.Printf("leaderboard notify publish failed: %v", err)
	}
}

// Relay subscribes to the notify channel and feeds messages into the hub
// until ctx is canceled. Run it in its own goroutine per instance.
func Relay(ctx context.Context, client *redis.Client, hub *Hub) error {
	pubsub := client.Subscribe(ctx, channel)
	defer pubsub.Close()
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			hub.Broadcast(msg.Payload)
		}
	}
}
