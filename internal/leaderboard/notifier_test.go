package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestHubNotifier(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	NewHubNotifier(hub).QuizSubmitted(context.Background(), 3)
	if got := recv(t, ch); got != RefreshMessage(3) {
		t.Fatalf("got %q", got)
	}
}

func TestRedisNotifierReachesHubThroughRelay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	relayDone := make(chan error, 1)
	go func() {
		relayDone <- Relay(ctx, client, hub)
	}()

	// Give the relay a moment to establish its subscription.
	deadline := time.Now().Add(2 * time.Second)
	notifier := NewRedisNotifier(client)
	for {
		notifier.QuizSubmitted(context.Background(), 9)
		select {
		case msg := <-ch:
			if msg != RefreshMessage(9) {
				t.Fatalf("got %q", msg)
			}
			stop()
			select {
			case <-relayDone:
			case <-time.After(time.Second):
				t.Fatal("relay did not stop on cancel")
			}
			return
		case <-time.After(50 * time.Millisecond):
			if time.Now().After(deadline) {
				t.Fatal("relay never delivered the refresh signal")
			}
		}
	}
}
