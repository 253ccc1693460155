package leaderboard

import (
	"fmt"
	"sync"
)

// Hub is the in-memory registry of live leaderboard observers. The mutex
// makes connect/disconnect safe against a concurrent broadcast; a slow
// observer has its stale message dropped rather than blocking the fan-out.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan string]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: map[chan string]struct{}{}}
}

// Subscribe registers an observer. The caller must invoke the returned
// cancel function to avoid leaks.
func (h *Hub) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 8)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Broadcast delivers msg at-most-once, best-effort, to each observer. A full
// buffer means the observer is behind; the oldest pending message is dropped
// so the refresh signal still lands.
func (h *Hub) Broadcast(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- msg:
			default:
			}
		}
	}
}

// Len reports the current observer count.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// RefreshMessage is the advisory push sent after a finalize: a signal to
// re-poll, not a payload.
func RefreshMessage(quizID int64) string {
	return fmt.Sprintf("New submission for quiz %d, please refresh leaderboard", quizID)
}
