package activity

import (
	"sync"

	"github.com/minidrive/minidrive/internal/metrics"
)

// Broadcaster fans appended lines out to live subscribers, letting a shell or
// UI show activity as it happens. It implements Log.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan string]struct{}
}

// NewBroadcaster creates a new activity broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan string]struct{}),
	}
}

// Subscribe adds a new subscriber and returns its line channel.
// The caller must call Unsubscribe when done.
func (b *Broadcaster) Subscribe() chan string {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	metrics.SetActivitySubscribers(int64(b.Count()))
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan string) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	close(ch)
	b.mu.Unlock()
	metrics.SetActivitySubscribers(int64(b.Count()))
}

// Append sends the line to all subscribers. Non-blocking: lines are dropped
// for slow consumers rather than stalling the operation that logged them.
func (b *Broadcaster) Append(line string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- line:
		default:
			// Drop line for slow consumer
		}
	}
}

// Count returns the current number of subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
