// Package notify holds per-session toast messages until the next page render drains them.
package notify

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Toast is a user-facing notification
type Toast struct {
	Level   Level
	Message string
}

// Notifier delivers a toast to the browser owning sessionID
type Notifier interface {
	Push(sessionID string, toast Toast)
}

const maxQueued = 8

// Store is an in-memory Notifier. Queues of idle sessions expire with the TTL.
type Store struct {
	mu     sync.Mutex
	queues *expirable.LRU[string, []Toast]
}

var _ Notifier = (*Store)(nil)

func NewStore(size int, ttl time.Duration) *Store {
	return &Store{queues: expirable.NewLRU[string, []Toast](size, nil, ttl)}
}

// Push appends a toast, dropping the oldest when the queue is full
func (s *Store) Push(sessionID string, toast Toast) {
	if sessionID == "" || toast.Message == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, _ := s.queues.Get(sessionID)
	queue = append(queue, toast)
	if len(queue) > maxQueued {
		queue = queue[len(queue)-maxQueued:]
	}
	s.queues.Add(sessionID, queue)
}

// Drain returns and clears the queued toasts
func (s *Store) Drain(sessionID string) []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, ok := s.queues.Get(sessionID)
	if !ok {
		return nil
	}
	s.queues.Remove(sessionID)
	return queue
}
