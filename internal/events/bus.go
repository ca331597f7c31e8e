package events

import (
	"log/slog"
	"sync"
	"time"
)

// SessionEnded is published exactly once per terminal transition. It is the
// only coupling between the state machine and follow-up automation: an
// explicit message, not an implicit callback chain.

type SessionEnded struct {
	SessionID string
	LeadID    string
	AgentID   string

	Status      string
	Disposition string
	Sentiment   string

	DurationSeconds int
	OccurredAt      time.Time
}

type Handler func(SessionEnded)

// Bus is a small in-process fan-out. Handlers run asynchronously; a panic in
// one handler is contained and logged, never propagated to the publisher.

type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	log      *slog.Logger
}

func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{log: log}
}

func (b *Bus) Subscribe(h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(ev SessionEnded) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("session event handler panicked", "session_id", ev.SessionID, "panic", r)
				}
			}()
			h(ev)
		}(h)
	}
}
