// Package history provides append-only, per-session message logs.
//
// A [Store] hands out a [Handle] per session id. Handles of the same session
// share the same underlying log; different sessions are independent.
package history

import (
	"context"
	"sync"

	"github.com/germanamz/autoprompt/pkg/chats/message"
)

// Store returns the message log of a session.
type Store interface {
	Get(sessionID string) Handle
}

// Handle is the message log of one session.
type Handle interface {
	// Messages returns the log in append order.
	Messages(ctx context.Context) ([]message.Message, error)
	// Append adds messages to the end of the log.
	Append(ctx context.Context, msgs ...message.Message) error
	// Clear removes every message of the session.
	Clear(ctx context.Context) error
}

// locks hands out one mutex per session id so writes to a session are
// serialized while different sessions proceed independently.
type locks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *locks) get(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}

	mu, ok := l.m[id]
	if !ok {
		mu = &sync.Mutex{}
		l.m[id] = mu
	}
	return mu
}
