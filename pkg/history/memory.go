package history

import (
	"context"
	"sync"

	"github.com/germanamz/autoprompt/pkg/chats/message"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps session logs in process memory. The zero value is ready
// to use and it is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]message.Message
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the handle for sessionID.
func (s *MemoryStore) Get(sessionID string) Handle {
	return memoryHandle{store: s, id: sessionID}
}

type memoryHandle struct {
	store *MemoryStore
	id    string
}

func (h memoryHandle) Messages(_ context.Context) ([]message.Message, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()

	log := h.store.sessions[h.id]
	out := make([]message.Message, len(log))
	copy(out, log)
	return out, nil
}

func (h memoryHandle) Append(_ context.Context, msgs ...message.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	if h.store.sessions == nil {
		h.store.sessions = make(map[string][]message.Message)
	}
	h.store.sessions[h.id] = append(h.store.sessions[h.id], msgs...)
	return nil
}

func (h memoryHandle) Clear(_ context.Context) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	delete(h.store.sessions, h.id)
	return nil
}
