package bus

import (
	"context"
	"sync"

	"github.com/novamark/agencydesk-backend/internal/realtime"
)

// localBus is the single-process Bus used when no redis address is configured.
// Publish fans out to every registered forwarder on its own goroutine.
type localBus struct {
	mu       sync.RWMutex
	handlers []func(ev realtime.ChangeEvent)
	closed   bool
}

func NewLocalBus() Bus {
	return &localBus{}
}

func (b *localBus) Publish(_ context.Context, ev realtime.ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for _, h := range b.handlers {
		go h(ev)
	}
	return nil
}

func (b *localBus) StartForwarder(_ context.Context, onEvent func(ev realtime.ChangeEvent)) error {
	if onEvent == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, onEvent)
	return nil
}

func (b *localBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = nil
	return nil
}
