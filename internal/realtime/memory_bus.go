package realtime

import (
	"context"
	"sync"

	"github.com/felixvaughn/themachine-backend/internal/logger"
)

// memoryBus backs demo mode: no external transport, every publish is
// logged and dispatched to in-process subscribers only. Both demo
// participants talk to the same process, so the live experience still
// works end to end without Redis.
type memoryBus struct {
	mu   sync.RWMutex
	log  *logger.Logger
	subs map[string]map[*memorySubscription]bool
}

func NewMemoryBus(log *logger.Logger) Bus {
	return &memoryBus{
		log:  log.With("service", "MemoryBus"),
		subs: make(map[string]map[*memorySubscription]bool),
	}
}

type memorySubscription struct {
	bus     *memoryBus
	channel string
	onMsg   func([]byte)
}

func (s *memorySubscription) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if set, ok := s.bus.subs[s.channel]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(s.bus.subs, s.channel)
		}
	}
	return nil
}

func (b *memoryBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.log.Debug("demo publish", "channel", channel, "bytes", len(payload))
	b.mu.RLock()
	targets := make([]*memorySubscription, 0, len(b.subs[channel]))
	for s := range b.subs[channel] {
		targets = append(targets, s)
	}
	b.mu.RUnlock()
	for _, s := range targets {
		s.onMsg(payload)
	}
	return nil
}

func (b *memoryBus) Subscribe(ctx context.Context, channel string, onMsg func([]byte), onDrop func(error)) (Subscription, error) {
	sub := &memorySubscription{bus: b, channel: channel, onMsg: onMsg}
	b.mu.Lock()
	set, ok := b.subs[channel]
	if !ok {
		set = make(map[*memorySubscription]bool)
		b.subs[channel] = set
	}
	set[sub] = true
	b.mu.Unlock()
	b.log.Debug("demo subscribe", "channel", channel)
	return sub, nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string]map[*memorySubscription]bool)
	return nil
}
