// Package wire implements the streaming message bus (C1): a multicast,
// non-blocking broadcast of entity.AgentEvent to any number of subscribers,
// reset at the start of every run so stale subscribers from a prior turn
// never see a new turn's messages.
package wire

import (
	"sync"

	"github.com/jimi-run/jimi-core/internal/domain/entity"
	"go.uber.org/zap"
)

// Wire broadcasts entity.AgentEvent (the WireMessage union) to every
// subscriber registered at publish time. Publish never blocks: a
// subscriber whose buffer is full drops the message rather than stall
// the run.
type Wire struct {
	mu     sync.RWMutex
	subs   map[int]chan entity.AgentEvent
	nextID int
	bufLen int
	logger *zap.Logger
}

// New creates a Wire whose per-subscriber channel buffer holds bufLen
// messages before publishes to that subscriber start dropping.
func New(logger *zap.Logger, bufLen int) *Wire {
	if bufLen <= 0 {
		bufLen = 64
	}
	return &Wire{
		subs:   make(map[int]chan entity.AgentEvent),
		bufLen: bufLen,
		logger: logger,
	}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe function. The channel is never closed by Publish; call
// the returned func to stop receiving and release the channel.
func (w *Wire) Subscribe() (<-chan entity.AgentEvent, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	ch := make(chan entity.AgentEvent, w.bufLen)
	w.subs[id] = ch

	unsub := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if c, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(c)
		}
	}
	return ch, unsub
}

// Publish fans out msg to every current subscriber, non-blocking.
func (w *Wire) Publish(msg entity.AgentEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for id, ch := range w.subs {
		select {
		case ch <- msg:
		default:
			if w.logger != nil {
				w.logger.Warn("wire subscriber buffer full, dropping message",
					zap.Int("subscriber", id),
					zap.String("type", string(msg.Type)),
				)
			}
		}
	}
}

// Reset closes and drops every subscriber channel, leaving the Wire ready
// for a fresh run. Callers holding a stale receive end see the channel
// close and should stop reading.
func (w *Wire) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, ch := range w.subs {
		close(ch)
		delete(w.subs, id)
	}
	w.nextID = 0
}

// SubscriberCount reports how many listeners are currently attached.
func (w *Wire) SubscriberCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.subs)
}
