package bus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// ErrClosed is returned by Publish after the bus has been closed.
var ErrClosed = errors.New("bus is closed")

// Handler is a delivery callback registered via Subscribe. Handlers run on a
// dedicated per-subscriber goroutine and receive messages in publish order;
// they should hand work off quickly and never block for long.
type Handler func(msg core.Message)

// Options configures a Bus.
type Options struct {
	// HistoryLimit bounds the in-memory message history. Older messages are
	// evicted first.
	HistoryLimit int
	// BufferSize sets the per-subscriber delivery buffer. When a subscriber
	// falls this far behind, further messages to it are dropped (and counted)
	// rather than blocking publishers; liveness decisions belong to the
	// orchestrator's timeouts, not the bus.
	BufferSize int
	// Logger receives drop warnings and delivery diagnostics.
	Logger logging.Logger
}

type subscriber struct {
	id string
	ch chan core.Message
}

// Bus is an in-memory publish/subscribe message channel. All methods are
// safe for concurrent use. Messages are delivered to each subscriber in
// publish order; no cross-sender ordering is guaranteed beyond that global
// publish linearization.
type Bus struct {
	mu           sync.Mutex
	subscribers  map[string]*subscriber
	history      []core.Message
	historyLimit int
	bufferSize   int
	dropped      uint64
	closed       bool
	logger       logging.Logger
	wg           sync.WaitGroup
}

// New constructs a Bus with optional overrides.
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{
		HistoryLimit: 1000,
		BufferSize:   256,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Bus{
		subscribers:  make(map[string]*subscriber),
		historyLimit: opts.HistoryLimit,
		bufferSize:   opts.BufferSize,
		logger:       opts.Logger,
	}
}

// Subscribe registers a delivery callback for the given id. Each id may hold
// exactly one handler at a time.
func (b *Bus) Subscribe(id string, h Handler) error {
	if id == "" {
		return errors.New("subscriber id must not be empty")
	}
	if h == nil {
		return errors.New("handler must not be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return fmt.Errorf("subscriber %s already registered", id)
	}

	sub := &subscriber{id: id, ch: make(chan core.Message, b.bufferSize)}
	b.subscribers[id] = sub

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range sub.ch {
			h(msg)
		}
	}()

	return nil
}

// Unsubscribe removes the handler registered for id. Removing an unknown id
// is a no-op. Messages already buffered for the subscriber are still delivered.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}

// Publish validates the message, appends it to the bounded history and
// delivers it: to the named recipient for directed messages, or to every
// current subscriber for broadcast types. Delivery to an unsubscribed
// recipient is not an error; the message stays in history and is dropped.
// Publish only fails for structurally invalid messages or a closed bus.
func (b *Bus) Publish(msg core.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	b.record(msg)

	if msg.Type.Broadcast() {
		for _, sub := range b.subscribers {
			b.deliverLocked(sub, msg)
		}
		return nil
	}

	if sub, ok := b.subscribers[msg.Recipient]; ok {
		b.deliverLocked(sub, msg)
	} else {
		b.logger.Debug("bus: recipient not subscribed, message dropped",
			"recipient", msg.Recipient, "type", msg.Type, "message_id", msg.ID)
	}

	return nil
}

// record appends to the bounded history; caller holds the lock.
func (b *Bus) record(msg core.Message) {
	if b.historyLimit <= 0 {
		return
	}
	if len(b.history) >= b.historyLimit {
		b.history = append(b.history[1:], msg)
		return
	}
	b.history = append(b.history, msg)
}

// deliverLocked performs a non-blocking send; caller holds the lock. A full
// subscriber buffer means the message is dropped for that subscriber.
func (b *Bus) deliverLocked(sub *subscriber, msg core.Message) {
	select {
	case sub.ch <- msg:
	default:
		b.dropped++
		b.logger.Warn("bus: subscriber buffer full, message dropped",
			"subscriber", sub.id, "type", msg.Type, "message_id", msg.ID)
	}
}

// Dropped returns the number of messages dropped due to full subscriber buffers.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Filter narrows History results. Zero values match everything.
type Filter struct {
	Sender    string
	Recipient string
	Type      core.MessageType
	Limit     int // most recent N matches; 0 = no limit
}

// History returns a copy of recorded messages matching the filter, oldest first.
func (b *Bus) History(optFns ...func(f *Filter)) []core.Message {
	var f Filter
	for _, fn := range optFns {
		fn(&f)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	matches := make([]core.Message, 0, len(b.history))
	for _, msg := range b.history {
		if f.Sender != "" && msg.Sender != f.Sender {
			continue
		}
		if f.Recipient != "" && msg.Recipient != f.Recipient {
			continue
		}
		if f.Type != "" && msg.Type != f.Type {
			continue
		}
		matches = append(matches, msg)
	}
	if f.Limit > 0 && len(matches) > f.Limit {
		matches = matches[len(matches)-f.Limit:]
	}
	return matches
}

// Close stops all subscriber pumps after draining buffered messages. The bus
// rejects publishes and subscriptions afterwards.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	b.wg.Wait()
}
