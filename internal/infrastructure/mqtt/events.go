package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// DefaultEventQueueSize bounds the number of events waiting for the broker.
const DefaultEventQueueSize = 256

// EventTransport publishes an encoded event. *Client implements it.
type EventTransport interface {
	PublishEvent(action string, payload []byte) error
}

type queuedEvent struct {
	action  string
	payload []byte
}

// EventPublisher decouples request handling from the broker. Enqueue never
// blocks; a single Run loop drains the queue and publishes in order.
// Events that do not fit in the queue are dropped and counted.
type EventPublisher struct {
	transport EventTransport
	queue     chan queuedEvent
	logger    Logger
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// NewEventPublisher returns a publisher with a queue of the given size.
// A size below one uses DefaultEventQueueSize.
func NewEventPublisher(transport EventTransport, size int, logger Logger) *EventPublisher {
	if size < 1 {
		size = DefaultEventQueueSize
	}
	return &EventPublisher{
		transport: transport,
		queue:     make(chan queuedEvent, size),
		logger:    logger,
	}
}

// Enqueue JSON-encodes v and queues it for the event topic of action.
func (p *EventPublisher) Enqueue(action string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", action, err)
	}

	select {
	case p.queue <- queuedEvent{action: action, payload: payload}:
		return nil
	default:
		p.dropped.Add(1)
		return ErrQueueFull
	}
}

// Run publishes queued events until ctx is cancelled, then flushes what is
// already queued and returns nil.
func (p *EventPublisher) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-p.queue:
			p.publish(ev)
		case <-ctx.Done():
			p.flush()
			return nil
		}
	}
}

func (p *EventPublisher) flush() {
	for {
		select {
		case ev := <-p.queue:
			p.publish(ev)
		default:
			return
		}
	}
}

func (p *EventPublisher) publish(ev queuedEvent) {
	if err := p.transport.PublishEvent(ev.action, ev.payload); err != nil {
		p.failed.Add(1)
		if p.logger != nil {
			p.logger.Warn("publishing auth event failed", "action", ev.action, "error", err)
		}
		return
	}
	if p.logger != nil {
		p.logger.Debug("auth event published", "action", ev.action)
	}
}

// Dropped returns how many events were rejected because the queue was full.
func (p *EventPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Failed returns how many events the transport rejected.
func (p *EventPublisher) Failed() uint64 {
	return p.failed.Load()
}
