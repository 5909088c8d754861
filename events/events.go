package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeLotteryIndexed      EventType = "lottery_indexed"
	EventTypeLotterySynced       EventType = "lottery_synced"
	EventTypeSettlementSubmitted EventType = "settlement_submitted"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// LotteryIndexedEvent is emitted after a creation event has been mirrored
type LotteryIndexedEvent struct {
	LotteryID  string
	TxDigest   string
	DeadlineMs int64
}

func (e LotteryIndexedEvent) Type() EventType {
	return EventTypeLotteryIndexed
}

// LotterySyncedEvent is emitted after an on-demand sync upserted a mirror row
type LotterySyncedEvent struct {
	LotteryID string
}

func (e LotterySyncedEvent) Type() EventType {
	return EventTypeLotterySynced
}

// SettlementSubmittedEvent is emitted after a settlement draw has been
// accepted by the ledger
type SettlementSubmittedEvent struct {
	LotteryID string
	TxDigest  string
}

func (e SettlementSubmittedEvent) Type() EventType {
	return EventTypeSettlementSubmitted
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking the worker loops
	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}
