// Package events provides an in-process publish/subscribe bus connecting the
// signal engine to the API layer and websocket hub.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the kinds of events the engine publishes.
type EventType string

const (
	EventBoardUpdate     EventType = "BOARD_UPDATE"
	EventSignalResolved  EventType = "SIGNAL_RESOLVED"
	EventSentimentUpdate EventType = "SENTIMENT_UPDATE"
	EventError           EventType = "ERROR"
)

// Event is a single bus message. Data carries the type-specific payload.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber handles published events.
type Subscriber func(Event)

// Bus manages event publishing and subscriptions.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]Subscriber),
	}
}

// Subscribe registers a subscriber for a specific event type.
func (b *Bus) Subscribe(eventType EventType, subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for every event type.
func (b *Bus) SubscribeAll(subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allSubs = append(b.allSubs, subscriber)
}

// Publish delivers an event to all matching subscribers. Delivery runs in
// goroutines so a slow subscriber cannot stall the engine tick.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, sub := range b.subscribers[event.Type] {
		go sub(event)
	}
	for _, sub := range b.allSubs {
		go sub(event)
	}
}

// PublishBoardUpdate announces a refreshed active board.
func (b *Bus) PublishBoardUpdate(count int, status string) {
	b.Publish(Event{
		Type: EventBoardUpdate,
		Data: map[string]interface{}{
			"count":  count,
			"status": status,
		},
	})
}

// PublishSignalResolved announces a terminal or partial resolution.
func (b *Bus) PublishSignalResolved(symbol, status string, resultPercent float64) {
	b.Publish(Event{
		Type: EventSignalResolved,
		Data: map[string]interface{}{
			"symbol":         symbol,
			"status":         status,
			"result_percent": resultPercent,
		},
	})
}

// PublishSentimentUpdate announces a refreshed market sentiment verdict.
func (b *Bus) PublishSentimentUpdate(verdict string, bullish, bearish int) {
	b.Publish(Event{
		Type: EventSentimentUpdate,
		Data: map[string]interface{}{
			"verdict": verdict,
			"bullish": bullish,
			"bearish": bearish,
		},
	})
}

// PublishError announces a component failure worth surfacing to clients.
func (b *Bus) PublishError(component string, err error) {
	b.Publish(Event{
		Type: EventError,
		Data: map[string]interface{}{
			"component": component,
			"error":     err.Error(),
		},
	})
}
