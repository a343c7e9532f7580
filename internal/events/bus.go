package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventPatternDetected EventType = "PATTERN_DETECTED"
	EventSignalGenerated EventType = "SIGNAL_GENERATED"
	EventScanCompleted   EventType = "SCAN_COMPLETED"
	EventPriceUpdate     EventType = "PRICE_UPDATE"
	EventPriceStale      EventType = "PRICE_STALE"
	EventError           EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers. Subscribers run in their own
// goroutines so a slow consumer never blocks the pipeline.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event)
		}
	}

	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishPatternDetected publishes a pattern detection event
func (eb *EventBus) PublishPatternDetected(symbol, pattern string, confidence float64, anchorTime time.Time) {
	eb.Publish(Event{
		Type: EventPatternDetected,
		Data: map[string]interface{}{
			"symbol":      symbol,
			"pattern":     pattern,
			"confidence":  confidence,
			"anchor_time": anchorTime,
		},
	})
}

// PublishSignalGenerated publishes a scored signal event
func (eb *EventBus) PublishSignalGenerated(symbol, pattern, direction string, quality float64) {
	eb.Publish(Event{
		Type: EventSignalGenerated,
		Data: map[string]interface{}{
			"symbol":    symbol,
			"pattern":   pattern,
			"direction": direction,
			"quality":   quality,
		},
	})
}

// PublishScanCompleted publishes a scan summary event
func (eb *EventBus) PublishScanCompleted(scanID string, scannedSymbols, patternsFound int, processingTimeMs int64) {
	eb.Publish(Event{
		Type: EventScanCompleted,
		Data: map[string]interface{}{
			"scan_id":            scanID,
			"scanned_symbols":    scannedSymbols,
			"patterns_found":     patternsFound,
			"processing_time_ms": processingTimeMs,
		},
	})
}

// PublishPriceUpdate publishes a price update event
func (eb *EventBus) PublishPriceUpdate(symbol string, price float64) {
	eb.Publish(Event{
		Type: EventPriceUpdate,
		Data: map[string]interface{}{
			"symbol": symbol,
			"price":  price,
		},
	})
}

// PublishPriceStale publishes a stale price warning event
func (eb *EventBus) PublishPriceStale(symbol string, ageMinutes float64) {
	eb.Publish(Event{
		Type: EventPriceStale,
		Data: map[string]interface{}{
			"symbol":      symbol,
			"age_minutes": ageMinutes,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
