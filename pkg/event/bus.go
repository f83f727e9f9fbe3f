package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/LumeraProtocol/arprov/pkg/logtrace"
)

const defaultMaxWorkers = 16

// Handler is a function that processes events
type Handler func(Event)

// Bus manages event subscriptions and dispatching. Handlers run on their own
// goroutines so a slow subscriber never stalls the provisioner.
type Bus struct {
	subscribers      map[EventType][]Handler
	wildcardHandlers []Handler
	mu               sync.RWMutex
	workerPool       chan struct{} // limits concurrent handler goroutines
	maxWorkers       int
}

// NewBus creates a new event bus. maxWorkers <= 0 selects the default.
func NewBus(maxWorkers int) *Bus {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}

	return &Bus{
		subscribers: make(map[EventType][]Handler),
		workerPool:  make(chan struct{}, maxWorkers),
		maxWorkers:  maxWorkers,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (b *Bus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.wildcardHandlers = append(b.wildcardHandlers, handler)
}

func (b *Bus) safelyCallHandler(handler Handler, e Event) {
	b.workerPool <- struct{}{}

	go func() {
		defer func() {
			<-b.workerPool

			if r := recover(); r != nil {
				logtrace.Error(context.Background(), "event handler panicked", logtrace.Fields{
					logtrace.FieldModule: "event",
					logtrace.FieldError:  fmt.Sprint(r),
					"event_type":         string(e.Type),
					"stack_trace":        string(debug.Stack()),
				})
			}
		}()

		handler(copyEvent(e))
	}()
}

// copyEvent gives every handler its own Data map.
func copyEvent(e Event) Event {
	copied := Event{
		Type:      e.Type,
		SessionID: e.SessionID,
		Timestamp: e.Timestamp,
		Data:      make(map[EventDataKey]interface{}, len(e.Data)),
	}
	for k, v := range e.Data {
		copied.Data[k] = v
	}
	return copied
}

// Publish sends an event to all relevant subscribers. A nil bus is a no-op.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	logtrace.Debug(context.Background(), "publishing event", logtrace.Fields{
		logtrace.FieldModule:    "event",
		"event_type":            string(e.Type),
		logtrace.FieldSessionID: e.SessionID,
	})

	for _, handler := range b.subscribers[e.Type] {
		b.safelyCallHandler(handler, e)
	}
	for _, handler := range b.wildcardHandlers {
		b.safelyCallHandler(handler, e)
	}
}

// WaitForHandlers waits for all in-flight event handlers to complete
func (b *Bus) WaitForHandlers() {
	if b == nil {
		return
	}
	// Fill the worker pool to capacity (blocks until all workers are free)
	for i := 0; i < b.maxWorkers; i++ {
		b.workerPool <- struct{}{}
	}
	for i := 0; i < b.maxWorkers; i++ {
		<-b.workerPool
	}
}

// Close releases resources used by the event bus
func (b *Bus) Close() {
	b.WaitForHandlers()
}
