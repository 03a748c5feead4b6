// Package wailsapp provides the event bridge between Go EventBus and Wails runtime.
package wailsapp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/glintlock/glintlock-desktop/internal/events"
)

// Frontend event names.
const (
	BackendEventName = "glintlock:backend"
	LogEventName     = "glintlock:log"
)

// emitFunc matches runtime.EventsEmit.
type emitFunc func(ctx context.Context, eventName string, optionalData ...interface{})

// EventBridge forwards events from internal EventBus to Wails runtime.
type EventBridge struct {
	ctx          context.Context
	eventBus     *events.EventBus
	subscription <-chan events.Event
	emit         emitFunc

	stopC   chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewEventBridge creates a new event bridge.
func NewEventBridge(ctx context.Context, eventBus *events.EventBus) *EventBridge {
	return newEventBridge(ctx, eventBus, runtime.EventsEmit)
}

func newEventBridge(ctx context.Context, eventBus *events.EventBus, emit emitFunc) *EventBridge {
	return &EventBridge{
		ctx:      ctx,
		eventBus: eventBus,
		emit:     emit,
		stopC:    make(chan struct{}),
	}
}

// Start begins forwarding events. A second Start is ignored.
func (eb *EventBridge) Start() error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.started {
		wailsLogger.Warn().Msg("Event bridge already started, ignoring duplicate Start()")
		return nil
	}

	eb.subscription = eb.eventBus.SubscribeAll()
	if eb.subscription == nil {
		return fmt.Errorf("event bridge: failed to subscribe to event bus")
	}

	eb.started = true
	eb.wg.Add(1)
	go eb.forwardLoop()

	wailsLogger.Debug().Msg("Event bridge started")
	return nil
}

// Stop stops forwarding events. Safe to call more than once.
func (eb *EventBridge) Stop() {
	eb.mu.Lock()
	if !eb.started {
		eb.mu.Unlock()
		return
	}
	eb.started = false
	sub := eb.subscription
	eb.mu.Unlock()

	close(eb.stopC)
	eb.wg.Wait()
	eb.eventBus.UnsubscribeAll(sub)

	wailsLogger.Debug().Msg("Event bridge stopped")
}

func (eb *EventBridge) forwardLoop() {
	defer eb.wg.Done()

	for {
		select {
		case event, ok := <-eb.subscription:
			if !ok {
				return
			}
			eb.forwardEvent(event)

		case <-eb.stopC:
			return
		}
	}
}

func (eb *EventBridge) forwardEvent(event events.Event) {
	switch e := event.(type) {
	case *events.BackendEvent:
		eb.emit(eb.ctx, BackendEventName, backendEventToDTO(e))

	case *events.LogEvent:
		eb.emit(eb.ctx, LogEventName, logEventToDTO(e))
	}
}

// DTO conversion functions for JSON-safe serialization

// BackendEventDTO is the JSON-safe version of events.BackendEvent.
type BackendEventDTO struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	RunID     string `json:"runId"`
	Port      uint16 `json:"port"`
	PID       int    `json:"pid"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
}

func backendEventToDTO(e *events.BackendEvent) BackendEventDTO {
	dto := BackendEventDTO{
		Timestamp: e.Timestamp().Format(time.RFC3339Nano),
		Type:      string(e.Type()),
		RunID:     e.RunID,
		Port:      e.Port,
		PID:       e.PID,
		Message:   e.Message,
	}
	if e.Error != nil {
		dto.Error = e.Error.Error()
	}
	return dto
}

// LogEventDTO is the JSON-safe version of events.LogEvent.
type LogEventDTO struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
}

func logEventToDTO(e *events.LogEvent) LogEventDTO {
	dto := LogEventDTO{
		Timestamp: e.Timestamp().Format(time.RFC3339Nano),
		Level:     e.Level.String(),
		Message:   e.Message,
	}
	if e.Error != nil {
		dto.Error = e.Error.Error()
	}
	return dto
}
