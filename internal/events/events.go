// Package events provides in-process, fire-and-forget event hooks for
// audit logging of donation and aggregation activity. Handlers run
// asynchronously and never block the request path.
package events

import (
	"context"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// EventDonationCreated is emitted when a live payment intent is created.
	EventDonationCreated EventType = "donation.created"
	// EventDonationSimulated is emitted when a simulated donation completes.
	EventDonationSimulated EventType = "donation.simulated"
	// EventTopArtistsFetched is emitted when a top-artists aggregation succeeds.
	EventTopArtistsFetched EventType = "topartists.fetched"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// DonationData describes a completed donation, live or simulated.
type DonationData struct {
	ArtistName  string
	AmountMinor int64
	Reference   string
	Simulated   bool
}

// TopArtistsFetchedData describes a completed aggregation.
type TopArtistsFetchedData struct {
	WeeklyCount  int
	MonthlyCount int
	YearlyCount  int
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handler errors
// are dropped; an audit hook must not fail the request that raised it.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	for _, handler := range handlers {
		go func(h Handler) {
			_ = h(ctx, event)
		}(handler)
	}
}

// PublishDonation publishes a donation event, live or simulated.
func (m *Manager) PublishDonation(ctx context.Context, data DonationData) {
	eventType := EventDonationCreated
	if data.Simulated {
		eventType = EventDonationSimulated
	}
	m.Publish(ctx, eventType, data)
}

// PublishTopArtistsFetched publishes a successful aggregation event.
func (m *Manager) PublishTopArtistsFetched(ctx context.Context, data TopArtistsFetchedData) {
	m.Publish(ctx, EventTopArtistsFetched, data)
}

// Shutdown disables the event manager and drops all handlers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
