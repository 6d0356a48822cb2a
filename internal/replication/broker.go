// Package replication redistributes committed mutations between sessions
// watching the same tenant. Each tenant id names one broadcast topic; a
// session publishes after every successful remote persist and applies
// whatever it receives from other sessions to its own cache.
package replication

import (
	"log/slog"
	"sync"

	"github.com/tillsync/tillsync/internal/record"
)

// Action identifies the mutation a replication event carries.
type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Event is one committed mutation. Data always includes the tenant_id it
// was committed under, so receivers can drop foreign-tenant events even
// if a message strays across topics.
type Event struct {
	Action Action        `json:"action"`
	Table  string        `json:"table"`
	Data   record.Record `json:"data"`
}

// subscriberBuffer bounds each subscription channel. A session that stops
// draining loses events rather than blocking every publisher.
const subscriberBuffer = 256

// Subscription is one session's feed of a tenant topic.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	cancel func()
	once   sync.Once
}

// Close detaches the subscription from its topic. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

// Broker is an in-memory per-tenant publish/subscribe hub.
//
// Tenant id is an explicit parameter of every publish and subscribe call,
// never inferred from ambient session state - a session that switches
// tenants must resubscribe, which prevents cross-tenant leakage.
type Broker struct {
	mu     sync.Mutex
	nextID int
	topics map[string]map[int]chan Event
}

// NewBroker creates an empty Broker.
func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]map[int]chan Event),
	}
}

// Subscribe attaches to the given tenant's topic.
func (b *Broker) Subscribe(tenantID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.topics[tenantID] == nil {
		b.topics[tenantID] = make(map[int]chan Event)
	}
	id := b.nextID
	b.nextID++

	ch := make(chan Event, subscriberBuffer)
	b.topics[tenantID][id] = ch

	return &Subscription{
		C:  ch,
		ch: ch,
		cancel: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs := b.topics[tenantID]; subs != nil {
				delete(subs, id)
				if len(subs) == 0 {
					delete(b.topics, tenantID)
				}
			}
			close(ch)
		},
	}
}

// Publish delivers an event to every subscriber of the tenant's topic,
// including the publisher's own subscription if it holds one. Delivery is
// non-blocking; a full subscriber buffer drops the event for that
// subscriber only.
func (b *Broker) Publish(tenantID string, ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.topics[tenantID] {
		select {
		case ch <- ev:
		default:
			slog.Warn("replication subscriber lagging, event dropped",
				"tenant", tenantID, "action", ev.Action, "table", ev.Table)
		}
	}
}
