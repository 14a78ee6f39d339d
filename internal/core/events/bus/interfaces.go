package bus

import "time"

// EventBus is a thread-safe, in-process pub/sub bus.
//
// Handlers subscribe by Event.Type() within an optional topic; the default topic
// is "". Delivery is synchronous in the publishing goroutine and handler errors are
// joined and returned from Publish. Metrics are only collected while at least one
// observer is registered.
type EventBus interface {
	// Publish delivers the event to subscribers of event.Type() in the default topic.
	Publish(event Event) error
	// PublishToTopic delivers the event to subscribers within topic.
	PublishToTopic(topic string, event Event) error

	// Subscribe registers a handler in the default topic.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// SubscribeTopic registers a handler for eventType within topic.
	SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels sub. A nil sub is ignored.
	Unsubscribe(sub Subscription) error

	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
	// Metrics returns a snapshot of the counters.
	Metrics() Metrics
	// Topics lists the topics that ever had a subscriber.
	Topics() []TopicInfo
}

// Event is an immutable message transported by the bus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type (
	// EventHandler is invoked once per delivered event.
	EventHandler func(event Event) error
)

// Subscription is a handler bound to an event type.
type Subscription interface {
	ID() string
	Topic() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// Observer is notified around every delivery. Implementations should return quickly.
type Observer interface {
	OnPublish(topic, eventType string, event Event)
	OnDelivered(topic, eventType string, handlers int, err error, duration time.Duration)
}

type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}

type TopicInfo struct {
	Name       string
	EventTypes int
	Subs       int
}
