package bus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObserver struct {
	publishCount   int
	deliveredCount int
	lastErr        error
}

func (o *testObserver) OnPublish(_, _ string, _ Event) {
	o.publishCount++
}

func (o *testObserver) OnDelivered(_, _ string, handlers int, err error, _ time.Duration) {
	o.deliveredCount += handlers
	o.lastErr = err
}

func TestPublishSubscribe(t *testing.T) {
	b := New()

	var got Event
	_, err := b.Subscribe("body.added", func(e Event) error {
		got = e
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(NewEvent("body.added", "world", 42)))
	require.NotNil(t, got)
	assert.Equal(t, "body.added", got.Type())
	assert.Equal(t, "world", got.Source())
	assert.Equal(t, 42, got.Data())
	assert.False(t, got.Timestamp().IsZero())

	// Other event types are not delivered.
	got = nil
	require.NoError(t, b.Publish(NewEvent("body.removed", "world", nil)))
	assert.Nil(t, got)
}

func TestTopicsIsolation(t *testing.T) {
	b := New()
	count1, count2 := 0, 0
	_, _ = b.SubscribeTopic("t1", "ev", func(Event) error { count1++; return nil })
	_, _ = b.SubscribeTopic("t2", "ev", func(Event) error { count2++; return nil })

	require.NoError(t, b.PublishToTopic("t1", NewEvent("ev", "src", nil)))
	assert.Equal(t, 1, count1)
	assert.Equal(t, 0, count2)

	names := map[string]int{}
	for _, ti := range b.Topics() {
		names[ti.Name] = ti.Subs
	}
	assert.Equal(t, map[string]int{"t1": 1, "t2": 1}, names)
}

func TestHandlerErrorsAreJoined(t *testing.T) {
	b := New()
	errA, errB := errors.New("a"), errors.New("b")
	_, _ = b.Subscribe("x", func(Event) error { return errA })
	_, _ = b.Subscribe("x", func(Event) error { return errB })
	_, _ = b.Subscribe("x", func(Event) error { return nil })

	err := b.Publish(NewEvent("x", "src", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestCancelSubscription(t *testing.T) {
	b := New()
	calls := 0
	sub, err := b.Subscribe("x", func(Event) error { calls++; return nil })
	require.NoError(t, err)
	assert.True(t, sub.IsActive())
	assert.NotEmpty(t, sub.ID())
	assert.Equal(t, "x", sub.EventType())

	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	assert.False(t, sub.IsActive())

	_ = b.Publish(NewEvent("x", "src", nil))
	assert.Equal(t, 0, calls)
	assert.NoError(t, b.Unsubscribe(nil))
}

func TestNilHandler(t *testing.T) {
	_, err := New().Subscribe("x", nil)
	assert.ErrorIs(t, err, ErrNilHandler)
}

func TestObserverMetrics(t *testing.T) {
	b := New()
	_, _ = b.Subscribe("e", func(Event) error { return nil })

	_ = b.Publish(NewEvent("e", "s", nil))
	assert.Equal(t, Metrics{}, b.Metrics(), "metrics should stay zero without observers")

	obs := &testObserver{}
	b.AddObserver(obs)
	_ = b.Publish(NewEvent("e", "s", nil))

	m := b.Metrics()
	assert.Equal(t, uint64(1), m.Published)
	assert.Equal(t, uint64(1), m.DeliveredHandlers)
	assert.Equal(t, uint64(1), m.SubscribersActive)
	assert.Equal(t, 1, obs.publishCount)
	assert.Equal(t, 1, obs.deliveredCount)
	assert.NoError(t, obs.lastErr)

	b.RemoveObserver(obs)
	_ = b.Publish(NewEvent("e", "s", nil))
	assert.Equal(t, 1, obs.publishCount)
}
