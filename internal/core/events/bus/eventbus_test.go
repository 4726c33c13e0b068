package bus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObserver struct {
	deliveredCount int
	lastErr        error
}

func (o *testObserver) OnDelivered(_ string, handlers int, err error, _ time.Duration) {
	o.deliveredCount += handlers
	o.lastErr = err
}

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	b := New[int]("test")
	var got []string

	for _, name := range []string{"a", "b", "c", "d"} {
		b.Subscribe(func(e int) error {
			got = append(got, name)
			return nil
		})
	}

	require.NoError(t, b.Publish(1))
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
	assert.Equal(t, 4, b.Len())
}

func TestBus_CancelStopsDelivery(t *testing.T) {
	b := New[string]("test")
	count := 0
	sub := b.Subscribe(func(string) error { count++; return nil })
	require.True(t, sub.IsActive())
	assert.NotEmpty(t, sub.ID())

	_ = b.Publish("x")
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	_ = b.Publish("y")

	assert.Equal(t, 1, count)
	assert.False(t, sub.IsActive())
	assert.Equal(t, 0, b.Len())
	assert.NoError(t, b.Unsubscribe(nil))
}

func TestBus_CancelFromInsideHandler(t *testing.T) {
	b := New[int]("test")
	var second Subscription
	calls := 0
	b.Subscribe(func(int) error {
		_ = second.Cancel()
		return nil
	})
	second = b.Subscribe(func(int) error { calls++; return nil })

	_ = b.Publish(1)
	assert.Equal(t, 0, calls)
}

func TestBus_JoinsHandlerErrors(t *testing.T) {
	b := New[int]("test")
	errA, errB := errors.New("a"), errors.New("b")
	b.Subscribe(func(int) error { return errA })
	b.Subscribe(func(int) error { return nil })
	b.Subscribe(func(int) error { return errB })

	err := b.Publish(1)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	err = b.PublishBatch(1, 2)
	assert.ErrorIs(t, err, errA)
}

func TestBus_ObserverMetrics(t *testing.T) {
	b := New[int]("metrics")
	b.Subscribe(func(int) error { return nil })
	b.Subscribe(func(int) error { return errors.New("fail") })

	_ = b.Publish(0)
	assert.Equal(t, Metrics{}, b.GetMetrics())

	obs := &testObserver{}
	b.AddObserver(obs)
	_ = b.Publish(1)
	_ = b.Publish(2)

	m := b.GetMetrics()
	assert.Equal(t, uint64(2), m.Published)
	assert.Equal(t, uint64(4), m.DeliveredHandlers)
	assert.Equal(t, uint64(2), m.Errors)
	assert.Equal(t, uint64(2), m.SubscribersActive)
	assert.Equal(t, 4, obs.deliveredCount)
	assert.Error(t, obs.lastErr)

	b.RemoveObserver(obs)
	_ = b.Publish(3)
	assert.Equal(t, uint64(2), b.GetMetrics().Published)
}

func BenchmarkBus_Publish(b *testing.B) {
	bus := New[int]("bench")
	var c int64
	for i := 0; i < 8; i++ {
		bus.Subscribe(func(e int) error { c += int64(e); return nil })
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Publish(1)
	}
	_ = c
}
