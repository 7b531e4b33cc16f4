package eventbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	bus := New[string]()
	var got []string

	bus.Subscribe(func(ev string) { got = append(got, "a:"+ev) })
	bus.Subscribe(func(ev string) { got = append(got, "b:"+ev) })

	bus.Publish("scanning")
	bus.Publish("connected")

	assert.Equal(t, []string{"a:scanning", "b:scanning", "a:connected", "b:connected"}, got)
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	bus := New[int]()
	bus.Publish(1)

	var got []int
	bus.Subscribe(func(ev int) { got = append(got, ev) })
	bus.Publish(2)

	assert.Equal(t, []int{2}, got)
}

func TestUnsubscribe(t *testing.T) {
	bus := New[int]()
	var a, b []int

	unsubA := bus.Subscribe(func(ev int) { a = append(a, ev) })
	bus.Subscribe(func(ev int) { b = append(b, ev) })
	require.Equal(t, 2, bus.Len())

	bus.Publish(1)
	unsubA()
	unsubA()
	bus.Publish(2)

	assert.Equal(t, []int{1}, a)
	assert.Equal(t, []int{1, 2}, b)
	assert.Equal(t, 1, bus.Len())
}

func TestObserverMayUnsubscribeDuringDelivery(t *testing.T) {
	bus := New[int]()
	var got []int

	var unsub func()
	unsub = bus.Subscribe(func(ev int) {
		got = append(got, ev)
		unsub()
	})

	bus.Publish(1)
	bus.Publish(2)

	assert.Equal(t, []int{1}, got)
	assert.Zero(t, bus.Len())
}

func TestConcurrentSubscribeAndPublish(t *testing.T) {
	bus := New[int]()
	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := bus.Subscribe(func(int) {
				mu.Lock()
				count++
				mu.Unlock()
			})
			bus.Publish(1)
			unsub()
		}()
	}
	wg.Wait()

	assert.Zero(t, bus.Len())
	assert.GreaterOrEqual(t, count, 20)
}
