package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubPublishOrder(t *testing.T) {
	var h Hub[int]
	var got []string
	h.Subscribe(func(v int) { got = append(got, "a") })
	h.Subscribe(func(v int) { got = append(got, "b") })

	h.Publish(1)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestHubUnsubscribe(t *testing.T) {
	var h Hub[int]
	calls := 0
	unsubscribe := h.Subscribe(func(int) { calls++ })

	h.Publish(1)
	unsubscribe()
	unsubscribe()
	h.Publish(2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, h.Len())
}

func TestHubUnsubscribeDuringPublish(t *testing.T) {
	var h Hub[int]
	calls := 0
	var unsubscribe func()
	unsubscribe = h.Subscribe(func(int) {
		calls++
		unsubscribe()
	})
	other := 0
	h.Subscribe(func(int) { other++ })

	h.Publish(1)
	h.Publish(2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, other)
}
