package runtime

import (
	"event-bridge/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Subscribe_One_Channel_One_Listener(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	channel := ChannelName("note:open")

	// Given no listener is registered
	req.Nil(registry.Listeners(channel))

	// When a listener subscribes a channel
	registry.Subscribe(channel, func(domain.Envelope) {})

	// Then
	req.Equal(1, registry.Count(channel))
	req.Len(registry.Listeners(channel), 1)
}

func TestRegistry_Subscribe_Keeps_Subscription_Order(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	channel := ChannelName("note:open")
	var calls []string

	registry.Subscribe(channel, func(domain.Envelope) { calls = append(calls, "first") })
	registry.Subscribe(channel, func(domain.Envelope) { calls = append(calls, "second") })

	for _, listener := range registry.Listeners(channel) {
		listener(domain.Envelope{})
	}

	req.Equal([]string{"first", "second"}, calls)
}

func TestRegistry_UnSubscribe_Last_Listener_Removes_Channel(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	channel := ChannelName("note:open")

	// Given a listener subscribes a channel
	unsubscribe := registry.Subscribe(channel, func(domain.Envelope) {})

	// When it unsubscribes twice
	unsubscribe()
	unsubscribe()

	// Then no listener left and the channel entry is gone
	req.Zero(registry.Count(channel))
	req.Nil(registry.Listeners(channel))
	req.Empty(registry.subscribers)
}

func TestRegistry_UnSubscribe_One_Of_Many(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	channel := ChannelName("note:open")
	var calls []string

	unsubscribeFirst := registry.Subscribe(channel, func(domain.Envelope) { calls = append(calls, "first") })
	registry.Subscribe(channel, func(domain.Envelope) { calls = append(calls, "second") })

	unsubscribeFirst()

	for _, listener := range registry.Listeners(channel) {
		listener(domain.Envelope{})
	}
	req.Equal(1, registry.Count(channel))
	req.Equal([]string{"second"}, calls)
}

func TestRegistry_Reset(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Subscribe("a", func(domain.Envelope) {})
	registry.Subscribe("b", func(domain.Envelope) {})

	registry.Reset()

	req.Zero(registry.Count("a"))
	req.Zero(registry.Count("b"))
}
