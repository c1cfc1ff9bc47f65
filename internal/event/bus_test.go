package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBusFansOutToSubscribers(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	first, unsubFirst := bus.Subscribe()
	second, unsubSecond := bus.Subscribe()
	t.Cleanup(unsubFirst)
	t.Cleanup(unsubSecond)

	e := New(TypeLoginSucceeded, AuthPayload{UserID: 9, Email: "ana@example.com", Status: StatusSuccess}, time.Unix(1700000000, 0))
	bus.Publish(e)

	require.Equal(t, e, <-first)
	require.Equal(t, e, <-second)
	require.Equal(t, "9", e.ActorID)
	require.NotEmpty(t, e.ID)
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	t.Cleanup(unsubscribe)

	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish(New(TypeLoginFailed, AuthPayload{Status: StatusFailure}, time.Now()))
	}

	require.Len(t, ch, subscriberBuffer)
}

func TestUnsubscribeClosesChannelOnce(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	unsubscribe()
	unsubscribe()

	_, open := <-ch
	require.False(t, open)

	bus.Publish(New(TypeTokenRefreshed, AuthPayload{Status: StatusSuccess}, time.Now()))
}
