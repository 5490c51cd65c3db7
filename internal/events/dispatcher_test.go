package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountEventBusDeliversToSubscribers(t *testing.T) {
	d := NewAccountEventBus()

	var got []Event
	d.Subscribe(EventPrincipalSignedUp, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), New(EventPrincipalSignedUp, "p1", SignedUpPayload{AccountType: "donor"})))
	require.NoError(t, d.Publish(context.Background(), New(EventPrincipalLoggedIn, "p1", nil)))

	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].PrincipalID)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestAccountEventBusRunsAllSubscribersAndJoinsErrors(t *testing.T) {
	d := NewAccountEventBus()
	first := errors.New("first")
	calls := 0

	d.Subscribe(EventPrincipalLoggedOut, func(context.Context, Event) error { calls++; return first })
	d.Subscribe(EventPrincipalLoggedOut, func(context.Context, Event) error { calls++; return nil })

	err := d.Publish(context.Background(), New(EventPrincipalLoggedOut, "", LoggedOutPayload{}))
	assert.ErrorIs(t, err, first)
	assert.Equal(t, 2, calls)
}

func TestAccountEventBusRejectsUnknownType(t *testing.T) {
	bus := NewAccountEventBus()
	called := false
	bus.Subscribe("password_reset", func(context.Context, Event) error { called = true; return nil })

	err := bus.Publish(context.Background(), New("password_reset", "p1", nil))
	assert.ErrorIs(t, err, ErrUnknownEventType)
	assert.False(t, called)
}

func TestAccountEventBusTagsSubscriberErrors(t *testing.T) {
	bus := NewAccountEventBus()
	bus.Subscribe(EventAvailabilityChanged, func(context.Context, Event) error { return errors.New("sink down") })

	err := bus.Publish(context.Background(), New(EventAvailabilityChanged, "p1", AvailabilityChangedPayload{Available: false}))
	require.Error(t, err)
	assert.Equal(t, "availability_changed subscriber: sink down", err.Error())
}
