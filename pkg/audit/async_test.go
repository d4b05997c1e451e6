package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncPublisherDeliversToInner(t *testing.T) {
	inner := NewMemoryPublisher()
	pub := NewAsyncPublisher(inner, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = pub.Run(ctx)
		close(done)
	}()

	require.NoError(t, pub.Emit(context.Background(), Event{Action: ActionLoginSucceeded}))
	require.NoError(t, pub.Emit(context.Background(), Event{Action: ActionTokenRefreshed}))

	require.Eventually(t, func() bool {
		return len(inner.Events()) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, ActionLoginSucceeded, inner.Events()[0].Action)
}

func TestAsyncPublisherDrainsBufferOnShutdown(t *testing.T) {
	inner := NewMemoryPublisher()
	pub := NewAsyncPublisher(inner, 8)

	// Queue before the worker starts, then cancel immediately. The drain loop
	// must still hand everything to the inner publisher.
	for i := 0; i < 5; i++ {
		require.NoError(t, pub.Emit(context.Background(), Event{Action: ActionUserRegistered}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pub.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, inner.Events(), 5)
}

func TestAsyncPublisherDropsWhenFull(t *testing.T) {
	inner := NewMemoryPublisher()
	var dropped []Event
	pub := NewAsyncPublisher(inner, 1, WithDropHandler(func(e Event) {
		dropped = append(dropped, e)
	}))

	require.NoError(t, pub.Emit(context.Background(), Event{Action: ActionLoginSucceeded}))
	err := pub.Emit(context.Background(), Event{Action: ActionLoginFailed})

	require.Error(t, err)
	require.Len(t, dropped, 1)
	assert.Equal(t, ActionLoginFailed, dropped[0].Action)
}
