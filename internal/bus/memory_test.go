package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_PublishReachesSubscribers(t *testing.T) {
	b := NewMemoryBus(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, "arb")
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, "executions")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "arb", []byte(`{"n":1}`)))

	select {
	case got := <-ch:
		assert.JSONEq(t, `{"n":1}`, string(got))
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
	assert.Empty(t, other)
}

func TestMemoryBus_SubscriptionClosesOnCancel(t *testing.T) {
	b := NewMemoryBus(0)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := b.Subscribe(ctx, "arb")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	// Publishing after the subscriber left must not panic.
	require.NoError(t, b.Publish(context.Background(), "arb", []byte("x")))
}

func TestMemoryBus_StreamReadAfterID(t *testing.T) {
	b := NewMemoryBus(0)
	ctx := context.Background()
	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, b.StreamAppend(ctx, "s", []byte(p)))
	}

	all, err := b.StreamRead(ctx, "s", "0", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)

	rest, err := b.StreamRead(ctx, "s", all[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "b", string(rest[0].Payload))

	limited, err := b.StreamRead(ctx, "s", "0", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = b.StreamRead(ctx, "s", "bogus", 1)
	assert.Error(t, err)
}

func TestMemoryBus_StreamTrims(t *testing.T) {
	b := NewMemoryBus(2)
	ctx := context.Background()
	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, b.Publish(ctx, "s", []byte(p)))
	}

	msgs, err := b.StreamRead(ctx, "s", "0", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "b", string(msgs[0].Payload))
	assert.Equal(t, "c", string(msgs[1].Payload))
}

func TestMemoryBus_Subscribers(t *testing.T) {
	b := NewMemoryBus(0)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := b.Subscribe(ctx, "arb")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Subscribers("arb"))

	cancel()
	require.Eventually(t, func() bool { return b.Subscribers("arb") == 0 }, time.Second, 5*time.Millisecond)
}
