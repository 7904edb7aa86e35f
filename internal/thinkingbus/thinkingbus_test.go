package thinkingbus

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Silver-Larry/droid-byok-unleashed/internal/types"
)

func TestSubscribe_ReceivesPublishedFragment(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(types.ThinkingFragment{Content: "hello", Model: "claude-sonnet"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	frags, isKeepAlive, ok := sub.Next(ctx, time.Minute)
	require.True(t, ok)
	assert.False(t, isKeepAlive)
	require.Len(t, frags, 1)
	assert.Equal(t, "hello", frags[0].Content)
}

func TestSubscribe_OnlyReceivesFragmentsAfterSubscribing(t *testing.T) {
	b := New()
	b.Publish(types.ThinkingFragment{Content: "before"})

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)
	b.Publish(types.ThinkingFragment{Content: "after"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	frags, _, ok := sub.Next(ctx, time.Minute)
	require.True(t, ok)
	require.Len(t, frags, 1)
	assert.Equal(t, "after", frags[0].Content)
}

func TestPublish_BroadcastsToAllSubscribers(t *testing.T) {
	b := New()
	s1, s2 := b.Subscribe(), b.Subscribe()
	defer b.Unsubscribe(s1)
	defer b.Unsubscribe(s2)

	b.Publish(types.ThinkingFragment{Content: "x"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f1, _, ok1 := s1.Next(ctx, time.Minute)
	f2, _, ok2 := s2.Next(ctx, time.Minute)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, "x", f1[0].Content)
	assert.Equal(t, "x", f2[0].Content)
}

func TestRing_DropsOldestOnOverflow(t *testing.T) {
	r := newRing(DefaultCapacity)
	for i := 0; i < DefaultCapacity+2; i++ {
		r.push(types.ThinkingFragment{Content: strconv.Itoa(i)})
	}
	out := r.drain()
	require.Len(t, out, DefaultCapacity)
	assert.Equal(t, "2", out[0].Content, "oldest two should have been evicted")
	assert.Equal(t, strconv.Itoa(DefaultCapacity+1), out[DefaultCapacity-1].Content)
	assert.Equal(t, int64(2), r.dropped())
}

func TestNewRing_EnforcesMinimumCapacity(t *testing.T) {
	r := newRing(4)
	assert.Equal(t, DefaultCapacity, r.cap)
}

func TestSubscriber_KeepAliveFiresOnIdle(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, isKeepAlive, ok := sub.Next(ctx, 10*time.Millisecond)
	require.True(t, ok)
	assert.True(t, isKeepAlive)
}

func TestUnsubscribe_UnblocksNext(t *testing.T) {
	b := New()
	sub := b.Subscribe()

	done := make(chan struct{})
	go func() {
		_, _, ok := sub.Next(context.Background(), time.Minute)
		assert.False(t, ok)
		close(done)
	}()

	b.Unsubscribe(sub)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock after Unsubscribe")
	}
}

func TestPublish_NoSubscribersIsNoop(t *testing.T) {
	b := New()
	assert.NotPanics(t, func() {
		b.Publish(types.ThinkingFragment{Content: "x"})
	})
	assert.Equal(t, 0, b.SubscriberCount())
}
