package ratelimit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"marketboard/internal/provider"
	"marketboard/internal/provider/mocks"
	"marketboard/internal/provider/ratelimit"
)

func TestWrap_SelectsGate(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	f := mocks.NewMockFetcher(ctrl)

	_, ok := ratelimit.Wrap(f, 5, 1, time.Second).(*ratelimit.TokenBucketFetcher)
	require.True(t, ok, "rpm should win over interval")

	_, ok = ratelimit.Wrap(f, 0, 1, time.Second).(*ratelimit.MinInterval)
	require.True(t, ok)

	require.Same(t, f, ratelimit.Wrap(f, 0, 0, 0))
}

func TestTokenBucketFetcher_BurstThenWait(t *testing.T) {
	t.Parallel()

	// Arrange: two tokens, refilled slowly.
	ctrl := gomock.NewController(t)
	f := mocks.NewMockFetcher(ctrl)
	f.EXPECT().
		Fetch(gomock.Any(), provider.EndpointMovers, gomock.Nil()).
		Return(json.RawMessage(`{}`), nil).
		Times(2)

	g := &ratelimit.TokenBucketFetcher{F: f, TB: ratelimit.NewTokenBucket(0.01, 2)}

	// Act: the burst passes immediately.
	for range 2 {
		_, err := g.Fetch(t.Context(), provider.EndpointMovers, nil)
		require.NoError(t, err)
	}

	// Assert: the third call waits and gives up with the context.
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	_, err := g.Fetch(ctx, provider.EndpointMovers, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMinInterval_SpacesCalls(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	f := mocks.NewMockFetcher(ctrl)

	var calls []time.Time
	f.EXPECT().
		Fetch(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, provider.Endpoint, map[string]string) (json.RawMessage, error) {
			calls = append(calls, time.Now())
			return json.RawMessage(`{}`), nil
		}).
		Times(3)

	g := &ratelimit.MinInterval{F: f, Interval: 30 * time.Millisecond}
	for range 3 {
		_, err := g.Fetch(t.Context(), provider.EndpointNews, nil)
		require.NoError(t, err)
	}

	require.Len(t, calls, 3)
	for i := 1; i < len(calls); i++ {
		require.GreaterOrEqual(t, calls[i].Sub(calls[i-1]), 25*time.Millisecond)
	}
}

func TestMinInterval_CanceledWhileWaiting(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	f := mocks.NewMockFetcher(ctrl)
	f.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any()).Return(json.RawMessage(`{}`), nil).Times(1)

	g := &ratelimit.MinInterval{F: f, Interval: time.Hour}
	_, err := g.Fetch(t.Context(), provider.EndpointMovers, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = g.Fetch(ctx, provider.EndpointMovers, nil)
	require.ErrorIs(t, err, context.Canceled)
}
