package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	calls int
	err   error
}

func (s *scriptedClient) Complete(context.Context, Request) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "ok", nil
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()
	next := &scriptedClient{err: errors.New("boom")}
	client := withBreaker("test", next, 2, time.Hour, discardLogger())
	ctx := context.Background()

	for range 2 {
		_, err := client.Complete(ctx, Request{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	_, err := client.Complete(ctx, Request{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, next.calls, "open circuit does not call the backend")
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	t.Parallel()
	next := &scriptedClient{err: context.Canceled}
	client := withBreaker("test", next, 1, time.Hour, discardLogger())

	for range 3 {
		_, err := client.Complete(context.Background(), Request{})
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 3, next.calls)

	next.err = nil
	got, err := client.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestBreakerRecoversAfterCooldown(t *testing.T) {
	t.Parallel()
	next := &scriptedClient{err: errors.New("boom")}
	client := withBreaker("test", next, 1, 20*time.Millisecond, discardLogger())
	ctx := context.Background()

	_, _ = client.Complete(ctx, Request{})
	_, err := client.Complete(ctx, Request{})
	require.ErrorIs(t, err, ErrUnavailable)

	time.Sleep(50 * time.Millisecond)
	next.err = nil
	got, err := client.Complete(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}
