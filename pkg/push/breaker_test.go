package push_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/push"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) SendMulticast(ctx context.Context, msg push.Message) (*push.BatchResponse, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*push.BatchResponse), args.Error(1)
}

func TestBreakerGateway(t *testing.T) {
	t.Parallel()

	msg := push.Message{Tokens: []string{"a"}, Title: "x"}

	t.Run("opens after wholesale failures", func(t *testing.T) {
		t.Parallel()

		next := &mockGateway{}
		next.On("SendMulticast", mock.Anything, msg).Return(nil, push.ErrGatewayUnavailable).Times(2)

		b := push.NewBreakerGateway(next, 2, time.Hour, logger.Discard(), nil)
		for range 2 {
			_, err := b.SendMulticast(context.Background(), msg)
			require.ErrorIs(t, err, push.ErrGatewayUnavailable)
		}
		assert.Equal(t, "open", b.State())

		_, err := b.SendMulticast(context.Background(), msg)
		assert.ErrorIs(t, err, push.ErrCircuitOpen)
		assert.ErrorIs(t, err, push.ErrGatewayUnavailable)
		next.AssertNumberOfCalls(t, "SendMulticast", 2)
	})

	t.Run("partial failures keep circuit closed", func(t *testing.T) {
		t.Parallel()

		resp := &push.BatchResponse{
			SuccessCount: 1,
			FailureCount: 1,
			Results: []push.SendResult{
				{Token: "a"},
				{Token: "b", Error: push.ErrInvalidToken},
			},
		}
		next := &mockGateway{}
		next.On("SendMulticast", mock.Anything, msg).Return(resp, nil)

		var transitions int
		b := push.NewBreakerGateway(next, 1, time.Hour, logger.Discard(), func(string, string, string) { transitions++ })
		for range 3 {
			got, err := b.SendMulticast(context.Background(), msg)
			require.NoError(t, err)
			assert.Equal(t, []string{"b"}, got.InvalidTokens())
		}
		assert.Equal(t, "closed", b.State())
		assert.Zero(t, transitions)
	})

	t.Run("returns partial response on wholesale failure", func(t *testing.T) {
		t.Parallel()

		resp := &push.BatchResponse{FailureCount: 1, Results: []push.SendResult{{Token: "a", Error: push.ErrGatewayUnavailable}}}
		next := &mockGateway{}
		next.On("SendMulticast", mock.Anything, msg).Return(resp, push.ErrGatewayUnavailable)

		b := push.NewBreakerGateway(next, 5, time.Hour, logger.Discard(), nil)
		got, err := b.SendMulticast(context.Background(), msg)
		assert.ErrorIs(t, err, push.ErrGatewayUnavailable)
		assert.Same(t, resp, got)
	})
}
