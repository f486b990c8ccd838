package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/pkg/logger"
)

func TestHub_DropsSlowClients(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hub := NewHub(WithLogger(logger.Discard()))

	// Clients without pumps never drain their buffers.
	slow := newClient(hub, "u1", nil, 1)
	require.True(t, hub.register(slow))

	delivered, err := hub.SendToUser(ctx, "u1", "first")
	require.NoError(t, err)
	assert.True(t, delivered)

	delivered, err = hub.SendToUser(ctx, "u1", "second")
	assert.ErrorIs(t, err, ErrSlowConsumer)
	assert.False(t, delivered)
	assert.Zero(t, hub.Connections("u1"))

	healthy := newClient(hub, "u2", nil, 8)
	stalled := newClient(hub, "u2", nil, 1)
	require.True(t, hub.register(healthy))
	require.True(t, hub.register(stalled))
	require.True(t, stalled.enqueue([]byte("{}")))

	delivered, err = hub.SendToUser(ctx, "u2", "hello")
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Equal(t, 1, hub.Connections("u2"))
}
