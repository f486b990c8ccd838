package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/pkg/notifications"
	"github.com/dmitrymomot/courier/pkg/queue"
)

func newTestMetrics() *Metrics {
	return New(prometheus.NewRegistry())
}

func TestMetrics_Delivery(t *testing.T) {
	t.Parallel()
	m := newTestMetrics()

	m.NotificationCreated(notifications.TypeMention)
	m.NotificationCreated(notifications.TypeMention)
	m.DeliveryAttempt(notifications.ChannelEmail, notifications.SourceSync, nil, 20*time.Millisecond)
	m.DeliveryAttempt(notifications.ChannelEmail, notifications.SourceSync, errors.New("down"), time.Second)
	m.DeliveryAttempt(notifications.ChannelEmail, notifications.SourceQueue, errors.New("down"), time.Second)

	assert.InDelta(t, 2, testutil.ToFloat64(m.notificationsCreated.WithLabelValues("mention")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.deliveryAttempts.WithLabelValues("email", "sync", ResultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.deliveryAttempts.WithLabelValues("email", "sync", ResultFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.deliveryAttempts.WithLabelValues("email", "queue", ResultFailure)), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.deliveryDuration))
}

func TestMetrics_Queue(t *testing.T) {
	t.Parallel()
	m := newTestMetrics()

	m.EntryTransition(notifications.ChannelPush, queue.StatusPending)
	m.EntryTransition(notifications.ChannelPush, queue.StatusSending)
	m.EntryTransition(notifications.ChannelPush, queue.StatusPending)
	m.FallbackDepth(7)

	assert.InDelta(t, 2, testutil.ToFloat64(m.queueTransitions.WithLabelValues("push", "pending")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.queueTransitions.WithLabelValues("push", "sending")), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(m.fallbackDepth), 0)
}

func TestMetrics_BreakerAndConnections(t *testing.T) {
	t.Parallel()
	m := newTestMetrics()

	m.BreakerStateChange("email", "closed", "open")
	assert.InDelta(t, 2, testutil.ToFloat64(m.breakerState.WithLabelValues("email")), 0)

	m.BreakerStateChange("email", "open", "half-open")
	assert.InDelta(t, 1, testutil.ToFloat64(m.breakerState.WithLabelValues("email")), 0)

	m.BreakerStateChange("email", "half-open", "closed")
	assert.InDelta(t, 0, testutil.ToFloat64(m.breakerState.WithLabelValues("email")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.breakerTransitions.WithLabelValues("email", "open")), 0)

	m.Connections(3)
	assert.InDelta(t, 3, testutil.ToFloat64(m.connections), 0)
}

type failingCounter struct {
	queue.Storage
}

func (failingCounter) CountByStatus(context.Context) (map[queue.Status]int, error) {
	return nil, errors.New("store down")
}

func TestQueueCollector(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := queue.NewMemoryStorage()
	now := time.Now()
	for range 3 {
		require.NoError(t, store.Insert(ctx, queue.NewEntry("u1", notifications.ChannelEmail, notifications.Payload{}, now)))
	}
	_, err := store.ClaimDue(ctx, now, 1)
	require.NoError(t, err)

	c := NewQueueCollector(store, time.Second)
	expected := `
# HELP courier_queue_entries Retry queue entries in the durable store, by status.
# TYPE courier_queue_entries gauge
courier_queue_entries{status="failed"} 0
courier_queue_entries{status="pending"} 2
courier_queue_entries{status="sending"} 1
courier_queue_entries{status="sent"} 0
# HELP courier_queue_store_up Whether the last scrape could read the durable queue store.
# TYPE courier_queue_store_up gauge
courier_queue_store_up 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))

	down := NewQueueCollector(failingCounter{}, time.Second)
	assert.Equal(t, 1, testutil.CollectAndCount(down))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()
	m := newTestMetrics()
	m.NotificationCreated(notifications.TypeSystem)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `courier_notifications_created_total{type="system"} 1`)
}

func TestNew_DefaultRegistry(t *testing.T) {
	t.Parallel()
	m := New(nil)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}
