package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/internal/worker/core"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, rueidis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return mr, client
}

func TestMonitor_ReportStatus(t *testing.T) {
	t.Parallel()

	mr, client := newTestClient(t)
	monitor := core.NewMonitor(client, zap.NewNop())

	status := core.Status{
		WorkerID:    "worker-1",
		WorkerType:  "sweep",
		CurrentTask: "Lifting expired cases",
		Progress:    40,
		IsHealthy:   true,
	}
	require.NoError(t, monitor.ReportStatus(context.Background(), status))

	data, err := mr.Get("worker:sweep:worker-1")
	require.NoError(t, err)

	var stored core.Status
	require.NoError(t, sonic.Unmarshal([]byte(data), &stored))
	assert.Equal(t, "Lifting expired cases", stored.CurrentTask)
	assert.Equal(t, 40, stored.Progress)
	assert.True(t, stored.IsHealthy)
	assert.WithinDuration(t, time.Now(), stored.LastSeen, 5*time.Second)

	// The key expires so dead workers disappear
	ttl := mr.TTL("worker:sweep:worker-1")
	assert.Greater(t, ttl, time.Duration(0))
}

func TestStatus_IsStale(t *testing.T) {
	t.Parallel()

	fresh := core.Status{LastSeen: time.Now()}
	assert.False(t, fresh.IsStale())

	quiet := core.Status{LastSeen: time.Now().Add(-2 * time.Minute)}
	assert.True(t, quiet.IsStale())
}

func TestMonitor_GetAllStatuses(t *testing.T) {
	t.Parallel()

	_, client := newTestClient(t)
	monitor := core.NewMonitor(client, zap.NewNop())

	require.NoError(t, monitor.ReportStatus(context.Background(), core.Status{
		WorkerID: "a", WorkerType: "sweep", IsHealthy: true,
	}))
	require.NoError(t, monitor.ReportStatus(context.Background(), core.Status{
		WorkerID: "b", WorkerType: "sweep", IsHealthy: false,
	}))

	statuses, err := monitor.GetAllStatuses(context.Background())
	require.NoError(t, err)
	assert.Len(t, statuses, 2)
}

func TestStatusReporter_Heartbeat(t *testing.T) {
	t.Parallel()

	mr, client := newTestClient(t)
	reporter := core.NewStatusReporter(client, "sweep", zap.NewNop())

	reporter.UpdateStatus("Starting", 0)
	reporter.Start(context.Background())

	defer reporter.Stop()

	key := "worker:sweep:" + reporter.GetWorkerID()

	// The initial report lands without waiting for a tick
	require.Eventually(t, func() bool {
		return mr.Exists(key)
	}, 2*time.Second, 10*time.Millisecond)

	data, err := mr.Get(key)
	require.NoError(t, err)

	var stored core.Status
	require.NoError(t, sonic.Unmarshal([]byte(data), &stored))
	assert.Equal(t, "sweep", stored.WorkerType)
	assert.Equal(t, reporter.GetWorkerID(), stored.WorkerID)
	assert.True(t, stored.IsHealthy)
}

func TestStatusReporter_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	_, client := newTestClient(t)
	reporter := core.NewStatusReporter(client, "sweep", zap.NewNop())

	reporter.Start(context.Background())
	reporter.Stop()
	reporter.Stop()
}
