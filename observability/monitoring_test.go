package observability

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestMonitoringManager_Counters(t *testing.T) {
	req := require.New(t)
	mm := NewMonitoringManager(logs.GetLoggerFromLevel(slog.LevelDebug))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mm.IncrBroadcast()
			mm.IncrDropped()
		}()
	}
	wg.Wait()
	mm.IncrRejected()
	mm.IncrStoreFailure()

	stats := mm.GetLatest()
	req.Equal(uint64(50), stats.MessagesBroadcast)
	req.Equal(uint64(50), stats.PayloadsDropped)
	req.Equal(uint64(1), stats.MessagesRejected)
	req.Equal(uint64(1), stats.StoreFailures)
}

func TestMonitoringManager_Nil_Is_Safe(t *testing.T) {
	var mm *MonitoringManager
	mm.IncrBroadcast()
	mm.IncrRejected()
	require.Equal(t, MonitoringStats{}, mm.GetLatest())
}
