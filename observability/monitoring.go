// Package observability keeps live counters of the chat, reported by the heartbeat.
package observability

import (
	"log/slog"
	"runtime"
	"sync/atomic"
)

// MonitoringStats is a snapshot of the counters and of the Go runtime memory.
type MonitoringStats struct {
	MessagesBroadcast uint64 `json:"messages_broadcast"`
	MessagesRejected  uint64 `json:"messages_rejected"`
	StoreFailures     uint64 `json:"store_failures"`
	PayloadsDropped   uint64 `json:"payloads_dropped"`
	AllocMemMb        uint64 `json:"alloc_mem_mb"`
	NumGC             uint32 `json:"num_gc"`
}

// MonitoringManager counts what happens to messages.
// Every method is safe on a nil manager, nothing is counted then.
type MonitoringManager struct {
	log               *slog.Logger
	messagesBroadcast atomic.Uint64
	messagesRejected  atomic.Uint64
	storeFailures     atomic.Uint64
	payloadsDropped   atomic.Uint64
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{log: log}
}

func (mm *MonitoringManager) IncrBroadcast() {
	if mm != nil {
		mm.messagesBroadcast.Add(1)
	}
}

// IncrRejected counts messages refused before persistence (too long, invalid room, empty).
func (mm *MonitoringManager) IncrRejected() {
	if mm != nil {
		mm.messagesRejected.Add(1)
	}
}

func (mm *MonitoringManager) IncrStoreFailure() {
	if mm != nil {
		mm.storeFailures.Add(1)
	}
}

// IncrDropped counts payloads lost on a full connection buffer.
func (mm *MonitoringManager) IncrDropped() {
	if mm != nil {
		mm.payloadsDropped.Add(1)
	}
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	if mm == nil {
		return MonitoringStats{}
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MonitoringStats{
		MessagesBroadcast: mm.messagesBroadcast.Load(),
		MessagesRejected:  mm.messagesRejected.Load(),
		StoreFailures:     mm.storeFailures.Load(),
		PayloadsDropped:   mm.payloadsDropped.Load(),
		AllocMemMb:        m.Alloc / 1024 / 1024,
		NumGC:             m.NumGC,
	}
}
