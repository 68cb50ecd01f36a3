package workers

import (
	"context"
	"log/slog"
	"os"
	"time"
	"tipster-chat/contract"
	"tipster-chat/domain"
	"tipster-chat/observability"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/process"
)

const defaultHeartbeatInterval = 30 * time.Second

// Heartbeat is one snapshot of the process health and room occupancy.
type Heartbeat struct {
	Pid        int32
	Status     string
	CpuPercent float64
	RamBytes   uint64
	Members    map[domain.RoomID]int
	Stats      observability.MonitoringStats
}

type HeartbeatWorker struct {
	log        *slog.Logger
	registry   contract.IRegistry
	monitoring *observability.MonitoringManager
	interval   time.Duration
}

// NewHeartbeatWorker reports process health and room occupancy. monitoring may be nil.
func NewHeartbeatWorker(
	log *slog.Logger,
	registry contract.IRegistry,
	monitoring *observability.MonitoringManager,
	interval time.Duration) *HeartbeatWorker {
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}
	return &HeartbeatWorker{log: log, registry: registry, monitoring: monitoring, interval: interval}
}

// Run logs a heartbeat every interval until the context is canceled.
func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			beat, err := w.Collect(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "error", err)
				continue
			}
			w.log.Info("Heartbeat",
				"pid", beat.Pid,
				"status", beat.Status,
				"cpu_percent", beat.CpuPercent,
				"ram_bytes", beat.RamBytes,
				"members", beat.Members,
				"broadcast", beat.Stats.MessagesBroadcast,
				"rejected", beat.Stats.MessagesRejected,
				"store_failures", beat.Stats.StoreFailures,
				"dropped", beat.Stats.PayloadsDropped)
		}
	}
}

// Collect reads memory, CPU and OS status of the process, the member count of every room and the chat counters.
func (w *HeartbeatWorker) Collect(p *process.Process) (Heartbeat, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return Heartbeat{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return Heartbeat{}, err
	}
	status, err := p.Status()
	if err != nil {
		return Heartbeat{}, err
	}
	members := lo.SliceToMap(w.registry.Rooms(), func(r domain.Room) (domain.RoomID, int) {
		return r.ID, len(w.registry.Members(r.ID))
	})
	return Heartbeat{
		Pid:        p.Pid,
		Status:     status,
		CpuPercent: cpuPercent,
		RamBytes:   memInfo.RSS,
		Members:    members,
		Stats:      w.monitoring.GetLatest(),
	}, nil
}
