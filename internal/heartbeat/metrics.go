// Package heartbeat collects system-health metrics and reports them to
// an external dead-man's-switch endpoint, and separately watches for
// degraded conditions worth an in-band warning.
package heartbeat

import (
	"fmt"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/store"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// Metrics is one sample of process/host health, the common payload
// shared by the outbound heartbeat POST and the in-band watchdog check.
type Metrics struct {
	CPUPercent          float64
	MemoryPercent       float64
	DiskPercent         float64
	DBSizeMB            float64
	LastEventAgeMinutes float64
	HasRecentEvent      bool
	TodayEventCount     int
	UptimeSeconds       float64
}

const isoLayout = "2006-01-02T15:04:05"

// Collect gathers a fresh Metrics sample. dbSizeBytes comes from the
// caller since stat'ing the database path is outside this package's
// concern.
func Collect(s *store.Store, dbSizeBytes int64, now time.Time) (Metrics, error) {
	m := Metrics{DBSizeMB: float64(dbSizeBytes) / (1024 * 1024)}

	cpuPercents, err := cpu.Percent(0, false)
	if err == nil && len(cpuPercents) > 0 {
		m.CPUPercent = cpuPercents[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		m.MemoryPercent = vm.UsedPercent
	}

	if du, err := disk.Usage("/"); err == nil {
		m.DiskPercent = du.UsedPercent
	}

	if bootTime, err := host.BootTime(); err == nil {
		m.UptimeSeconds = now.Sub(time.Unix(int64(bootTime), 0)).Seconds()
	}

	todayStart := now.Format("2006-01-02") + "T00:00:00"
	count, err := s.TotalEventsSince(todayStart, now.Format(isoLayout))
	if err != nil {
		return Metrics{}, fmt.Errorf("heartbeat: today event count: %w", err)
	}
	m.TodayEventCount = count

	lastTS, err := s.LastEventTimestamp(todayStart)
	if err != nil {
		return Metrics{}, fmt.Errorf("heartbeat: last event timestamp: %w", err)
	}
	if lastTS != "" {
		if lastEvent, err := time.ParseInLocation(isoLayout, lastTS, now.Location()); err == nil {
			age := now.Sub(lastEvent).Minutes()
			if age < 0 {
				age = 0
			}
			m.LastEventAgeMinutes = age
			m.HasRecentEvent = true
		}
	}

	return m, nil
}
