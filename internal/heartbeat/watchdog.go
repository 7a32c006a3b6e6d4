package heartbeat

import (
	"fmt"
	"strings"
)

const (
	diskWarningPercent = 90.0
	ramWarningPercent  = 85.0
	dbSizeWarningMB    = 500.0
)

// HealthCheck is the outcome of one watchdog probe.
type HealthCheck struct {
	Name    string
	Healthy bool
	Message string
}

// HealthStatus is the full watchdog result for one sample.
type HealthStatus struct {
	Checks []HealthCheck
}

// AllHealthy reports whether every check passed.
func (h HealthStatus) AllHealthy() bool {
	for _, c := range h.Checks {
		if !c.Healthy {
			return false
		}
	}
	return true
}

// Warnings returns the subset of checks that failed.
func (h HealthStatus) Warnings() []HealthCheck {
	var out []HealthCheck
	for _, c := range h.Checks {
		if !c.Healthy {
			out = append(out, c)
		}
	}
	return out
}

func checkDiskUsage(m Metrics) HealthCheck {
	if m.DiskPercent >= diskWarningPercent {
		return HealthCheck{"disk", false, fmt.Sprintf("Disk usage is very high: %.0f%%", m.DiskPercent)}
	}
	return HealthCheck{"disk", true, fmt.Sprintf("Disk usage normal: %.0f%%", m.DiskPercent)}
}

func checkRAMUsage(m Metrics) HealthCheck {
	if m.MemoryPercent >= ramWarningPercent {
		return HealthCheck{"ram", false, fmt.Sprintf("Memory usage is very high: %.0f%%", m.MemoryPercent)}
	}
	return HealthCheck{"ram", true, fmt.Sprintf("Memory usage normal: %.0f%%", m.MemoryPercent)}
}

func checkMQTTStatus(mqttConnected bool) HealthCheck {
	if !mqttConnected {
		return HealthCheck{"mqtt", false, "MQTT connection is down!"}
	}
	return HealthCheck{"mqtt", true, "MQTT connection active."}
}

func checkDBHealth(dbSizeMB float64) HealthCheck {
	if dbSizeMB >= dbSizeWarningMB {
		return HealthCheck{"database", false, fmt.Sprintf("Database is very large: %.1f MB", dbSizeMB)}
	}
	return HealthCheck{"database", true, fmt.Sprintf("Database size normal: %.1f MB", dbSizeMB)}
}

// RunHealthChecks evaluates every probe against one Metrics sample.
func RunHealthChecks(m Metrics, mqttConnected bool) HealthStatus {
	return HealthStatus{
		Checks: []HealthCheck{
			checkDiskUsage(m),
			checkRAMUsage(m),
			checkMQTTStatus(mqttConnected),
			checkDBHealth(m.DBSizeMB),
		},
	}
}

// FormatWatchdogAlert renders a warning message for every failed check,
// or "" when the system is fully healthy.
func FormatWatchdogAlert(status HealthStatus) string {
	warnings := status.Warnings()
	if len(warnings) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("System Health Warning\n\n")

	hasMQTTWarning := false
	for _, w := range warnings {
		fmt.Fprintf(&b, "! %s\n", w.Message)
		if w.Name == "mqtt" {
			hasMQTTWarning = true
		}
	}

	if hasMQTTWarning {
		b.WriteString("\nThis could also be caused by an internet outage.\n")
	}
	b.WriteString("\nPlease check the system.")

	return b.String()
}
