package heartbeat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/config"
	"github.com/BBBoring2025/annem-guvende/internal/logger"
)

// Client POSTs a periodic heartbeat to an external VPS watchdog. It is
// disabled unless heartbeat.enabled is set and a URL is configured; a
// disabled client sends nothing, matching the messenger's
// empty-token-disables convention.
type Client struct {
	http     *http.Client
	url      string
	deviceID string
	enabled  bool
}

// NewClient builds a Client from the heartbeat config section.
func NewClient(cfg config.Heartbeat) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        5,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     60 * time.Second,
	}
	c := &Client{
		http:     &http.Client{Timeout: 10 * time.Second, Transport: transport},
		url:      cfg.URL,
		deviceID: cfg.DeviceID,
		enabled:  cfg.Enabled && cfg.URL != "",
	}
	if !c.enabled {
		logger.Info("Heartbeat", "disabled (not enabled or no url configured)")
	}
	return c
}

// Enabled reports whether this client will actually send anything.
func (c *Client) Enabled() bool {
	return c.enabled
}

type payload struct {
	DeviceID      string         `json:"device_id"`
	Timestamp     string         `json:"timestamp"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	System        payloadSystem  `json:"system"`
	Services      payloadService `json:"services"`
}

type payloadSystem struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`
}

type payloadService struct {
	DBSizeMB            float64  `json:"db_size_mb"`
	LastEventMinutesAgo *float64 `json:"last_event_minutes_ago"`
	TodayEventCount     int      `json:"today_event_count"`
}

// Send posts one Metrics sample to the configured endpoint. Returns
// false on any transport error, non-200 response, or when disabled.
func (c *Client) Send(m Metrics, now time.Time) bool {
	if !c.enabled {
		return false
	}

	body := payload{
		DeviceID:      c.deviceID,
		Timestamp:     now.UTC().Format(time.RFC3339),
		UptimeSeconds: m.UptimeSeconds,
		System: payloadSystem{
			CPUPercent:    m.CPUPercent,
			MemoryPercent: m.MemoryPercent,
			DiskPercent:   m.DiskPercent,
		},
		Services: payloadService{
			DBSizeMB:        m.DBSizeMB,
			TodayEventCount: m.TodayEventCount,
		},
	}
	if m.HasRecentEvent {
		age := m.LastEventAgeMinutes
		body.Services.LastEventMinutesAgo = &age
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		logger.Error("Heartbeat", fmt.Sprintf("encode payload: %v", err))
		return false
	}

	resp, err := c.http.Post(c.url, "application/json", bytes.NewReader(encoded))
	if err != nil {
		logger.Error("Heartbeat", fmt.Sprintf("send: %v", err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Error("Heartbeat", fmt.Sprintf("status=%d", resp.StatusCode))
		return false
	}
	return true
}
