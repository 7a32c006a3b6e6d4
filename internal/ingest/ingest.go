// Package ingest normalizes raw sensor payloads into sensor_events rows.
// It is the one place in the daemon that talks about wire formats
// (plain strings or small JSON objects) coming off the MQTT broker; the
// broker connection itself is an external collaborator outside this
// module's scope.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/config"
	"github.com/BBBoring2025/annem-guvende/internal/logger"
	"github.com/BBBoring2025/annem-guvende/internal/store"
)

const (
	debounceWindow  = 30 * time.Second
	staleAfter      = time.Hour
	cleanupEveryN   = 100
	isoLayout       = "2006-01-02T15:04:05"
	bathroomChannel = "bathroom"
)

// Processor turns raw broker payloads into persisted sensor_events rows,
// applying a per-sensor debounce window and tracking battery-low state.
// Safe for concurrent use by multiple MQTT subscriber callbacks.
type Processor struct {
	mu sync.Mutex

	lastEvent      map[string]time.Time
	batteryWarned  map[string]bool
	processedCount int
}

// NewProcessor returns a ready-to-use Processor.
func NewProcessor() *Processor {
	return &Processor{
		lastEvent:     make(map[string]time.Time),
		batteryWarned: make(map[string]bool),
	}
}

// parsedReading is the result of decoding one raw payload: whether the
// sensor is reporting its "triggered" state, and the value string to
// persist alongside the event.
type parsedReading struct {
	active bool
	value  string
}

// ParsePayload decodes a raw MQTT payload for one sensor, returning
// (reading, true) on success or (zero, false) when the payload is
// unrecognised. JSON payloads are tried first (Zigbee2MQTT's native
// shape), falling back to a bare on/off or open/closed string.
func ParsePayload(sensorType, triggerValue string, raw []byte) (parsedReading, bool) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return parsedReading{}, false
	}

	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		var data map[string]any
		if err := json.Unmarshal([]byte(text), &data); err == nil {
			if r, ok := parseJSONPayload(data, sensorType, triggerValue); ok {
				return r, true
			}
			return parsedReading{}, false
		}
	}

	return parseStringPayload(text, sensorType, triggerValue)
}

func parseJSONPayload(data map[string]any, sensorType, triggerValue string) (parsedReading, bool) {
	switch sensorType {
	case "motion":
		if v, ok := data["occupancy"]; ok {
			active := truthy(v)
			value := "off"
			if active {
				value = "on"
			}
			return parsedReading{active: active, value: value}, true
		}
	case "contact":
		if v, ok := data["contact"]; ok {
			// Zigbee2MQTT reports contact=false when the sensor pair is
			// separated, i.e. the door/window is open.
			contact := truthy(v)
			isOpen := !contact
			if triggerValue == "open" {
				value := "closed"
				if isOpen {
					value = "open"
				}
				return parsedReading{active: isOpen, value: value}, true
			}
			value := "open"
			if contact {
				value = "closed"
			}
			return parsedReading{active: contact, value: value}, true
		}
	}
	return parsedReading{}, false
}

func parseStringPayload(text, sensorType, triggerValue string) (parsedReading, bool) {
	lower := strings.ToLower(text)

	switch sensorType {
	case "motion":
		switch lower {
		case "on", "true":
			return parsedReading{active: true, value: "on"}, true
		case "off", "false":
			return parsedReading{active: false, value: "off"}, true
		}
	case "contact":
		switch lower {
		case "open":
			return parsedReading{active: triggerValue == "open", value: "open"}, true
		case "closed":
			return parsedReading{active: triggerValue != "open", value: "closed"}, true
		}
	}
	return parsedReading{}, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0" && strings.ToLower(t) != "false"
	default:
		return false
	}
}

// Process runs the full pipeline for one reading: battery check, parse,
// debounce, then persist. It also maintains the last_bathroom_time
// system_state key that the fall-suspicion real-time check reads: any
// accepted bathroom event sets it, any accepted event on another channel
// clears it.
//
// Returns (accepted, warning, err). accepted is false when the payload
// was unrecognised or filtered by debounce — not an error, just nothing
// to do. warning is non-nil independently of accepted: a sensor can
// report a state change and a low battery in the same payload.
func (p *Processor) Process(s *store.Store, sensor config.Sensor, raw []byte, now time.Time) (bool, *BatteryWarning, error) {
	p.mu.Lock()
	p.processedCount++
	if p.processedCount%cleanupEveryN == 0 {
		p.cleanupStaleLocked(now)
	}
	p.mu.Unlock()

	var warning *BatteryWarning
	if w, ok := p.CheckBattery(sensor.ID, raw); ok {
		warning = &w
	}

	reading, ok := ParsePayload(sensor.Type, sensor.TriggerValue, raw)
	if !ok {
		return false, warning, nil
	}
	if !reading.active {
		return false, warning, nil
	}

	if p.isDebounced(sensor.ID, now) {
		return false, warning, nil
	}
	p.recordEvent(sensor.ID, now)

	event := store.SensorEvent{
		Timestamp: now.Format(isoLayout),
		SensorID:  sensor.ID,
		Channel:   sensor.Channel,
		EventType: "state_change",
		Value:     reading.value,
	}
	if err := s.InsertEvent(event); err != nil {
		return false, warning, fmt.Errorf("ingest: persist event: %w", err)
	}

	if sensor.Channel == bathroomChannel {
		if err := s.SetState("last_bathroom_time", event.Timestamp); err != nil {
			return false, warning, fmt.Errorf("ingest: set last_bathroom_time: %w", err)
		}
	} else {
		if err := s.SetState("last_bathroom_time", ""); err != nil {
			return false, warning, fmt.Errorf("ingest: clear last_bathroom_time: %w", err)
		}
	}

	return true, warning, nil
}

func (p *Processor) isDebounced(sensorID string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastEvent[sensorID]
	if !ok {
		return false
	}
	return now.Sub(last) < debounceWindow
}

func (p *Processor) recordEvent(sensorID string, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastEvent[sensorID] = now
}

func (p *Processor) cleanupStaleLocked(now time.Time) {
	cutoff := now.Add(-staleAfter)
	for id, ts := range p.lastEvent {
		if ts.Before(cutoff) {
			delete(p.lastEvent, id)
		}
	}
}

// BatteryWarning is returned by CheckBattery when a sensor's battery has
// dropped to or below the low-battery threshold for the first time since
// last recharging past it.
type BatteryWarning struct {
	SensorID string
	Battery  int
}

// CheckBattery inspects a raw payload for a "battery" field (0-100) and
// returns a warning the first time it drops to 10% or below. The warning
// flag resets once the battery reports above 20%, so a replaced battery
// re-arms the check instead of staying permanently silenced.
func (p *Processor) CheckBattery(sensorID string, raw []byte) (BatteryWarning, bool) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return BatteryWarning{}, false
	}

	rawBattery, ok := data["battery"]
	if !ok {
		return BatteryWarning{}, false
	}
	battery, ok := toInt(rawBattery)
	if !ok {
		return BatteryWarning{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if battery > 20 {
		p.batteryWarned[sensorID] = false
		return BatteryWarning{}, false
	}

	if battery <= 10 && !p.batteryWarned[sensorID] {
		p.batteryWarned[sensorID] = true
		logger.Warn("Ingest", fmt.Sprintf("low battery: %s at %d%%", sensorID, battery))
		return BatteryWarning{SensorID: sensorID, Battery: battery}, true
	}
	return BatteryWarning{}, false
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(t)
		return n, err == nil
	default:
		return 0, false
	}
}
