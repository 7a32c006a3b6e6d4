// Package simulator generates synthetic sensor events for local
// development and pilot rehearsal. It never touches a real transport;
// it writes straight into the store, the same shortcut the ingestion
// layer itself would take for an in-process publish.
package simulator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/store"
)

// routineBlock is one recurring activity window in the elder's normal day.
type routineBlock struct {
	startHour, endHour int
	channel, sensorID  string
	minCount, maxCount int
}

// normalRoutine is the daily template a healthy resident follows.
var normalRoutine = []routineBlock{
	{7, 8, "bathroom", "bathroom_door", 2, 4},
	{7, 9, "presence", "kitchen_motion", 4, 8},
	{8, 9, "fridge", "fridge_door", 2, 4},
	{9, 12, "presence", "kitchen_motion", 6, 12},
	{12, 13, "presence", "kitchen_motion", 3, 6},
	{12, 13, "fridge", "fridge_door", 2, 3},
	{12, 13, "bathroom", "bathroom_door", 1, 2},
	{14, 16, "presence", "kitchen_motion", 2, 5},
	{17, 18, "presence", "kitchen_motion", 3, 6},
	{17, 18, "fridge", "fridge_door", 2, 4},
	{19, 21, "presence", "kitchen_motion", 4, 8},
	{19, 20, "door", "front_door", 0, 2},
	{21, 22, "bathroom", "bathroom_door", 1, 3},
}

var triggerValues = map[string]string{
	"presence": "on",
	"fridge":   "open",
	"bathroom": "open",
	"door":     "open",
}

// AnomalyType names one of the anomaly days the pilot scenario injects.
type AnomalyType string

const (
	LowActivity AnomalyType = "low_activity"
	NoFridge    AnomalyType = "no_fridge"
	LateWake    AnomalyType = "late_wake"
	NoBathroom  AnomalyType = "no_bathroom"
)

func (a AnomalyType) valid() bool {
	switch a {
	case LowActivity, NoFridge, LateWake, NoBathroom:
		return true
	}
	return false
}

// Simulator writes deterministic synthetic event days into a store. A
// fixed seed makes a run fully repeatable.
type Simulator struct {
	s   *store.Store
	rng *rand.Rand
}

// New builds a Simulator backed by s. A seed of 0 still seeds the
// generator (rand.NewSource(0) is a valid, repeatable source).
func New(s *store.Store, seed int64) *Simulator {
	return &Simulator{s: s, rng: rand.New(rand.NewSource(seed))}
}

// GenerateNormalDay writes one full day of routine-following events for
// date ("YYYY-MM-DD") and returns how many were written.
func (sim *Simulator) GenerateNormalDay(date string) (int, error) {
	events := sim.buildNormalEvents(date)
	if err := sim.s.InsertEventsBatch(events); err != nil {
		return 0, fmt.Errorf("simulator: normal day: %w", err)
	}
	return len(events), nil
}

// GenerateAnomalyDay writes one day shaped by anomalyType.
func (sim *Simulator) GenerateAnomalyDay(date string, anomalyType AnomalyType) (int, error) {
	if !anomalyType.valid() {
		return 0, fmt.Errorf("simulator: invalid anomaly type %q", anomalyType)
	}

	var events []store.SensorEvent
	switch anomalyType {
	case LowActivity:
		events = sim.buildLowActivityEvents(date)
	case NoFridge:
		events = sim.buildFilteredEvents(date, "fridge")
	case NoBathroom:
		events = sim.buildFilteredEvents(date, "bathroom")
	case LateWake:
		events = sim.buildLateWakeEvents(date)
	}

	if err := sim.s.InsertEventsBatch(events); err != nil {
		return 0, fmt.Errorf("simulator: anomaly day: %w", err)
	}
	return len(events), nil
}

// PilotResult summarizes a full run_pilot_simulation-style scenario.
type PilotResult struct {
	TotalEvents int
	AnomalyDate string
	AnomalyType AnomalyType
	Dates       []string
}

// pilotAnomalyDayIndex is the 0-indexed day (the 18th calendar day) the
// pilot scenario injects its single anomaly on.
const pilotAnomalyDayIndex = 17

// RunPilotSimulation writes the full pilot rehearsal: days of normal
// routine with a single low_activity anomaly injected on day 18.
func (sim *Simulator) RunPilotSimulation(startDate string, days int) (PilotResult, error) {
	base, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return PilotResult{}, fmt.Errorf("simulator: parse start date: %w", err)
	}

	result := PilotResult{AnomalyType: LowActivity}
	for i := 0; i < days; i++ {
		date := base.AddDate(0, 0, i).Format("2006-01-02")
		result.Dates = append(result.Dates, date)

		var count int
		if i == pilotAnomalyDayIndex {
			count, err = sim.GenerateAnomalyDay(date, LowActivity)
			result.AnomalyDate = date
		} else {
			count, err = sim.GenerateNormalDay(date)
		}
		if err != nil {
			return PilotResult{}, err
		}
		result.TotalEvents += count
	}
	return result, nil
}

func (sim *Simulator) buildNormalEvents(date string) []store.SensorEvent {
	var events []store.SensorEvent
	for _, block := range normalRoutine {
		count := sim.randInt(block.minCount, block.maxCount)
		value := triggerValues[block.channel]
		for i := 0; i < count; i++ {
			ts := sim.randomTimestamp(date, block.startHour, block.endHour)
			events = append(events, store.SensorEvent{
				Timestamp: ts, SensorID: block.sensorID, Channel: block.channel, Value: value,
			})
		}
	}
	return events
}

// buildLowActivityEvents writes a sparse handful of daytime presence
// events, roughly a tenth of a normal day's activity.
func (sim *Simulator) buildLowActivityEvents(date string) []store.SensorEvent {
	count := sim.randInt(3, 5)
	events := make([]store.SensorEvent, 0, count)
	for i := 0; i < count; i++ {
		ts := sim.randomTimestamp(date, 10, 16)
		events = append(events, store.SensorEvent{
			Timestamp: ts, SensorID: "kitchen_motion", Channel: "presence", Value: "on",
		})
	}
	return events
}

func (sim *Simulator) buildFilteredEvents(date, excludeChannel string) []store.SensorEvent {
	all := sim.buildNormalEvents(date)
	events := make([]store.SensorEvent, 0, len(all))
	for _, e := range all {
		if e.Channel != excludeChannel {
			events = append(events, e)
		}
	}
	return events
}

// buildLateWakeEvents writes no event before 11:00: routine blocks that
// end by 11:00 are skipped, and a block that starts earlier is clipped
// to start at 11:00 while keeping its full event count.
func (sim *Simulator) buildLateWakeEvents(date string) []store.SensorEvent {
	var events []store.SensorEvent
	for _, block := range normalRoutine {
		startHour := block.startHour
		if startHour < 11 {
			startHour = 11
		}
		if startHour >= block.endHour {
			continue
		}
		count := sim.randInt(block.minCount, block.maxCount)
		value := triggerValues[block.channel]
		for i := 0; i < count; i++ {
			ts := sim.randomTimestamp(date, startHour, block.endHour)
			events = append(events, store.SensorEvent{
				Timestamp: ts, SensorID: block.sensorID, Channel: block.channel, Value: value,
			})
		}
	}
	return events
}

// randInt returns a value in [min, max], inclusive.
func (sim *Simulator) randInt(min, max int) int {
	if max <= min {
		return min
	}
	return min + sim.rng.Intn(max-min+1)
}

// randomTimestamp returns a random ISO timestamp within [startHour,
// endHour) on date.
func (sim *Simulator) randomTimestamp(date string, startHour, endHour int) string {
	base, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date + "T00:00:00"
	}
	start := base.Add(time.Duration(startHour) * time.Hour)
	end := base.Add(time.Duration(endHour) * time.Hour)
	deltaSeconds := int(end.Sub(start).Seconds())
	if deltaSeconds <= 0 {
		return start.Format("2006-01-02T15:04:05")
	}
	offset := sim.rng.Intn(deltaSeconds)
	return start.Add(time.Duration(offset) * time.Second).Format("2006-01-02T15:04:05")
}
