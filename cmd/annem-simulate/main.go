// Command annem-simulate writes a synthetic pilot rehearsal into the
// daemon's store, the Go counterpart of the original
// src/simulator/__main__.py script: days of routine-following events
// with a single injected anomaly, useful for exercising the learner and
// alerting pipeline without waiting on real sensors.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/alerting"
	"github.com/BBBoring2025/annem-guvende/internal/config"
	"github.com/BBBoring2025/annem-guvende/internal/ingest"
	"github.com/BBBoring2025/annem-guvende/internal/logger"
	"github.com/BBBoring2025/annem-guvende/internal/messenger"
	"github.com/BBBoring2025/annem-guvende/internal/simulator"
	"github.com/BBBoring2025/annem-guvende/internal/store"
)

func main() {
	start := flag.String("start", time.Now().AddDate(0, 0, -30).Format("2006-01-02"), "first simulated date (YYYY-MM-DD)")
	days := flag.Int("days", 30, "number of days to simulate; the pilot anomaly lands on day 18")
	seed := flag.Int64("seed", 1, "deterministic RNG seed")
	dbPath := flag.String("db", "", "sqlite path to write synthetic events into (defaults to config's database.path)")
	flag.Parse()

	logger.Banner("simulate")

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("Simulate", fmt.Sprintf("load config: %v", err))
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("Simulate", fmt.Sprintf("open store: %v", err))
		os.Exit(1)
	}
	defer s.Close()

	sim := simulator.New(s, *seed)

	logger.Section("Pilot rehearsal")
	result, err := sim.RunPilotSimulation(*start, *days)
	if err != nil {
		logger.Error("Simulate", fmt.Sprintf("run pilot: %v", err))
		os.Exit(1)
	}
	logger.Stats("days simulated", len(result.Dates))
	logger.Stats("events written", result.TotalEvents)
	logger.Info("Simulate", fmt.Sprintf("anomaly day: %s (%s)", result.AnomalyDate, result.AnomalyType))

	simulateBatteryDrain(s, cfg)
}

// simulateBatteryDrain feeds a synthetic low-battery payload for a
// configured sensor through the real ingestion pipeline so a rehearsal
// run also exercises the low-battery notice path end to end.
func simulateBatteryDrain(s *store.Store, cfg *config.Config) {
	sensor := config.Sensor{ID: "kitchen_motion", Channel: "presence", Type: "motion"}
	if len(cfg.Sensors) > 0 {
		sensor = cfg.Sensors[0]
	}

	p := ingest.NewProcessor()
	n := messenger.New(cfg.Messenger)

	_, warning, err := p.Process(s, sensor, []byte(`{"occupancy": false, "battery": 8}`), time.Now())
	if err != nil {
		logger.Error("Simulate", fmt.Sprintf("battery drain check: %v", err))
		return
	}
	if warning == nil {
		return
	}

	text := alerting.RenderBatteryWarning(warning.SensorID, warning.Battery)
	logger.Warn("Simulate", text)
	n.SendToAll(text)
}
