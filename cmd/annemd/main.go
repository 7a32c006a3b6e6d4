package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BBBoring2025/annem-guvende/internal/alerting"
	"github.com/BBBoring2025/annem-guvende/internal/config"
	"github.com/BBBoring2025/annem-guvende/internal/heartbeat"
	"github.com/BBBoring2025/annem-guvende/internal/learner"
	"github.com/BBBoring2025/annem-guvende/internal/logger"
	"github.com/BBBoring2025/annem-guvende/internal/messenger"
	"github.com/BBBoring2025/annem-guvende/internal/realtime"
	"github.com/BBBoring2025/annem-guvende/internal/scheduler"
	"github.com/BBBoring2025/annem-guvende/internal/scorer"
	"github.com/BBBoring2025/annem-guvende/internal/slotagg"
	"github.com/BBBoring2025/annem-guvende/internal/store"
	"github.com/BBBoring2025/annem-guvende/internal/trend"
)

var version = "dev"

const pendingAlertRetentionDays = 30

func main() {
	logger.Banner(version)

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("Config", fmt.Sprintf("load: %v", err))
		os.Exit(1)
	}

	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("Store", fmt.Sprintf("open: %v", err))
		os.Exit(1)
	}
	defer s.Close()

	logger.Section("Startup")
	logger.Stats("sensors configured", len(cfg.Sensors))
	logger.Stats("channels", len(cfg.Channels()))
	logger.Stats("chat recipients", len(cfg.Messenger.ChatIDs))

	notifier := messenger.New(cfg.Messenger)
	heartbeatClient := heartbeat.NewClient(cfg.Heartbeat)
	manager := alerting.New(s, notifier, cfg)

	sched := buildScheduler(s, notifier, heartbeatClient, manager, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		sched.Run(groupCtx)
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("Daemon", fmt.Sprintf("fatal: %v", err))
		os.Exit(1)
	}
	logger.Info("Daemon", "stopped")
}

// buildScheduler registers every wall-clock job the daemon runs, mirroring
// the original job table: slot aggregation on the quarter hour, nightly
// learning and scoring, real-time silence checks twice an hour, a 22:00
// digest, a 2-minute escalation sweep, nightly maintenance, the weekly
// fragility report, inbound command polling, and the outbound heartbeat.
func buildScheduler(s *store.Store, n *messenger.Notifier, hb *heartbeat.Client, mgr *alerting.Manager, cfg *config.Config) *scheduler.Scheduler {
	sched := scheduler.New()
	channels := cfg.Channels()

	sched.Register(&scheduler.Job{
		ID:      "slot_aggregation",
		Trigger: scheduler.AtMinutes(0, 15, 30, 45),
		Run: func(_ context.Context, now time.Time) error {
			return slotagg.AggregateCurrentSlot(s, channels, now.Add(-time.Minute))
		},
	})

	sched.Register(&scheduler.Job{
		ID:      "fill_yesterday_slots",
		Trigger: scheduler.AtTime(0, 5),
		Run: func(_ context.Context, now time.Time) error {
			yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
			return slotagg.FillMissingSlots(s, yesterday, channels)
		},
	})

	sched.Register(&scheduler.Job{
		ID:      "daily_learning",
		Trigger: scheduler.AtTime(0, 15),
		Run: func(_ context.Context, now time.Time) error {
			if vacation, err := s.IsVacationMode(cfg.System.VacationMode); err != nil {
				return err
			} else if vacation {
				logger.Info("Scheduler", "vacation mode active - skipping daily learning")
				return nil
			}
			yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
			return learner.Run(s, cfg, yesterday)
		},
	})

	sched.Register(&scheduler.Job{
		ID:      "daily_scoring",
		Trigger: scheduler.AtTime(0, 20),
		Run: func(_ context.Context, now time.Time) error {
			if vacation, err := s.IsVacationMode(cfg.System.VacationMode); err != nil {
				return err
			} else if vacation {
				logger.Info("Scheduler", "vacation mode active - skipping daily scoring")
				return nil
			}
			yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
			if _, err := scorer.ScoreDay(s, cfg, yesterday); err != nil {
				return err
			}
			if err := mgr.HandleDailyScore(yesterday); err != nil {
				return err
			}
			return mgr.HandleLearningMilestone()
		},
	})

	sched.Register(&scheduler.Job{
		ID:      "realtime_checks",
		Trigger: scheduler.AtMinutes(0, 30),
		Run: func(_ context.Context, now time.Time) error {
			if vacation, err := s.IsVacationMode(cfg.System.VacationMode); err != nil {
				return err
			} else if vacation {
				return nil
			}
			alerts, err := realtime.RunAll(s, cfg, now)
			if err != nil {
				return err
			}
			for _, a := range alerts {
				logger.Warn("Scheduler", fmt.Sprintf("realtime alert: type=%s level=%d %s", a.Type, a.Level, a.Message))
				if err := mgr.HandleRealtimeAlert(a); err != nil {
					return err
				}
			}
			return nil
		},
	})

	sched.Register(&scheduler.Job{
		ID:      "daily_summary",
		Trigger: scheduler.AtTime(22, 0),
		Run: func(_ context.Context, now time.Time) error {
			if vacation, err := s.IsVacationMode(cfg.System.VacationMode); err != nil {
				return err
			} else if vacation {
				logger.Info("Scheduler", "vacation mode active - skipping daily summary")
				return nil
			}
			return mgr.HandleDailySummary()
		},
	})

	sched.Register(&scheduler.Job{
		ID:      "escalation_check",
		Trigger: scheduler.EveryNMinutes(2),
		Run: func(_ context.Context, now time.Time) error {
			return alerting.RunEscalationCheck(s, n, cfg, now)
		},
	})

	sched.Register(&scheduler.Job{
		ID:      "nightly_maintenance",
		Trigger: scheduler.AtTime(3, 0),
		Run: func(_ context.Context, now time.Time) error {
			eventCutoff := now.AddDate(0, 0, -cfg.Database.RetentionDays).Format("2006-01-02T15:04:05")
			deleted, err := s.DeleteEventsBefore(eventCutoff)
			if err != nil {
				return err
			}
			alertCutoff := now.AddDate(0, 0, -pendingAlertRetentionDays).Format("2006-01-02T15:04:05")
			alertsDeleted, err := s.DeletePendingAlertsBefore(alertCutoff)
			if err != nil {
				return err
			}
			if err := s.Checkpoint(); err != nil {
				return err
			}
			logger.Info("Scheduler", fmt.Sprintf("nightly maintenance: %d events, %d pending alerts purged", deleted, alertsDeleted))
			return nil
		},
	})

	sched.Register(&scheduler.Job{
		ID:      "weekly_trend",
		Trigger: scheduler.AtWeeklyTime(time.Sunday, 10, 0),
		Run: func(_ context.Context, now time.Time) error {
			report, err := trend.AnalyzeAll(s, channels, cfg.System.TrendAnalysisDays, cfg.System.TrendMinDays, now)
			if err != nil {
				return err
			}
			mgr.HandleWeeklyTrend(report)
			return nil
		},
	})

	sched.Register(&scheduler.Job{
		ID:      "telegram_commands",
		Trigger: scheduler.EveryNMinutes(1),
		Run: func(_ context.Context, _ time.Time) error {
			return messenger.ProcessInbound(n, s, cfg)
		},
	})

	if hb.Enabled() {
		sched.Register(&scheduler.Job{
			ID:      "heartbeat",
			Trigger: scheduler.EveryNMinutes(5),
			Run: func(_ context.Context, now time.Time) error {
				dbSize := dbSizeBytes(cfg.Database.Path)
				metrics, err := heartbeat.Collect(s, dbSize, now)
				if err != nil {
					return err
				}
				hb.Send(metrics, now)
				return nil
			},
		})
	}

	sched.Register(&scheduler.Job{
		ID:      "watchdog",
		Trigger: scheduler.AtMinutes(0, 30),
		Run: func(_ context.Context, now time.Time) error {
			dbSize := dbSizeBytes(cfg.Database.Path)
			metrics, err := heartbeat.Collect(s, dbSize, now)
			if err != nil {
				return err
			}
			status := heartbeat.RunHealthChecks(metrics, ingestionHealthy(s, now))
			if status.AllHealthy() {
				return nil
			}
			for _, w := range status.Warnings() {
				logger.Warn("Watchdog", fmt.Sprintf("%s: %s", w.Name, w.Message))
			}
			if text := heartbeat.FormatWatchdogAlert(status); text != "" {
				n.SendToAll(text)
			}
			return nil
		},
	})

	return sched
}

// ingestionHealthy substitutes for the original MQTT-connectivity check:
// there is no broker client in this daemon, so "connected" is read as
// "some sensor has reported within the last hour".
func ingestionHealthy(s *store.Store, now time.Time) bool {
	lastTS, err := s.LastEventTimestamp(now.Add(-24 * time.Hour).Format("2006-01-02T15:04:05"))
	if err != nil || lastTS == "" {
		return false
	}
	lastEvent, err := time.ParseInLocation("2006-01-02T15:04:05", lastTS, now.Location())
	if err != nil {
		return false
	}
	return now.Sub(lastEvent) < time.Hour
}

func dbSizeBytes(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
