// Package scheduler runs the daemon's wall-clock cron-style jobs. It
// polls once a minute, in local time, and fires every job whose trigger
// matches that minute. A job already in flight is skipped for that tick
// rather than queued, so a slow run never stacks concurrent instances
// of itself.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/logger"
)

// Trigger reports whether a job should fire at the given wall-clock
// minute.
type Trigger func(now time.Time) bool

// Job is one scheduled unit of work: an id for logging, a trigger
// predicate evaluated every polling tick, and the action to run when it
// fires.
type Job struct {
	ID      string
	Trigger Trigger
	Run     func(ctx context.Context, now time.Time) error

	running int32
}

// EveryNMinutes fires when now's minute-of-hour is a multiple of n.
func EveryNMinutes(n int) Trigger {
	return func(now time.Time) bool {
		return now.Minute()%n == 0
	}
}

// AtMinutes fires when now's minute-of-hour is exactly one of the given
// values, any hour.
func AtMinutes(minutes ...int) Trigger {
	set := make(map[int]bool, len(minutes))
	for _, m := range minutes {
		set[m] = true
	}
	return func(now time.Time) bool {
		return set[now.Minute()]
	}
}

// AtTime fires once per day at exactly hour:minute.
func AtTime(hour, minute int) Trigger {
	return func(now time.Time) bool {
		return now.Hour() == hour && now.Minute() == minute
	}
}

// AtWeeklyTime fires once a week at weekday hour:minute.
func AtWeeklyTime(weekday time.Weekday, hour, minute int) Trigger {
	return func(now time.Time) bool {
		return now.Weekday() == weekday && now.Hour() == hour && now.Minute() == minute
	}
}

// Scheduler owns the job list and the polling loop.
type Scheduler struct {
	jobs     []*Job
	interval time.Duration
}

// New returns a Scheduler polling once per minute.
func New() *Scheduler {
	return &Scheduler{interval: time.Minute}
}

// Register adds a job to the schedule. Not safe to call once Run has
// started.
func (s *Scheduler) Register(job *Job) {
	s.jobs = append(s.jobs, job)
}

// Run blocks, polling every interval until ctx is cancelled. Each tick
// evaluates every job's trigger against the current wall-clock time and
// fires matching jobs in their own goroutine so a slow job never delays
// another job's tick.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Section("Scheduler starting")
	for {
		select {
		case <-ctx.Done():
			logger.Info("Scheduler", "stopping")
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	for _, job := range s.jobs {
		if !job.Trigger(now) {
			continue
		}
		if !atomic.CompareAndSwapInt32(&job.running, 0, 1) {
			logger.Warn("Scheduler", "skipping "+job.ID+": previous run still in flight")
			continue
		}
		go func(j *Job, firedAt time.Time) {
			defer atomic.StoreInt32(&j.running, 0)
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Scheduler", fmt.Sprintf("%s: panic: %v", j.ID, r))
				}
			}()
			if err := j.Run(ctx, firedAt); err != nil {
				logger.Error("Scheduler", j.ID+": "+err.Error())
			}
		}(job, now)
	}
}
