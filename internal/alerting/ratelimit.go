package alerting

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BBBoring2025/annem-guvende/internal/logger"
	"github.com/BBBoring2025/annem-guvende/internal/store"
)

const (
	cooldown             = 6 * time.Hour
	minTrainDays         = 7
	seriousTrainDays     = 15
	morningMaxPerDay     = 2
	rateStateKey         = "alert_rate_state"
	morningCountStateKey = "morning_alert_count"
	rateStateISOLayout   = time.RFC3339
)

// RateLimiter decides whether a tiered alert should actually be sent,
// persisting its last-emit-per-level map and its per-day morning-silence
// count to system_state so a restart does not reopen a cooldown window
// or reset the daily cap. Both in-memory maps are a cache, rebuilt
// lazily from the store on first use per process.
type RateLimiter struct {
	s             *store.Store
	lastEmit      map[int]time.Time
	loaded        bool
	morningCt     map[string]int
	morningLoaded bool
}

// NewRateLimiter returns a limiter bound to s. Its in-memory state starts
// empty and is populated from system_state on first use.
func NewRateLimiter(s *store.Store) *RateLimiter {
	return &RateLimiter{
		s:         s,
		lastEmit:  make(map[int]time.Time),
		morningCt: make(map[string]int),
	}
}

// ShouldSend applies the §4.5.1 rules for a tiered (level 1-3) alert at
// train_days maturity train_days, evaluated at now. A true result
// records and persists the emission.
func (r *RateLimiter) ShouldSend(level, trainDays int, now time.Time) bool {
	if level <= 0 {
		return false
	}
	if trainDays < minTrainDays {
		return false
	}
	if trainDays < seriousTrainDays && level > 1 {
		return false
	}

	if !r.loaded {
		r.load()
	}

	lastMax := 0
	for lvl := range r.lastEmit {
		if lvl > lastMax {
			lastMax = lvl
		}
	}
	if level > lastMax && lastMax > 0 {
		r.record(level, now)
		return true
	}

	if last, ok := r.lastEmit[level]; ok {
		if now.Sub(last) < cooldown {
			return false
		}
	}

	r.record(level, now)
	return true
}

// ShouldSendMorning enforces the per-day cap on morning-silence alerts
// (default 2), independent of the tiered cooldown above. Persisted to
// system_state the same way the tiered cooldown is, so a daemon restart
// mid-day does not reopen the cap.
func (r *RateLimiter) ShouldSendMorning(date string) bool {
	if !r.morningLoaded {
		r.loadMorning()
	}
	if r.morningCt[date] >= morningMaxPerDay {
		return false
	}
	r.morningCt[date]++
	r.saveMorning()
	return true
}

func (r *RateLimiter) record(level int, now time.Time) {
	r.lastEmit[level] = now
	r.save()
}

func (r *RateLimiter) load() {
	r.loaded = true
	raw, err := r.s.GetState(rateStateKey, "")
	if err != nil || raw == "" {
		return
	}
	for _, pair := range strings.Split(raw, ";") {
		lvlStr, tsStr, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		lvl, err := strconv.Atoi(lvlStr)
		if err != nil {
			logger.Warn("Alerting", fmt.Sprintf("unparseable rate-state entry %q", pair))
			continue
		}
		ts, err := time.Parse(rateStateISOLayout, tsStr)
		if err != nil {
			logger.Warn("Alerting", fmt.Sprintf("unparseable rate-state timestamp %q", pair))
			continue
		}
		r.lastEmit[lvl] = ts
	}
}

func (r *RateLimiter) save() {
	levels := make([]int, 0, len(r.lastEmit))
	for lvl := range r.lastEmit {
		levels = append(levels, lvl)
	}
	sort.Ints(levels)

	parts := make([]string, 0, len(levels))
	for _, lvl := range levels {
		parts = append(parts, fmt.Sprintf("%d:%s", lvl, r.lastEmit[lvl].Format(rateStateISOLayout)))
	}

	if err := r.s.SetState(rateStateKey, strings.Join(parts, ";")); err != nil {
		logger.Error("Alerting", fmt.Sprintf("persist rate state: %v", err))
	}
}

func (r *RateLimiter) loadMorning() {
	r.morningLoaded = true
	raw, err := r.s.GetState(morningCountStateKey, "")
	if err != nil || raw == "" {
		return
	}
	for _, pair := range strings.Split(raw, ";") {
		dateStr, ctStr, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		ct, err := strconv.Atoi(ctStr)
		if err != nil {
			logger.Warn("Alerting", fmt.Sprintf("unparseable morning-count entry %q", pair))
			continue
		}
		r.morningCt[dateStr] = ct
	}
}

func (r *RateLimiter) saveMorning() {
	dates := make([]string, 0, len(r.morningCt))
	for d := range r.morningCt {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	parts := make([]string, 0, len(dates))
	for _, d := range dates {
		parts = append(parts, fmt.Sprintf("%s:%d", d, r.morningCt[d]))
	}

	if err := r.s.SetState(morningCountStateKey, strings.Join(parts, ";")); err != nil {
		logger.Error("Alerting", fmt.Sprintf("persist morning alert count: %v", err))
	}
}
