// Package schedule runs recurring background jobs inside the server
// process.
//
//	s := schedule.New()
//	s.Every(time.Hour, "cache-warmup", warm)
//	if err := s.Cron("0 3 * * *", "backup", runBackup); err != nil { ... }
//	s.Start(ctx)   // dispatches until ctx is cancelled
//	defer s.Wait() // waits for in-flight runs
package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/farmdirect/farmdirect/pkg/logger"
)

// Task is one run of a scheduled job.
type Task func(ctx context.Context) error

// ErrBadCron is returned for an expression that is not five valid fields.
var ErrBadCron = errors.New("schedule: invalid cron expression")

type entry struct {
	name     string
	interval time.Duration
	cron     []field // nil unless registered with Cron
	spec     string
	task     Task

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

// Scheduler dispatches due entries once per tick. A run never overlaps the
// previous run of the same entry.
type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
	tick    time.Duration
}

func New() *Scheduler {
	return &Scheduler{tick: time.Second}
}

// Every runs task every d, starting on the first tick.
func (s *Scheduler) Every(d time.Duration, name string, task Task) {
	s.add(&entry{name: name, interval: d, task: task})
}

// Cron runs task once in each minute matching the 5-field expression
// (minute hour day-of-month month day-of-week). Fields accept *, n, a-b,
// */step and comma lists.
func (s *Scheduler) Cron(expr, name string, task Task) error {
	fields, err := parseCron(expr)
	if err != nil {
		return err
	}
	s.add(&entry{name: name, cron: fields, spec: expr, task: task})
	return nil
}

func (s *Scheduler) add(e *entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

// Entries describes the registered jobs, e.g. "backup [0 3 * * *]".
func (s *Scheduler) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		freq := e.interval.String()
		if e.cron != nil {
			freq = e.spec
		}
		out = append(out, fmt.Sprintf("%s [%s]", e.name, freq))
	}
	return out
}

// Start dispatches in the background until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	log := logger.Component("schedule")
	go func() {
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()
		log.Info("scheduler started", "jobs", len(s.Entries()))
		for {
			select {
			case <-ctx.Done():
				log.Info("scheduler stopped")
				return
			case now := <-ticker.C:
				s.dispatchDue(ctx, now)
			}
		}
	}()
}

// Wait blocks until every in-flight run has returned.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) dispatchDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	current := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	for _, e := range current {
		if e.claim(now) {
			s.wg.Add(1)
			go s.run(ctx, e)
		}
	}
}

// claim marks e running if it is due at now and not already running.
func (e *entry) claim(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running || !e.due(now) {
		return false
	}
	e.running = true
	e.lastRun = now
	return true
}

func (e *entry) due(now time.Time) bool {
	if e.cron != nil {
		if !e.lastRun.IsZero() && e.lastRun.Truncate(time.Minute).Equal(now.Truncate(time.Minute)) {
			return false
		}
		return matchCron(e.cron, now)
	}
	return e.lastRun.IsZero() || now.Sub(e.lastRun) >= e.interval
}

func (s *Scheduler) run(ctx context.Context, e *entry) {
	log := logger.Component("schedule").With("job", e.name)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", "panic", r)
		}
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		s.wg.Done()
	}()

	if err := e.task(ctx); err != nil {
		log.Error("job failed", "error", err, "duration", time.Since(start).String())
		return
	}
	log.Info("job finished", "duration", time.Since(start).String())
}

// ── cron ─────────────────────────────────────────────────────────────────────

// field is the set of allowed values of one cron position; nil means any.
type field map[int]bool

var cronBounds = [5][2]int{{0, 59}, {0, 23}, {1, 31}, {1, 12}, {0, 6}}

func parseCron(expr string) ([]field, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, fmt.Errorf("%w: %q", ErrBadCron, expr)
	}
	out := make([]field, 5)
	for i, p := range parts {
		f, err := parseField(p, cronBounds[i][0], cronBounds[i][1])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadCron, expr, err)
		}
		out[i] = f
	}
	return out, nil
}

func parseField(s string, lo, hi int) (field, error) {
	if s == "*" {
		return nil, nil
	}
	f := field{}
	for _, part := range strings.Split(s, ",") {
		from, to, step := lo, hi, 1
		rng, stepStr, hasStep := strings.Cut(part, "/")
		if hasStep {
			n, err := strconv.Atoi(stepStr)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("bad step %q", part)
			}
			step = n
		}
		if rng != "*" {
			a, b, isRange := strings.Cut(rng, "-")
			n, err := strconv.Atoi(a)
			if err != nil {
				return nil, fmt.Errorf("bad value %q", part)
			}
			from, to = n, n
			if isRange {
				if to, err = strconv.Atoi(b); err != nil {
					return nil, fmt.Errorf("bad range %q", part)
				}
			} else if hasStep {
				to = hi
			}
		}
		if from < lo || to > hi || from > to {
			return nil, fmt.Errorf("%q out of range %d-%d", part, lo, hi)
		}
		for v := from; v <= to; v += step {
			f[v] = true
		}
	}
	return f, nil
}

func matchCron(fields []field, t time.Time) bool {
	vals := [5]int{t.Minute(), t.Hour(), t.Day(), int(t.Month()), int(t.Weekday())}
	for i, f := range fields {
		if f != nil && !f[vals[i]] {
			return false
		}
	}
	return true
}
