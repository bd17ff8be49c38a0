// Package schedule runs the periodic reconciliation cycle that advances schedule event statuses.
package schedule

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/loadshedding-tracker/backend/internal/store"
)

// DefaultInterval is the reconciliation period used when none is configured.
const DefaultInterval = time.Minute

// Reconciler periodically reconciles the store against the wall clock.
type Reconciler struct {
	cron     *cron.Cron
	store    *store.Store
	log      *slog.Logger
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	lastRun time.Time
	entryID cron.EntryID
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source used for each cycle.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// NewReconciler creates a reconciler for st. A non-positive interval means DefaultInterval.
func NewReconciler(st *store.Store, log *slog.Logger, interval time.Duration, opts ...Option) *Reconciler {
	if interval <= 0 {
		interval = DefaultInterval
	}

	cl := cronLogger{log: log}
	r := &Reconciler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		store:    st,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start runs one cycle immediately and then one every interval.
func (r *Reconciler) Start() error {
	r.log.Info("starting reconciliation scheduler", "interval", r.interval.String())

	id, err := r.cron.AddFunc(fmt.Sprintf("@every %s", r.interval), func() {
		r.RunOnce()
	})
	if err != nil {
		return fmt.Errorf("schedule reconciliation: %w", err)
	}

	r.mu.Lock()
	r.entryID = id
	r.mu.Unlock()

	r.RunOnce()
	r.cron.Start()
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running cycle.
func (r *Reconciler) Stop() {
	r.log.Info("stopping reconciliation scheduler")
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.log.Info("reconciliation scheduler stopped")
}

// RunOnce performs a single reconciliation cycle at the current clock time.
func (r *Reconciler) RunOnce() store.ReconcileResult {
	now := r.now()
	res := r.store.Reconcile(now)

	r.mu.Lock()
	r.lastRun = now
	r.mu.Unlock()

	for _, t := range res.Transitions {
		r.log.Info("schedule status changed",
			"schedule_id", t.ScheduleID,
			"area_id", t.AreaID,
			"stage", t.Stage,
			"from", string(t.From),
			"to", string(t.To),
		)
	}
	for _, a := range res.ActivityChanges {
		r.log.Info("area activity changed", "area_id", a.AreaID, "area", a.AreaName, "active", a.Active)
	}
	if !res.Changed() {
		r.log.Debug("reconciliation cycle without changes")
	}

	return res
}

// LastRun returns the time of the most recent cycle, zero before the first one.
func (r *Reconciler) LastRun() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun
}

// NextRun returns when the next scheduled cycle fires, nil before Start.
func (r *Reconciler) NextRun() *time.Time {
	r.mu.Lock()
	id := r.entryID
	r.mu.Unlock()

	if id == 0 {
		return nil
	}
	entry := r.cron.Entry(id)
	if entry.Next.IsZero() {
		return nil
	}
	return &entry.Next
}

// Interval returns the configured cycle period.
func (r *Reconciler) Interval() time.Duration {
	return r.interval
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
