// Package feed keeps the dashboard's live updates journal in step with the store.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loadshedding-tracker/backend/internal/storage"
	"github.com/loadshedding-tracker/backend/internal/storage/models"
	"github.com/loadshedding-tracker/backend/internal/store"
)

// DefaultLimit is the number of entries kept when no limit is configured.
const DefaultLimit = 50

// Recorder turns store changes into live updates and keeps the newest Limit of them.
type Recorder struct {
	repo     *storage.UpdateRepository
	log      *slog.Logger
	limit    int
	now      func() time.Time
	onRecord func(models.LiveUpdate)
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the time source for timestamps and "time ago" labels.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// OnRecord registers a callback invoked after every stored update.
func OnRecord(fn func(models.LiveUpdate)) Option {
	return func(r *Recorder) {
		r.onRecord = fn
	}
}

// NewRecorder creates a recorder writing to repo. A non-positive limit means DefaultLimit.
func NewRecorder(repo *storage.UpdateRepository, log *slog.Logger, limit int, opts ...Option) *Recorder {
	if limit <= 0 {
		limit = DefaultLimit
	}
	r := &Recorder{
		repo:  repo,
		log:   log,
		limit: limit,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleChange records the live update for c, if any.
// It has the store.Listener signature so it can be passed to Subscribe.
func (r *Recorder) HandleChange(c store.Change) {
	u, ok := UpdateFromChange(c)
	if !ok {
		return
	}
	if _, err := r.Record(context.Background(), u); err != nil {
		r.log.Error("record live update", "kind", string(c.Kind), "error", err)
	}
}

// Announce records a system alert.
func (r *Recorder) Announce(ctx context.Context, message string) error {
	_, err := r.Record(ctx, models.LiveUpdate{Type: models.UpdateSystemAlert, Message: message})
	return err
}

// Record stores u, trims the journal and notifies the OnRecord callback.
func (r *Recorder) Record(ctx context.Context, u models.LiveUpdate) (models.LiveUpdate, error) {
	if u.Timestamp.IsZero() {
		u.Timestamp = r.now().UTC()
	}
	if err := r.repo.Append(ctx, &u, r.limit); err != nil {
		return models.LiveUpdate{}, err
	}

	u.TimeAgo = FormatTimeAgo(u.Timestamp, r.now())
	if r.onRecord != nil {
		r.onRecord(u)
	}
	return u, nil
}

// Recent returns up to limit updates, newest first, labelled relative to now.
// A non-positive or oversized limit returns the whole journal.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.LiveUpdate, error) {
	if limit <= 0 || limit > r.limit {
		limit = r.limit
	}
	updates, err := r.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	now := r.now()
	for i := range updates {
		updates[i].TimeAgo = FormatTimeAgo(updates[i].Timestamp, now)
	}
	return updates, nil
}

// UpdateFromChange maps a store change to its feed entry. ok is false for
// changes the feed does not show.
func UpdateFromChange(c store.Change) (models.LiveUpdate, bool) {
	areaName := ""
	if c.Area != nil {
		areaName = c.Area.Name
	}

	u := models.LiveUpdate{AreaName: areaName}
	switch c.Kind {
	case store.ScheduleStatusChanged:
		switch c.Schedule.Status {
		case models.StatusActive:
			u.Type = models.UpdateOutageStart
			u.Message = fmt.Sprintf("Load shedding started - Stage %d", c.Schedule.Stage)
		case models.StatusCompleted:
			u.Type = models.UpdateOutageEnd
			u.Message = "Power restored after scheduled outage"
		default:
			return models.LiveUpdate{}, false
		}
	case store.ScheduleCreated:
		u.Type = models.UpdateScheduleChange
		u.Message = fmt.Sprintf("Outage scheduled for %s - Stage %d",
			c.Schedule.Start.Format("Jan 2 15:04"), c.Schedule.Stage)
	case store.ScheduleUpdated:
		u.Type = models.UpdateScheduleChange
		u.Message = fmt.Sprintf("Schedule updated - Stage %d", c.Schedule.Stage)
	case store.ScheduleCancelled:
		u.Type = models.UpdateScheduleChange
		u.Message = "Scheduled outage cancelled"
	case store.ScheduleDeleted:
		u.Type = models.UpdateScheduleChange
		u.Message = "Schedule removed"
	case store.AreaCreated:
		u.Type = models.UpdateSystemAlert
		u.Message = "Area added to tracking"
	case store.AreaDeleted:
		u.Type = models.UpdateSystemAlert
		u.Message = "Area removed from tracking"
	case store.StoreReset:
		u.Type = models.UpdateSystemAlert
		u.Message = "Schedule data loaded"
	default:
		return models.LiveUpdate{}, false
	}
	return u, true
}

// FormatTimeAgo renders how long before now t happened: "Just now" under a
// minute, then minutes, then hours, and the calendar date from one day on.
func FormatTimeAgo(t, now time.Time) string {
	diff := now.Sub(t)
	mins := int(diff / time.Minute)
	hours := mins / 60

	switch {
	case mins < 1:
		return "Just now"
	case mins < 60:
		return fmt.Sprintf("%dm ago", mins)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	}
	return t.In(now.Location()).Format("Jan 2, 2006")
}
