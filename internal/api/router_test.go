package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadshedding-tracker/backend/internal/analytics"
	"github.com/loadshedding-tracker/backend/internal/api/handlers"
	"github.com/loadshedding-tracker/backend/internal/api/middleware"
	"github.com/loadshedding-tracker/backend/internal/cache"
	"github.com/loadshedding-tracker/backend/internal/feed"
	"github.com/loadshedding-tracker/backend/internal/logger"
	"github.com/loadshedding-tracker/backend/internal/storage"
	"github.com/loadshedding-tracker/backend/internal/storage/models"
	"github.com/loadshedding-tracker/backend/internal/store"
)

var baseTime = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

type testServer struct {
	handler http.Handler
	store   *store.Store
	cache   *cache.TTLCache
	now     time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := storage.NewMemoryDB("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = storage.RunMigrations(context.Background(), db, logger.Discard())
	require.NoError(t, err)

	ts := &testServer{store: store.New(), cache: cache.New(time.Minute), now: baseTime}
	clock := func() time.Time { return ts.now }

	rec := feed.NewRecorder(storage.NewUpdateRepository(db), logger.Discard(), 20, feed.WithClock(clock))
	ts.store.Subscribe(rec.HandleChange)
	ts.store.Subscribe(func(store.Change) { ts.cache.Clear() })
	ts.store.Seed(baseTime)
	ts.store.Reconcile(baseTime)

	ts.handler = NewRouter(Services{
		Store:    ts.store,
		DB:       db,
		Feed:     rec,
		Cache:    ts.cache,
		Location: time.UTC,
		Clock:    clock,
		Logger:   logger.Discard(),
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[middleware.ErrorResponse](t, rec).Error
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[handlers.HealthResponse](t, rec)
	assert.Equal(t, "healthy", body.Status)
	assert.True(t, body.DBConnected)
}

func TestAreas_CRUD(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/areas", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	areas := decode[[]models.Area](t, rec)
	require.Len(t, areas, 3)
	assert.True(t, areas[1].IsActive)

	rec = ts.do(t, http.MethodPost, "/api/areas", map[string]any{"name": "Pretoria East", "stage": 2, "duration": 2.5})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[models.Area](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.IsActive)

	rec = ts.do(t, http.MethodPatch, "/api/areas/"+created.ID, map[string]any{"stage": 4})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.Area](t, rec)
	assert.Equal(t, 4, updated.Stage)
	assert.Equal(t, "Pretoria East", updated.Name)

	rec = ts.do(t, http.MethodGet, "/api/areas/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/areas/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/areas/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, middleware.ErrNotFound, errorCode(t, rec))
}

func TestAreas_Validation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"bad stage", map[string]any{"name": "X", "stage": 9, "duration": 1}, http.StatusBadRequest, middleware.ErrValidation},
		{"blank name", map[string]any{"name": " ", "stage": 1, "duration": 1}, http.StatusBadRequest, middleware.ErrValidation},
		{"zero duration", map[string]any{"name": "X", "stage": 1, "duration": 0}, http.StatusBadRequest, middleware.ErrValidation},
		{"is_active not settable", map[string]any{"name": "X", "stage": 1, "duration": 1, "is_active": true}, http.StatusBadRequest, middleware.ErrBadRequest},
		{"malformed", "not an object", http.StatusBadRequest, middleware.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/areas", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
	assert.Len(t, ts.store.Areas(), 3)
}

func TestDeleteArea_CascadesToSchedules(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/areas/1/schedules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ScheduleEvent](t, rec), 1)

	require.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/areas/1", nil).Code)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/areas/1/schedules", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/schedules/1", nil).Code)
	assert.Len(t, ts.store.Schedules(), 2)
}

func TestSchedules_CreateUpdateCancelDelete(t *testing.T) {
	ts := newTestServer(t)
	start := baseTime.Add(24 * time.Hour)

	rec := ts.do(t, http.MethodPost, "/api/schedules", map[string]any{
		"area_id": "3",
		"start":   start,
		"end":     start.Add(2 * time.Hour),
		"stage":   2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	e := decode[models.ScheduleEvent](t, rec)
	assert.Equal(t, models.StatusScheduled, e.Status)

	rec = ts.do(t, http.MethodPatch, "/api/schedules/"+e.ID, map[string]any{"stage": 4})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decode[models.ScheduleEvent](t, rec).Stage)

	rec = ts.do(t, http.MethodPost, "/api/schedules/"+e.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusCancelled, decode[models.ScheduleEvent](t, rec).Status)

	rec = ts.do(t, http.MethodPost, "/api/schedules/"+e.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, middleware.ErrConflict, errorCode(t, rec))

	require.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/schedules/"+e.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/schedules/"+e.ID, nil).Code)
}

func TestSchedules_Validation(t *testing.T) {
	ts := newTestServer(t)
	start := baseTime.Add(time.Hour)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"unknown area", map[string]any{"area_id": "nope", "start": start, "end": start.Add(time.Hour), "stage": 1}, http.StatusBadRequest},
		{"end before start", map[string]any{"area_id": "1", "start": start, "end": start.Add(-time.Hour), "stage": 1}, http.StatusBadRequest},
		{"bad stage", map[string]any{"area_id": "1", "start": start, "end": start.Add(time.Hour), "stage": 0}, http.StatusBadRequest},
		{"bad status", map[string]any{"area_id": "1", "start": start, "end": start.Add(time.Hour), "stage": 1, "status": "postponed"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/schedules", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, middleware.ErrValidation, errorCode(t, rec))
		})
	}

	// active -> scheduled breaks the lifecycle
	rec := ts.do(t, http.MethodPatch, "/api/schedules/2", map[string]any{"status": "scheduled"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSchedules_ByDateAndUpcoming(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/schedules?date=2025-03-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ScheduleEvent](t, rec), 3)

	rec = ts.do(t, http.MethodGet, "/api/schedules?date=2025-03-11", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.ScheduleEvent](t, rec))

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/schedules?date=10-03-2025", nil).Code)

	rec = ts.do(t, http.MethodGet, "/api/schedules/upcoming?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	upcoming := decode[[]analytics.Outage](t, rec)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "1", upcoming[0].Schedule.ID)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/schedules/upcoming?limit=-2", nil).Code)
}

func TestScheduleOverlaps(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/schedules/overlaps", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]analytics.Overlap](t, rec))

	start := baseTime.Add(3 * time.Hour)
	_, err := ts.store.AddSchedule(models.ScheduleEvent{AreaID: "1", Start: start, End: start.Add(time.Hour), Stage: 2})
	require.NoError(t, err)

	rec = ts.do(t, http.MethodGet, "/api/schedules/overlaps", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overlaps := decode[[]analytics.Overlap](t, rec)
	require.Len(t, overlaps, 1)
	assert.Equal(t, "1", overlaps[0].ScheduleID)
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/dashboard", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	s := decode[analytics.Summary](t, rec)
	assert.Equal(t, 1, s.ActiveOutages)
	assert.Equal(t, 2, s.AreasWithPower)
	assert.Equal(t, 2, s.ScheduledOutages)
	assert.Equal(t, 3, s.TotalAreas)
	require.NotNil(t, s.NextOutage)
	assert.Equal(t, "Cape Town Central", s.NextOutage.Area.Name)
}

func TestCalendarMonth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/calendar/2025/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cal := decode[analytics.CalendarMonth](t, rec)
	assert.Equal(t, 6, cal.LeadingBlanks)
	assert.True(t, cal.Days[9].IsToday)
	assert.Len(t, cal.Days[9].Schedules, 3)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/calendar/2025/13", nil).Code)
}

func TestAnalytics(t *testing.T) {
	ts := newTestServer(t)
	ts.now = baseTime.Add(5 * time.Hour)

	rec := ts.do(t, http.MethodGet, "/api/analytics?range=7d", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[handlers.AnalyticsResponse](t, rec)
	// Schedules 1 and 2 have started by now; schedule 3 starts at +6h.
	assert.Equal(t, 2, body.Stats.TotalOutages)
	assert.Equal(t, 2, body.Stats.AffectedAreas)
	assert.Len(t, body.Daily, 7)

	rec = ts.do(t, http.MethodGet, "/api/analytics?range=1y", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, middleware.ErrValidation, errorCode(t, rec))
}

func TestAnalytics_CacheClearedOnStoreChange(t *testing.T) {
	ts := newTestServer(t)

	first := decode[handlers.AnalyticsResponse](t, ts.do(t, http.MethodGet, "/api/analytics", nil))
	assert.Equal(t, "7d", first.Range)

	_, err := ts.store.AddSchedule(models.ScheduleEvent{
		AreaID: "3", Start: baseTime.Add(-3 * time.Hour), End: baseTime.Add(-2 * time.Hour), Stage: 1,
	})
	require.NoError(t, err)

	second := decode[handlers.AnalyticsResponse](t, ts.do(t, http.MethodGet, "/api/analytics", nil))
	assert.Equal(t, first.Stats.TotalOutages+1, second.Stats.TotalOutages)
}

func TestAnalyticsExport(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/analytics/export?range=7d", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "date,outages,duration_hours", lines[0])
	assert.Equal(t, "2025-03-10,3,8.5", lines[7])
}

func TestSchedulesICS(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/schedules.ics?area_id=2", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "SUMMARY:Johannesburg North - Stage 3")

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/schedules.ics?area_id=nope", nil).Code)
}

func TestUpdatesFeed(t *testing.T) {
	ts := newTestServer(t)

	ts.now = baseTime.Add(2*time.Hour + 5*time.Minute)
	ts.store.Reconcile(ts.now)

	rec := ts.do(t, http.MethodGet, "/api/updates?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	updates := decode[[]models.LiveUpdate](t, rec)
	require.NotEmpty(t, updates)
	assert.Equal(t, models.UpdateOutageStart, updates[0].Type)
	assert.Equal(t, "Load shedding started - Stage 2", updates[0].Message)
	assert.Equal(t, "Cape Town Central", updates[0].AreaName)
	assert.Equal(t, "Just now", updates[0].TimeAgo)
}

func TestUnknownAPIRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/nope", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, middleware.ErrNotFound, errorCode(t, rec))
}

func TestLifecycleScenario(t *testing.T) {
	ts := newTestServer(t)
	areaID := "1"
	start := baseTime.Add(24 * time.Hour)

	rec := ts.do(t, http.MethodPost, "/api/schedules", map[string]any{
		"area_id": areaID, "start": start, "end": start.Add(2 * time.Hour), "stage": 3,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[models.ScheduleEvent](t, rec).ID

	steps := []struct {
		at     time.Time
		status models.ScheduleStatus
		active bool
	}{
		{start, models.StatusActive, true},
		{start.Add(time.Hour), models.StatusActive, true},
		{start.Add(3 * time.Hour), models.StatusCompleted, false},
	}
	for _, step := range steps {
		t.Run(fmt.Sprintf("at %s", step.at.Format(time.Kitchen)), func(t *testing.T) {
			ts.store.Reconcile(step.at)

			e := decode[models.ScheduleEvent](t, ts.do(t, http.MethodGet, "/api/schedules/"+id, nil))
			assert.Equal(t, step.status, e.Status)
			a := decode[models.Area](t, ts.do(t, http.MethodGet, "/api/areas/"+areaID, nil))
			assert.Equal(t, step.active, a.IsActive)
		})
	}
}
