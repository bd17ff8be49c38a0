package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadshedding-tracker/backend/internal/cache"
	"github.com/loadshedding-tracker/backend/internal/logger"
	"github.com/loadshedding-tracker/backend/internal/storage/models"
	"github.com/loadshedding-tracker/backend/internal/store"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// interleavingCache runs beforeSet once, just before the first value is stored.
type interleavingCache struct {
	*cache.TTLCache
	once      sync.Once
	beforeSet func()
}

func (c *interleavingCache) Set(key string, value any, ttl time.Duration) {
	c.once.Do(c.beforeSet)
	c.TTLCache.Set(key, value, ttl)
}

type failingWriter struct {
	header http.Header
}

func (w *failingWriter) Header() http.Header {
	if w.header == nil {
		w.header = http.Header{}
	}
	return w.header
}

func (w *failingWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func (w *failingWriter) WriteHeader(int) {}

func getAnalytics(t *testing.T, h http.Handler) AnalyticsResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analytics?range=7d", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnalyticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAnalytics_MutationDuringComputeIsNotServedStale(t *testing.T) {
	st := store.New()
	area, err := st.AddArea(models.Area{Name: "Cape Town Central", Stage: 2, Duration: 2})
	require.NoError(t, err)

	c := &interleavingCache{TTLCache: cache.New(time.Minute)}
	c.beforeSet = func() {
		_, err := st.AddSchedule(models.ScheduleEvent{
			AreaID: area.ID,
			Start:  testNow.Add(-3 * time.Hour),
			End:    testNow.Add(-time.Hour),
			Stage:  2,
		})
		require.NoError(t, err)
	}
	st.Subscribe(func(store.Change) { c.Clear() })

	h := Analytics(st, c, fixedClock, time.UTC)

	first := getAnalytics(t, h)
	assert.Equal(t, 0, first.Stats.TotalOutages)
	require.Len(t, st.Schedules(), 1)

	second := getAnalytics(t, h)
	assert.Equal(t, 1, second.Stats.TotalOutages)
}

func TestAnalytics_CachedWhileStoreUnchanged(t *testing.T) {
	st := store.New()
	c := cache.New(time.Minute)
	calls := 0
	clock := func() time.Time {
		calls++
		return testNow
	}
	h := Analytics(st, c, clock, time.UTC)

	getAnalytics(t, h)
	getAnalytics(t, h)

	assert.Equal(t, 1, calls)
}

func TestExports_LogWriteFailures(t *testing.T) {
	st := store.New()
	area, err := st.AddArea(models.Area{Name: "Durban South", Stage: 1, Duration: 2})
	require.NoError(t, err)
	_, err = st.AddSchedule(models.ScheduleEvent{
		AreaID: area.ID, Start: testNow, End: testNow.Add(2 * time.Hour), Stage: 1,
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		handler func(*bytes.Buffer) http.HandlerFunc
		path    string
		message string
	}{
		{
			name: "calendar",
			handler: func(buf *bytes.Buffer) http.HandlerFunc {
				return ExportSchedulesICS(st, fixedClock, time.UTC, logger.NewWriter(buf, slog.LevelInfo))
			},
			path:    "/api/schedules.ics",
			message: "write calendar export",
		},
		{
			name: "analytics csv",
			handler: func(buf *bytes.Buffer) http.HandlerFunc {
				return ExportAnalytics(st, fixedClock, time.UTC, logger.NewWriter(buf, slog.LevelInfo))
			},
			path:    "/api/analytics/export?range=7d",
			message: "write analytics export",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := tt.handler(&buf)

			h.ServeHTTP(&failingWriter{}, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Contains(t, buf.String(), tt.message)
			assert.Contains(t, buf.String(), "connection reset")
		})
	}
}
