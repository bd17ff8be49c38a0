package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadshedding-tracker/backend/internal/storage/models"
)

type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) listen(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) kinds() []ChangeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]ChangeKind, 0, len(r.changes))
	for _, c := range r.changes {
		kinds = append(kinds, c.Kind)
	}
	return kinds
}

func TestSubscribe_ReceivesChangesInOrder(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	s.Subscribe(rec.listen)

	a := mustAddArea(t, s, "A", 1)
	e := mustAddSchedule(t, s, a.ID, baseTime, 2)
	s.Reconcile(baseTime.Add(time.Hour))
	s.Reconcile(baseTime.Add(3 * time.Hour))
	require.NoError(t, s.DeleteSchedule(e.ID))
	require.NoError(t, s.DeleteArea(a.ID))

	assert.Equal(t, []ChangeKind{
		AreaCreated,
		ScheduleCreated,
		ScheduleStatusChanged,
		AreaActivityChanged,
		ScheduleStatusChanged,
		AreaActivityChanged,
		ScheduleDeleted,
		AreaDeleted,
	}, rec.kinds())
}

func TestSubscribe_StatusChangeCarriesPostCycleArea(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	a := mustAddArea(t, s, "A", 1)
	mustAddSchedule(t, s, a.ID, baseTime, 2)
	s.Subscribe(rec.listen)

	s.Reconcile(baseTime.Add(time.Minute))

	require.Len(t, rec.changes, 2)
	c := rec.changes[0]
	assert.Equal(t, ScheduleStatusChanged, c.Kind)
	assert.Equal(t, models.StatusScheduled, c.PreviousStatus)
	assert.Equal(t, models.StatusActive, c.Schedule.Status)
	require.NotNil(t, c.Area)
	assert.True(t, c.Area.IsActive)
}

func TestSubscribe_CascadeReportsRemovedSchedules(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	a := mustAddArea(t, s, "A", 1)
	e1 := mustAddSchedule(t, s, a.ID, baseTime, 1)
	e2 := mustAddSchedule(t, s, a.ID, baseTime, 1)
	s.Subscribe(rec.listen)

	require.NoError(t, s.DeleteArea(a.ID))

	require.Len(t, rec.changes, 1)
	assert.ElementsMatch(t, []string{e1.ID, e2.ID}, rec.changes[0].RemovedSchedules)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	unsubscribe := s.Subscribe(rec.listen)

	mustAddArea(t, s, "A", 1)
	unsubscribe()
	mustAddArea(t, s, "B", 1)

	assert.Len(t, rec.kinds(), 1)
}

func TestSubscribe_RejectedOperationsAreSilent(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	s.Subscribe(rec.listen)

	_, err := s.AddArea(models.Area{Name: "A", Stage: 8, Duration: 1})
	require.Error(t, err)
	res := s.Reconcile(baseTime)
	assert.False(t, res.Changed())

	assert.Empty(t, rec.kinds())
}

func TestSubscribe_ListenerCanReadStore(t *testing.T) {
	s := newTestStore(t)
	var seen int
	s.Subscribe(func(c Change) {
		seen = len(s.Areas())
	})

	mustAddArea(t, s, "A", 1)
	assert.Equal(t, 1, seen)
}

func TestSubscribe_ConcurrentWritersWithReadingListener(t *testing.T) {
	s := New()

	var (
		mu    sync.Mutex
		order []string
	)
	s.Subscribe(func(c Change) {
		snap := s.Snapshot()
		assert.NotEmpty(t, snap.Areas)

		mu.Lock()
		order = append(order, c.Area.ID)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					_, err := s.AddArea(models.Area{Name: "A", Stage: 1, Duration: 1})
					assert.NoError(t, err)
				}
			}()
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("writers did not finish")
	}

	areas := s.Areas()
	require.Len(t, areas, 160)
	ids := make([]string, 0, len(areas))
	for _, a := range areas {
		ids = append(ids, a.ID)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, ids, order)
}

func TestStore_VersionCountsCommits(t *testing.T) {
	s := newTestStore(t)
	assert.Zero(t, s.Version())

	a := mustAddArea(t, s, "A", 1)
	assert.Equal(t, uint64(1), s.Version())

	_, err := s.AddArea(models.Area{Name: "", Stage: 1, Duration: 1})
	require.Error(t, err)
	s.Reconcile(baseTime)
	assert.Equal(t, uint64(1), s.Version())

	mustAddSchedule(t, s, a.ID, baseTime, 2)
	s.Reconcile(baseTime.Add(time.Minute))
	assert.Equal(t, uint64(3), s.Version())
	assert.Equal(t, uint64(3), s.Snapshot().Version)
}

func TestStore_ConcurrentMutationsAndReconcile(t *testing.T) {
	s := New()
	a := mustAddArea(t, s, "A", 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, err := s.AddSchedule(models.ScheduleEvent{
					AreaID: a.ID,
					Start:  baseTime.Add(time.Duration(j) * time.Minute),
					End:    baseTime.Add(time.Duration(j+30) * time.Minute),
					Stage:  1 + i%4,
				})
				assert.NoError(t, err)
				s.Reconcile(baseTime.Add(time.Duration(j) * time.Minute))
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Schedules(), 200)
}
