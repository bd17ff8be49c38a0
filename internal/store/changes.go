package store

import (
	"sort"

	"github.com/loadshedding-tracker/backend/internal/storage/models"
)

// ChangeKind identifies what happened to the store.
type ChangeKind string

// Change kinds
const (
	AreaCreated           ChangeKind = "area.created"
	AreaUpdated           ChangeKind = "area.updated"
	AreaDeleted           ChangeKind = "area.deleted"
	AreaActivityChanged   ChangeKind = "area.activity_changed"
	ScheduleCreated       ChangeKind = "schedule.created"
	ScheduleUpdated       ChangeKind = "schedule.updated"
	ScheduleCancelled     ChangeKind = "schedule.cancelled"
	ScheduleDeleted       ChangeKind = "schedule.deleted"
	ScheduleStatusChanged ChangeKind = "schedule.status_changed"
	StoreReset            ChangeKind = "store.reset"
)

// Change describes a single committed mutation.
type Change struct {
	Kind ChangeKind

	// Area is the post-change area (or the removed one for AreaDeleted).
	// For schedule changes it is the owning area when it still exists.
	Area *models.Area

	// Schedule is the post-change event (or the removed one for ScheduleDeleted).
	Schedule *models.ScheduleEvent

	// PreviousStatus is set for ScheduleUpdated, ScheduleCancelled and ScheduleStatusChanged.
	PreviousStatus models.ScheduleStatus

	// RemovedSchedules lists events removed by an AreaDeleted cascade.
	RemovedSchedules []string
}

// Listener receives committed changes. Listeners run synchronously after the
// store lock is released, in commit order. They may read the store but must
// not mutate it.
type Listener func(Change)

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = l

	return func() {
		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify(changes []Change) {
	if len(changes) == 0 {
		return
	}

	s.listenerMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	listeners := make([]Listener, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.listenerMu.Unlock()

	for _, c := range changes {
		for _, l := range listeners {
			l(c)
		}
	}
}
