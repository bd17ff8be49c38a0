// Package store holds the authoritative in-memory collections of areas and
// schedule events and owns every mutation, including time-driven reconciliation.
package store

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/loadshedding-tracker/backend/internal/storage/models"
)

// Snapshot is a consistent, deep-copied view of the store contents.
// Area.IsActive is already derived from the schedule statuses of the same snapshot.
type Snapshot struct {
	Areas     []models.Area
	Schedules []models.ScheduleEvent

	// Version is the number of committed mutations the snapshot reflects.
	Version uint64
}

// Store is the single source of truth for areas and schedule events.
// All mutations and reconciliation cycles are serialized behind one lock.
type Store struct {
	mu        sync.RWMutex
	areas     []models.Area
	schedules []models.ScheduleEvent
	newID     func() string
	version   uint64

	// Commits take a ticket under mu and are delivered in ticket order
	// once mu is released.
	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	issued     uint64
	delivered  uint64

	listenerMu sync.Mutex
	listeners  map[int]Listener
	nextSubID  int
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the id generator used for new areas and schedules.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		newID:     uuid.NewString,
		listeners: make(map[int]Listener),
	}
	s.notifyCond = sync.NewCond(&s.notifyMu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a consistent copy of both collections.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Areas:     s.areasLocked(),
		Schedules: s.schedulesLocked(),
		Version:   s.version,
	}
}

// Version returns the number of committed mutations so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Areas returns all areas in insertion order with IsActive derived.
func (s *Store) Areas() []models.Area {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.areasLocked()
}

// Area returns a single area by id.
func (s *Store) Area(id string) (models.Area, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.areaIndex(id)
	if i < 0 {
		return models.Area{}, fmt.Errorf("area %s: %w", id, ErrNotFound)
	}
	area := s.areas[i].Clone()
	area.IsActive = s.activeAreasLocked()[id]
	return area, nil
}

// Schedules returns all schedule events in insertion order.
func (s *Store) Schedules() []models.ScheduleEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedulesLocked()
}

// Schedule returns a single schedule event by id.
func (s *Store) Schedule(id string) (models.ScheduleEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.scheduleIndex(id)
	if i < 0 {
		return models.ScheduleEvent{}, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	return s.schedules[i], nil
}

// AddArea stores a new area under a freshly generated id and returns it.
// Any id or IsActive value on the input is ignored.
func (s *Store) AddArea(data models.Area) (models.Area, error) {
	area := data.Clone()
	area.IsActive = false
	if err := validateArea(area); err != nil {
		return models.Area{}, err
	}

	s.mu.Lock()
	area.ID = s.uniqueID(func(id string) bool { return s.areaIndex(id) >= 0 })
	s.areas = append(s.areas, area)
	changes := []Change{{Kind: AreaCreated, Area: ptr(area.Clone())}}
	s.commit(changes)

	return area.Clone(), nil
}

// UpdateArea merges patch into the area with the given id.
func (s *Store) UpdateArea(id string, patch models.AreaPatch) (models.Area, error) {
	s.mu.Lock()

	i := s.areaIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Area{}, fmt.Errorf("area %s: %w", id, ErrNotFound)
	}

	updated := patch.Apply(s.areas[i].Clone())
	if err := validateArea(updated); err != nil {
		s.mu.Unlock()
		return models.Area{}, err
	}
	s.areas[i] = updated

	updated.IsActive = s.activeAreasLocked()[id]
	s.commit([]Change{{Kind: AreaUpdated, Area: ptr(updated.Clone())}})

	return updated, nil
}

// DeleteArea removes the area and every schedule event that belongs to it.
func (s *Store) DeleteArea(id string) error {
	s.mu.Lock()

	i := s.areaIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("area %s: %w", id, ErrNotFound)
	}

	removed := s.areas[i].Clone()
	s.areas = append(s.areas[:i], s.areas[i+1:]...)

	var removedIDs []string
	kept := s.schedules[:0]
	for _, e := range s.schedules {
		if e.AreaID == id {
			removedIDs = append(removedIDs, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	// Clear the tail so dropped events are not retained by the backing array.
	for j := len(kept); j < len(s.schedules); j++ {
		s.schedules[j] = models.ScheduleEvent{}
	}
	s.schedules = kept

	s.commit([]Change{{Kind: AreaDeleted, Area: &removed, RemovedSchedules: removedIDs}})
	return nil
}

// AddSchedule stores a new schedule event under a freshly generated id.
// An empty status defaults to scheduled.
func (s *Store) AddSchedule(data models.ScheduleEvent) (models.ScheduleEvent, error) {
	event := data
	if event.Status == "" {
		event.Status = models.StatusScheduled
	}
	if err := validateSchedule(event); err != nil {
		return models.ScheduleEvent{}, err
	}

	s.mu.Lock()

	if s.areaIndex(event.AreaID) < 0 {
		s.mu.Unlock()
		return models.ScheduleEvent{}, fmt.Errorf("area %s: %w", event.AreaID, ErrUnknownArea)
	}

	before := s.activeAreasLocked()
	event.ID = s.uniqueID(func(id string) bool { return s.scheduleIndex(id) >= 0 })
	s.schedules = append(s.schedules, event)

	changes := []Change{{
		Kind:     ScheduleCreated,
		Schedule: ptr(event),
		Area:     s.areaPtrLocked(event.AreaID),
	}}
	changes = append(changes, s.activityChangesLocked(before)...)
	s.commit(changes)

	return event, nil
}

// UpdateSchedule merges patch into the schedule event with the given id.
// A status change must keep the lifecycle monotonic.
func (s *Store) UpdateSchedule(id string, patch models.SchedulePatch) (models.ScheduleEvent, error) {
	s.mu.Lock()

	i := s.scheduleIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return models.ScheduleEvent{}, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}

	current := s.schedules[i]
	updated := patch.Apply(current)
	if err := validateSchedule(updated); err != nil {
		s.mu.Unlock()
		return models.ScheduleEvent{}, err
	}
	if !current.Status.CanTransitionTo(updated.Status) {
		s.mu.Unlock()
		return models.ScheduleEvent{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, updated.Status)
	}
	if updated.AreaID != current.AreaID && s.areaIndex(updated.AreaID) < 0 {
		s.mu.Unlock()
		return models.ScheduleEvent{}, fmt.Errorf("area %s: %w", updated.AreaID, ErrUnknownArea)
	}

	before := s.activeAreasLocked()
	s.schedules[i] = updated

	changes := []Change{{
		Kind:           ScheduleUpdated,
		Schedule:       ptr(updated),
		PreviousStatus: current.Status,
		Area:           s.areaPtrLocked(updated.AreaID),
	}}
	changes = append(changes, s.activityChangesLocked(before)...)
	s.commit(changes)

	return updated, nil
}

// CancelSchedule withdraws a scheduled event. Only scheduled events can be cancelled.
func (s *Store) CancelSchedule(id string) (models.ScheduleEvent, error) {
	s.mu.Lock()

	i := s.scheduleIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return models.ScheduleEvent{}, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}

	current := s.schedules[i]
	if current.Status != models.StatusScheduled {
		s.mu.Unlock()
		return models.ScheduleEvent{}, fmt.Errorf("%w: cannot cancel %s schedule", ErrInvalidTransition, current.Status)
	}

	s.schedules[i].Status = models.StatusCancelled
	cancelled := s.schedules[i]

	s.commit([]Change{{
		Kind:           ScheduleCancelled,
		Schedule:       ptr(cancelled),
		PreviousStatus: current.Status,
		Area:           s.areaPtrLocked(cancelled.AreaID),
	}})

	return cancelled, nil
}

// DeleteSchedule removes the schedule event with the given id.
func (s *Store) DeleteSchedule(id string) error {
	s.mu.Lock()

	i := s.scheduleIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}

	before := s.activeAreasLocked()
	removed := s.schedules[i]
	s.schedules = append(s.schedules[:i], s.schedules[i+1:]...)

	changes := []Change{{
		Kind:     ScheduleDeleted,
		Schedule: &removed,
		Area:     s.areaPtrLocked(removed.AreaID),
	}}
	changes = append(changes, s.activityChangesLocked(before)...)
	s.commit(changes)

	return nil
}

// Replace swaps the store contents for the given collections without validation.
// Used for seeding; listeners receive a single StoreReset change.
func (s *Store) Replace(areas []models.Area, schedules []models.ScheduleEvent) {
	s.mu.Lock()

	s.areas = make([]models.Area, 0, len(areas))
	for _, a := range areas {
		a = a.Clone()
		a.IsActive = false
		s.areas = append(s.areas, a)
	}
	s.schedules = append([]models.ScheduleEvent(nil), schedules...)

	s.commit([]Change{{Kind: StoreReset}})
}

// commit releases the write lock and delivers changes in commit order.
// No store lock is held while listeners run, so they may read the store.
// The caller must hold s.mu for writing.
func (s *Store) commit(changes []Change) {
	if len(changes) == 0 {
		s.mu.Unlock()
		return
	}

	s.version++
	s.notifyMu.Lock()
	ticket := s.issued
	s.issued++
	s.notifyMu.Unlock()
	s.mu.Unlock()

	s.notifyMu.Lock()
	for s.delivered != ticket {
		s.notifyCond.Wait()
	}
	s.notifyMu.Unlock()

	defer func() {
		s.notifyMu.Lock()
		s.delivered++
		s.notifyCond.Broadcast()
		s.notifyMu.Unlock()
	}()
	s.notify(changes)
}

func (s *Store) areasLocked() []models.Area {
	active := s.activeAreasLocked()
	areas := make([]models.Area, 0, len(s.areas))
	for _, a := range s.areas {
		a = a.Clone()
		a.IsActive = active[a.ID]
		areas = append(areas, a)
	}
	return areas
}

func (s *Store) schedulesLocked() []models.ScheduleEvent {
	return append(make([]models.ScheduleEvent, 0, len(s.schedules)), s.schedules...)
}

// activeAreasLocked returns the set of area ids with at least one active schedule.
func (s *Store) activeAreasLocked() map[string]bool {
	active := make(map[string]bool)
	for _, e := range s.schedules {
		if e.Status == models.StatusActive {
			active[e.AreaID] = true
		}
	}
	return active
}

// activityChangesLocked reports every area whose derived activity differs from before.
func (s *Store) activityChangesLocked(before map[string]bool) []Change {
	after := s.activeAreasLocked()

	var changes []Change
	for _, a := range s.areas {
		if before[a.ID] == after[a.ID] {
			continue
		}
		area := a.Clone()
		area.IsActive = after[a.ID]
		changes = append(changes, Change{Kind: AreaActivityChanged, Area: &area})
	}
	return changes
}

func (s *Store) areaPtrLocked(id string) *models.Area {
	i := s.areaIndex(id)
	if i < 0 {
		return nil
	}
	area := s.areas[i].Clone()
	area.IsActive = s.activeAreasLocked()[id]
	return &area
}

func (s *Store) areaIndex(id string) int {
	for i := range s.areas {
		if s.areas[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) scheduleIndex(id string) int {
	for i := range s.schedules {
		if s.schedules[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) uniqueID(taken func(string) bool) string {
	for {
		id := s.newID()
		if id != "" && !taken(id) {
			return id
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
