package analytics

import (
	"sort"
	"time"

	"github.com/loadshedding-tracker/backend/internal/storage/models"
)

// Overlap reports two live events of the same area whose windows intersect.
type Overlap struct {
	AreaID       string    `json:"area_id"`
	ScheduleID   string    `json:"schedule_id"`
	ConflictID   string    `json:"conflicting_schedule_id"`
	OverlapStart time.Time `json:"overlap_start"`
	OverlapEnd   time.Time `json:"overlap_end"`
}

// Overlaps lists every pair of scheduled or active events in the same area whose
// windows share more than an instant. Pairs are ordered by overlap start.
func Overlaps(schedules []models.ScheduleEvent) []Overlap {
	byArea := make(map[string][]models.ScheduleEvent)
	for _, e := range schedules {
		if e.Status == models.StatusScheduled || e.Status == models.StatusActive {
			byArea[e.AreaID] = append(byArea[e.AreaID], e)
		}
	}

	overlaps := []Overlap{}
	for areaID, events := range byArea {
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Start.Before(events[j].Start)
		})
		for i := range events {
			for j := i + 1; j < len(events); j++ {
				a, b := events[i], events[j]
				if !b.Start.Before(a.End) {
					break
				}

				end := a.End
				if b.End.Before(end) {
					end = b.End
				}
				overlaps = append(overlaps, Overlap{
					AreaID:       areaID,
					ScheduleID:   a.ID,
					ConflictID:   b.ID,
					OverlapStart: b.Start,
					OverlapEnd:   end,
				})
			}
		}
	}

	sort.SliceStable(overlaps, func(i, j int) bool {
		if !overlaps[i].OverlapStart.Equal(overlaps[j].OverlapStart) {
			return overlaps[i].OverlapStart.Before(overlaps[j].OverlapStart)
		}
		return overlaps[i].ScheduleID < overlaps[j].ScheduleID
	})
	return overlaps
}
