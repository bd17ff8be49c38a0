package store

import (
	"fmt"
	"strings"

	"github.com/loadshedding-tracker/backend/internal/storage/models"
)

func validateArea(a models.Area) error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrMissingName
	}
	if !models.ValidStage(a.Stage) {
		return fmt.Errorf("%w: got %d", ErrInvalidStage, a.Stage)
	}
	if a.Duration <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidDuration, a.Duration)
	}
	return nil
}

func validateSchedule(e models.ScheduleEvent) error {
	if !models.ValidStage(e.Stage) {
		return fmt.Errorf("%w: got %d", ErrInvalidStage, e.Stage)
	}
	if !e.End.After(e.Start) {
		return ErrInvalidRange
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, e.Status)
	}
	return nil
}
