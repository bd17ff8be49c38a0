package analytics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes the daily series as CSV with a header row.
func WriteCSV(w io.Writer, points []DayPoint) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"date", "outages", "duration_hours"}); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, p := range points {
		row := []string{
			p.Date,
			strconv.Itoa(p.Outages),
			strconv.FormatFloat(roundTenth(p.DurationHours), 'f', 1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row %s: %w", p.Date, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
