// Package calendar renders schedule events as iCalendar (RFC 5545) files.
package calendar

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/loadshedding-tracker/backend/internal/analytics"
	"github.com/loadshedding-tracker/backend/internal/storage/models"
)

// ProductID identifies this service in PRODID.
const ProductID = "-//Load Shedding Tracker//Schedules//EN"

const (
	utcLayout = "20060102T150405Z"
	// maxLineOctets is the RFC 5545 content line limit, excluding CRLF.
	maxLineOctets = 75
)

// Feed describes one exported calendar.
type Feed struct {
	Name     string
	Timezone string
	Outages  []analytics.Outage
	Stamp    time.Time
}

// WriteICS writes f as a VCALENDAR with one VEVENT per outage. All times are UTC.
func WriteICS(w io.Writer, f Feed) error {
	bw := bufio.NewWriter(w)
	lw := &lineWriter{w: bw}

	lw.line("BEGIN:VCALENDAR")
	lw.line("VERSION:2.0")
	lw.line("PRODID:" + ProductID)
	lw.line("METHOD:PUBLISH")
	lw.line("CALSCALE:GREGORIAN")
	lw.line("X-WR-CALNAME:" + escapeText(f.Name))
	if f.Timezone != "" {
		lw.line("X-WR-TIMEZONE:" + f.Timezone)
	}
	lw.line("X-PUBLISHED-TTL:PT1H")

	stamp := f.Stamp.UTC().Format(utcLayout)
	for _, o := range f.Outages {
		e := o.Schedule
		areaName := e.AreaID
		if o.Area != nil {
			areaName = o.Area.Name
		}

		lw.line("BEGIN:VEVENT")
		lw.line(fmt.Sprintf("UID:%s@loadshedding-tracker", e.ID))
		lw.line("DTSTAMP:" + stamp)
		lw.line("DTSTART:" + e.Start.UTC().Format(utcLayout))
		lw.line("DTEND:" + e.End.UTC().Format(utcLayout))
		lw.line(fmt.Sprintf("SUMMARY:%s - Stage %d", escapeText(areaName), e.Stage))
		lw.line(fmt.Sprintf("DESCRIPTION:%s", escapeText(description(o))))
		lw.line("LOCATION:" + escapeText(areaName))
		lw.line("CATEGORIES:LOAD SHEDDING")
		lw.line("STATUS:" + icsStatus(e.Status))
		lw.line("END:VEVENT")
	}

	lw.line("END:VCALENDAR")
	if lw.err != nil {
		return fmt.Errorf("writing calendar: %w", lw.err)
	}
	return bw.Flush()
}

func description(o analytics.Outage) string {
	return fmt.Sprintf("Scheduled power outage (stage %d, %.1f hours). Status: %s.",
		o.Schedule.Stage, o.DurationHours, o.Schedule.Status)
}

func icsStatus(s models.ScheduleStatus) string {
	if s == models.StatusCancelled {
		return "CANCELLED"
	}
	return "CONFIRMED"
}

// escapeText escapes a TEXT value per RFC 5545 section 3.3.11.
func escapeText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		";", `\;`,
		",", `\,`,
		"\r\n", `\n`,
		"\n", `\n`,
	)
	return r.Replace(s)
}

// lineWriter emits CRLF-terminated content lines, folding long ones.
type lineWriter struct {
	w   io.Writer
	err error
}

func (l *lineWriter) line(s string) {
	if l.err != nil {
		return
	}
	for _, part := range fold(s) {
		if _, err := io.WriteString(l.w, part+"\r\n"); err != nil {
			l.err = err
			return
		}
	}
}

// fold splits s into chunks of at most maxLineOctets bytes without breaking
// UTF-8 sequences. Continuation chunks start with a single space.
func fold(s string) []string {
	if len(s) <= maxLineOctets {
		return []string{s}
	}

	var parts []string
	for len(s) > maxLineOctets {
		cut := maxLineOctets
		for cut > 1 && !utf8Start(s[cut]) {
			cut--
		}
		parts = append(parts, s[:cut])
		s = " " + s[cut:]
	}
	return append(parts, s)
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}
