package app

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/klabast/wb-services/waste-sensor/internal/schedule"
)

// Export formats
const (
	FormatICS  = "ics"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Event is a single collection as it appears in exports
type Event struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// EventsFrom converts computed collections into export events, keeping
// only the given types (all types when types is empty).
func EventsFrom(collections []schedule.WasteSchedule, types []string) []Event {
	keep := make(map[string]bool, len(types))
	for _, t := range types {
		keep[strings.TrimSpace(t)] = true
	}

	events := make([]Event, 0, len(collections))
	for _, c := range collections {
		if len(keep) > 0 && !keep[string(c.Type)] {
			continue
		}
		events = append(events, Event{
			Date:        c.PickupDate.Format(schedule.DateLayout),
			Type:        string(c.Type),
			Description: SensorTypes[string(c.Type)].Label + " collection",
		})
	}
	return events
}

// Reminder is a VALARM firing at a wall-clock time some days before the
// collection
type Reminder struct {
	DaysBefore int
	At         string // HH:MM
}

// ICSOptions controls calendar generation
type ICSOptions struct {
	Name string
	// Subscription feeds carry METHOD:PUBLISH and a refresh hint and never
	// contain alarms.
	Subscription bool
	Reminders    []Reminder
}

// icsWriter writes CRLF terminated lines and keeps the first error
type icsWriter struct {
	w   *bufio.Writer
	err error
}

func (iw *icsWriter) line(format string, args ...any) {
	if iw.err != nil {
		return
	}
	_, iw.err = fmt.Fprintf(iw.w, format+"\r\n", args...)
}

// WriteICS writes the events as all-day iCalendar events
func WriteICS(w io.Writer, events []Event, opts ICSOptions, now time.Time) error {
	iw := &icsWriter{w: bufio.NewWriter(w)}
	stamp := now.UTC().Format("20060102T150405Z")

	iw.line("BEGIN:VCALENDAR")
	iw.line("VERSION:2.0")
	iw.line("PRODID:%s", ICSProductID)
	if opts.Subscription {
		iw.line("METHOD:PUBLISH")
	}
	iw.line("X-WR-CALNAME:%s", opts.Name)
	iw.line("CALSCALE:GREGORIAN")
	if opts.Subscription {
		iw.line("X-PUBLISHED-TTL:PT1H")
	}

	for _, event := range events {
		date, err := time.Parse(schedule.DateLayout, event.Date)
		if err != nil {
			continue
		}

		iw.line("BEGIN:VEVENT")
		// stable UID so subscribed calendars update in place
		iw.line("UID:%s-%s@%s", event.Date, event.Type, ICSDomain)
		iw.line("DTSTAMP:%s", stamp)
		iw.line("DTSTART;VALUE=DATE:%s", date.Format("20060102"))
		iw.line("DTEND;VALUE=DATE:%s", date.AddDate(0, 0, 1).Format("20060102"))
		iw.line("SUMMARY:%s", event.Description)
		iw.line("CATEGORIES:%s", strings.ToUpper(event.Type))

		if !opts.Subscription {
			for _, rem := range opts.Reminders {
				trigger, err := AlarmTrigger(rem.DaysBefore, rem.At)
				if err != nil {
					continue
				}
				iw.line("BEGIN:VALARM")
				iw.line("ACTION:DISPLAY")
				iw.line("DESCRIPTION:Reminder: %s", event.Description)
				iw.line("TRIGGER:%s", trigger)
				iw.line("END:VALARM")
			}
		}

		iw.line("END:VEVENT")
	}

	iw.line("END:VCALENDAR")
	if iw.err != nil {
		return iw.err
	}
	return iw.w.Flush()
}

// AlarmTrigger returns the ISO 8601 duration of an alarm at HH:MM on the
// day daysBefore the all-day event, relative to the event's midnight start.
func AlarmTrigger(daysBefore int, at string) (string, error) {
	hh, mm, ok := strings.Cut(at, ":")
	if !ok {
		return "", fmt.Errorf("invalid alarm time %q", at)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid alarm hour %q", at)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid alarm minute %q", at)
	}

	total := -daysBefore*24*60 + hour*60 + minute
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	return fmt.Sprintf("%sP%dDT%dH%dM", sign, total/(24*60), (total%(24*60))/60, total%60), nil
}

// WriteCSV writes the events with a header row
func WriteCSV(w io.Writer, events []Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "type", "description"}); err != nil {
		return err
	}
	for _, e := range events {
		if err := cw.Write([]string{e.Date, e.Type, e.Description}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the events together with the covered range
func WriteJSON(w io.Writer, events []Event, from time.Time, days int) error {
	data := map[string]any{
		"from":   schedule.Date(from).Format(schedule.DateLayout),
		"days":   days,
		"events": events,
	}
	return json.NewEncoder(w).Encode(data)
}

// ContentType returns the MIME type of an export format
func ContentType(format string) string {
	switch format {
	case FormatICS:
		return "text/calendar; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	}
	return "application/octet-stream"
}

// Export writes the events in the given format
func Export(w io.Writer, format string, events []Event, opts ICSOptions, from time.Time, days int, now time.Time) error {
	switch format {
	case FormatICS:
		return WriteICS(w, events, opts, now)
	case FormatCSV:
		return WriteCSV(w, events)
	case FormatJSON:
		return WriteJSON(w, events, from, days)
	}
	return fmt.Errorf("%s: %q", ErrInvalidFormat, format)
}
