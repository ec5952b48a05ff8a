package app

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/klabast/wb-services/waste-sensor/internal/schedule"
)

var testNow = time.Date(2018, 11, 12, 8, 30, 0, 0, time.UTC)

func testEvents() []Event {
	return []Event{
		{Date: "2018-11-15", Type: "trash", Description: "Trash collection"},
		{Date: "2018-11-23", Type: "green", Description: "Green collection"},
	}
}

func TestEventsFrom(t *testing.T) {
	collections := []schedule.WasteSchedule{
		{Type: schedule.Trash, PickupDate: time.Date(2018, 11, 15, 0, 0, 0, 0, time.UTC)},
		{Type: schedule.Green, PickupDate: time.Date(2018, 11, 23, 0, 0, 0, 0, time.UTC)},
		{Type: schedule.Trash, PickupDate: time.Date(2018, 11, 22, 0, 0, 0, 0, time.UTC)},
	}

	tests := []struct {
		name  string
		types []string
		want  []string
	}{
		{name: "All types", types: nil, want: []string{"2018-11-15 trash", "2018-11-23 green", "2018-11-22 trash"}},
		{name: "Only green", types: []string{"green"}, want: []string{"2018-11-23 green"}},
		{name: "Whitespace in filter", types: []string{" trash "}, want: []string{"2018-11-15 trash", "2018-11-22 trash"}},
		{name: "Unknown filter", types: []string{"paper"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := EventsFrom(collections, tt.types)
			got := make([]string, 0, len(events))
			for _, e := range events {
				got = append(got, e.Date+" "+e.Type)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("EventsFrom() = %v, want %v", got, tt.want)
			}
		})
	}

	if d := EventsFrom(collections[:1], nil)[0].Description; d != "Trash collection" {
		t.Errorf("Description = %q, want %q", d, "Trash collection")
	}
}

func TestWriteICS(t *testing.T) {
	var buf bytes.Buffer
	opts := ICSOptions{
		Name:      "Waste collection",
		Reminders: []Reminder{{DaysBefore: 1, At: "19:00"}},
	}
	if err := WriteICS(&buf, testEvents(), opts, testNow); err != nil {
		t.Fatalf("WriteICS() failed: %v", err)
	}
	body := buf.String()

	requiredFields := []string{
		"BEGIN:VCALENDAR\r\n",
		"VERSION:2.0",
		"PRODID:" + ICSProductID,
		"X-WR-CALNAME:Waste collection",
		"UID:2018-11-15-trash@" + ICSDomain,
		"DTSTAMP:20181112T083000Z",
		"DTSTART;VALUE=DATE:20181115",
		"DTEND;VALUE=DATE:20181116",
		"SUMMARY:Green collection",
		"CATEGORIES:GREEN",
		"BEGIN:VALARM",
		"TRIGGER:-P0DT5H0M",
		"END:VCALENDAR\r\n",
	}
	for _, field := range requiredFields {
		if !strings.Contains(body, field) {
			t.Errorf("ICS output missing required field: %q", field)
		}
	}

	if n := strings.Count(body, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("Expected 2 events, got %d", n)
	}
	if n := strings.Count(body, "BEGIN:VALARM"); n != 2 {
		t.Errorf("Expected one alarm per event, got %d", n)
	}
	if strings.Contains(body, "METHOD:PUBLISH") {
		t.Error("Download calendars should not carry METHOD:PUBLISH")
	}
}

func TestWriteICS_InvalidDateSkipped(t *testing.T) {
	var buf bytes.Buffer
	events := append(testEvents(), Event{Date: "not-a-date", Type: "trash", Description: "Trash collection"})
	if err := WriteICS(&buf, events, ICSOptions{Name: "x"}, testNow); err != nil {
		t.Fatalf("WriteICS() failed: %v", err)
	}
	if n := strings.Count(buf.String(), "BEGIN:VEVENT"); n != 2 {
		t.Errorf("Expected invalid event to be skipped, got %d events", n)
	}
}

func TestAlarmTrigger(t *testing.T) {
	tests := []struct {
		name       string
		daysBefore int
		at         string
		want       string
		wantErr    bool
	}{
		{name: "2 days before at 18:00", daysBefore: 2, at: "18:00", want: "-P1DT6H0M"},
		{name: "1 day before at 19:00", daysBefore: 1, at: "19:00", want: "-P0DT5H0M"},
		{name: "1 day before at 20:30", daysBefore: 1, at: "20:30", want: "-P0DT3H30M"},
		{name: "Same day at 07:00", daysBefore: 0, at: "07:00", want: "P0DT7H0M"},
		{name: "Same day at midnight", daysBefore: 0, at: "00:00", want: "P0DT0H0M"},
		{name: "Missing colon", daysBefore: 1, at: "1900", wantErr: true},
		{name: "Hour out of range", daysBefore: 1, at: "24:00", wantErr: true},
		{name: "Minute out of range", daysBefore: 1, at: "19:60", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AlarmTrigger(tt.daysBefore, tt.at)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AlarmTrigger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("AlarmTrigger() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testEvents()); err != nil {
		t.Fatalf("WriteCSV() failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d records", len(records))
	}
	if strings.Join(records[0], ",") != "date,type,description" {
		t.Errorf("Unexpected header: %v", records[0])
	}
	if strings.Join(records[1], ",") != "2018-11-15,trash,Trash collection" {
		t.Errorf("Unexpected first row: %v", records[1])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, testEvents(), testNow, 28); err != nil {
		t.Fatalf("WriteJSON() failed: %v", err)
	}

	var result struct {
		From   string  `json:"from"`
		Days   int     `json:"days"`
		Events []Event `json:"events"`
	}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	if result.From != "2018-11-12" || result.Days != 28 {
		t.Errorf("Unexpected range: from=%s days=%d", result.From, result.Days)
	}
	if len(result.Events) != 2 || result.Events[1].Type != "green" {
		t.Errorf("Unexpected events: %+v", result.Events)
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Export(&buf, "pdf", testEvents(), ICSOptions{}, testNow, 7, testNow)
	if err == nil || !strings.Contains(err.Error(), ErrInvalidFormat) {
		t.Errorf("Export() error = %v, want %s", err, ErrInvalidFormat)
	}
	if buf.Len() != 0 {
		t.Error("Nothing should be written for an unknown format")
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		FormatICS:  "text/calendar; charset=utf-8",
		FormatCSV:  "text/csv; charset=utf-8",
		FormatJSON: "application/json; charset=utf-8",
		"pdf":      "application/octet-stream",
	}
	for format, want := range tests {
		if got := ContentType(format); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", format, got, want)
		}
	}
}
