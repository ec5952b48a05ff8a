package schedule

import (
	"fmt"
	"time"
)

// WasteType identifies a collected waste stream
type WasteType string

const (
	Trash WasteType = "trash"
	Green WasteType = "green"
)

// Parity selects which ISO weeks the green schedule applies to
type Parity int

const (
	Odd Parity = iota
	Even
)

// ParseParity converts the "odd"/"even" configuration value
func ParseParity(s string) (Parity, error) {
	switch s {
	case "odd":
		return Odd, nil
	case "even":
		return Even, nil
	}
	return Odd, fmt.Errorf("invalid week parity %q (expected odd or even)", s)
}

func (p Parity) String() string {
	if p == Even {
		return "even"
	}
	return "odd"
}

// RuleConfig holds the collection rules. Weekdays use Monday = 0.
type RuleConfig struct {
	TrashDay         int
	GreenDay         int
	GreenParity      Parity
	SeasonStartMonth int
	SeasonEndMonth   int
	// OffSeasonDates are sorted by New
	OffSeasonDates []time.Time
}

// WasteSchedule is a single collection of one waste type
type WasteSchedule struct {
	Type       WasteType
	PickupDate time.Time
}

// DateLayout is the canonical YYYY-MM-DD date format
const DateLayout = "2006-01-02"

// Date truncates t to its calendar date at midnight UTC
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// weekday returns the Monday = 0 weekday index of t
func weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
