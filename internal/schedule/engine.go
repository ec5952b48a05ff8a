package schedule

import (
	"slices"
	"time"
)

// Engine evaluates a RuleConfig against calendar dates. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	rules RuleConfig
}

// New creates an engine for the given rules. The override dates are copied,
// normalised to calendar dates and sorted.
func New(rules RuleConfig) *Engine {
	dates := make([]time.Time, len(rules.OffSeasonDates))
	for i, d := range rules.OffSeasonDates {
		dates[i] = Date(d)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	rules.OffSeasonDates = dates
	return &Engine{rules: rules}
}

// Rules returns a copy of the engine's configuration
func (e *Engine) Rules() RuleConfig {
	r := e.rules
	r.OffSeasonDates = slices.Clone(e.rules.OffSeasonDates)
	return r
}

// NextCollectionOn returns the next date with the given weekday strictly
// after date. Days earlier in the week than day resolve within the same
// week, everything else rolls into the next week.
func NextCollectionOn(day int, date time.Time) time.Time {
	date = Date(date)
	w := weekday(date)
	if w < day {
		return date.AddDate(0, 0, day-w)
	}
	return date.AddDate(0, 0, day+7-w)
}

// onOrAfter returns the first date with the given weekday that is not
// before date.
func onOrAfter(day int, date time.Time) time.Time {
	return NextCollectionOn(day, Date(date).AddDate(0, 0, -1))
}

// TrashCollectionDay returns the trash pickup on or after date
func (e *Engine) TrashCollectionDay(date time.Time) time.Time {
	return onOrAfter(e.rules.TrashDay, date)
}

func (e *Engine) offSeason(month time.Month) bool {
	m := int(month)
	return m < e.rules.SeasonStartMonth || m > e.rules.SeasonEndMonth
}

// OffSeasonDay returns the first override date not before date
func (e *Engine) OffSeasonDay(date time.Time) (time.Time, bool) {
	date = Date(date)
	for _, d := range e.rules.OffSeasonDates {
		if !d.Before(date) {
			return d, true
		}
	}
	return time.Time{}, false
}

// GreenCollectionDay returns the green pickup relative to date. ok is false
// when the season is over and no override date is left.
func (e *Engine) GreenCollectionDay(date time.Time) (time.Time, bool) {
	date = Date(date)

	if e.offSeason(date.Month()) {
		if day, ok := e.OffSeasonDay(date); ok {
			return day, true
		}
	}

	day := onOrAfter(e.rules.GreenDay, date)
	_, week := day.ISOWeek()
	if (e.rules.GreenParity == Odd && week%2 == 0) || (e.rules.GreenParity == Even && week%2 == 1) {
		day = day.AddDate(0, 0, 7)
	}

	// parity shift can push the candidate out of season
	if e.offSeason(day.Month()) {
		return e.OffSeasonDay(date)
	}
	return day, true
}

// NextCollectionOf returns the next collection of type t relative to today.
// Unknown types yield ok == false.
func (e *Engine) NextCollectionOf(t WasteType, today time.Time) (WasteSchedule, bool) {
	switch t {
	case Trash:
		return WasteSchedule{Type: Trash, PickupDate: e.TrashCollectionDay(today)}, true
	case Green:
		day, ok := e.GreenCollectionDay(today)
		if !ok {
			return WasteSchedule{}, false
		}
		return WasteSchedule{Type: Green, PickupDate: day}, true
	}
	return WasteSchedule{}, false
}

// CollectionOn reports the collection taking place on date. Trash wins when
// both types fall on the same day.
func (e *Engine) CollectionOn(date time.Time) (WasteSchedule, bool) {
	all := e.CollectionsOn(date)
	if len(all) == 0 {
		return WasteSchedule{}, false
	}
	return all[0], true
}

// CollectionsOn returns every collection taking place on date, trash first
func (e *Engine) CollectionsOn(date time.Time) []WasteSchedule {
	date = Date(date)

	var out []WasteSchedule
	if e.TrashCollectionDay(date).Equal(date) {
		out = append(out, WasteSchedule{Type: Trash, PickupDate: date})
	}
	if day, ok := e.GreenCollectionDay(date); ok && day.Equal(date) {
		out = append(out, WasteSchedule{Type: Green, PickupDate: date})
	}
	return out
}

// CollectionToday is CollectionOn for today
func (e *Engine) CollectionToday(today time.Time) (WasteSchedule, bool) {
	return e.CollectionOn(today)
}

// CollectionTomorrow is CollectionOn for the day after today
func (e *Engine) CollectionTomorrow(today time.Time) (WasteSchedule, bool) {
	return e.CollectionOn(Date(today).AddDate(0, 0, 1))
}

// Upcoming lists all collections in [from, from+days) in date order
func (e *Engine) Upcoming(from time.Time, days int) []WasteSchedule {
	from = Date(from)

	var out []WasteSchedule
	for i := 0; i < days; i++ {
		out = append(out, e.CollectionsOn(from.AddDate(0, 0, i))...)
	}
	return out
}
