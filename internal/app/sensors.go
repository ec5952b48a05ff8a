package app

import (
	"fmt"
	"time"

	"github.com/klabast/wb-services/waste-sensor/internal/schedule"
)

// Scheduler is the part of the engine the sensors depend on
type Scheduler interface {
	NextCollectionOf(t schedule.WasteType, today time.Time) (schedule.WasteSchedule, bool)
	CollectionOn(date time.Time) (schedule.WasteSchedule, bool)
}

// NewSensor creates the sensor published for a resource name
func NewSensor(engine Scheduler, resource string) (Sensor, error) {
	switch resource {
	case ResourceToday:
		return NewTodaySensor(engine), nil
	case ResourceTomorrow:
		return NewTomorrowSensor(engine), nil
	case ResourceTrash, ResourceGreen:
		return NewTypedSensor(engine, schedule.WasteType(resource)), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownResource, resource)
}

// NewSensors creates one sensor per configured resource
func NewSensors(engine Scheduler, resources []string) ([]Sensor, error) {
	sensors := make([]Sensor, 0, len(resources))
	for _, r := range resources {
		s, err := NewSensor(engine, r)
		if err != nil {
			return nil, err
		}
		sensors = append(sensors, s)
	}
	return sensors, nil
}

// TypedSensor publishes the next pickup date of one waste type
type TypedSensor struct {
	engine    Scheduler
	wasteType schedule.WasteType
}

// NewTypedSensor creates the sensor for the next pickup of t
func NewTypedSensor(engine Scheduler, t schedule.WasteType) *TypedSensor {
	return &TypedSensor{engine: engine, wasteType: t}
}

// Resource returns the waste type name
func (s *TypedSensor) Resource() string { return string(s.wasteType) }

// Read returns the next pickup date of the waste type, or a nil state when
// none is scheduled.
func (s *TypedSensor) Read(today time.Time) Reading {
	r := newReading(s.Resource())
	if sched, ok := s.engine.NextCollectionOf(s.wasteType, today); ok {
		state := sched.PickupDate.Format(schedule.DateLayout)
		r.State = &state
		r.Attributes = scheduleAttributes(sched)
	}
	return r
}

// DaySensor publishes which waste type is collected on today + offset.
// Today and Tomorrow differ only in the offset.
type DaySensor struct {
	engine   Scheduler
	resource string
	offset   int
}

// NewTodaySensor reports the collection of the current day
func NewTodaySensor(engine Scheduler) *DaySensor {
	return &DaySensor{engine: engine, resource: ResourceToday}
}

// NewTomorrowSensor reports the collection of the following day
func NewTomorrowSensor(engine Scheduler) *DaySensor {
	return &DaySensor{engine: engine, resource: ResourceTomorrow, offset: 1}
}

// Resource returns today or tomorrow
func (s *DaySensor) Resource() string { return s.resource }

// Read returns the label of the type collected on the sensor's day, or
// NoneState.
func (s *DaySensor) Read(today time.Time) Reading {
	r := newReading(s.resource)
	date := schedule.Date(today).AddDate(0, 0, s.offset)

	state := NoneState
	if sched, ok := s.engine.CollectionOn(date); ok {
		state = SensorTypes[string(sched.Type)].Label
		r.Attributes = scheduleAttributes(sched)
	} else {
		r.Attributes = map[string]string{AttrDate: date.Format(schedule.DateLayout)}
	}
	r.State = &state
	return r
}

func newReading(resource string) Reading {
	st := SensorTypes[resource]
	return Reading{
		Resource: resource,
		Name:     "Waste " + st.Label,
		Icon:     st.Icon,
	}
}

func scheduleAttributes(s schedule.WasteSchedule) map[string]string {
	return map[string]string{
		AttrDate:      s.PickupDate.Format(schedule.DateLayout),
		AttrTrashType: string(s.Type),
	}
}
