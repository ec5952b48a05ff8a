package app

import (
	"time"

	"github.com/klabast/wb-services/waste-sensor/internal/schedule"
)

// Resource names
const (
	ResourceToday    = "today"
	ResourceTomorrow = "tomorrow"
	ResourceTrash    = string(schedule.Trash)
	ResourceGreen    = string(schedule.Green)
)

// Attribute keys
const (
	AttrDate      = "date"
	AttrTrashType = "trash_type"
)

// NoneState is published by the day sensors when nothing is collected
const NoneState = "None"

// SensorType describes how a sensor is presented
type SensorType struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// SensorTypes maps resource names to their presentation
var SensorTypes = map[string]SensorType{
	ResourceToday:    {Label: "Today", Icon: "mdi:recycle"},
	ResourceTomorrow: {Label: "Tomorrow", Icon: "mdi:recycle"},
	ResourceTrash:    {Label: "Trash", Icon: "mdi:recycle"},
	ResourceGreen:    {Label: "Green", Icon: "mdi:recycle"},
}

// Reading is the published state of one sensor
type Reading struct {
	Resource   string            `json:"resource"`
	Name       string            `json:"name"`
	Icon       string            `json:"icon"`
	State      *string           `json:"state"`
	Attributes map[string]string `json:"attributes"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Sensor computes its current reading for a given day
type Sensor interface {
	Resource() string
	Read(today time.Time) Reading
}
