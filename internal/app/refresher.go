package app

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/waste-sensor/internal/schedule"
)

// Refresher periodically recomputes the sensor readings and keeps the last
// published state for readers.
type Refresher struct {
	engine   *schedule.Engine
	sensors  []Sensor
	clock    clockwork.Clock
	interval time.Duration
	log      *zap.Logger
	metrics  *Metrics

	mu       sync.RWMutex
	readings map[string]Reading
}

// NewRefresher creates a refresher. A nil logger or metrics disables them.
func NewRefresher(engine *schedule.Engine, sensors []Sensor, clock clockwork.Clock, interval time.Duration, log *zap.Logger, metrics *Metrics) *Refresher {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		engine:   engine,
		sensors:  sensors,
		clock:    clock,
		interval: interval,
		log:      log,
		metrics:  metrics,
		readings: make(map[string]Reading, len(sensors)),
	}
}

// Now returns the current time of the refresher's clock
func (r *Refresher) Now() time.Time {
	return r.clock.Now()
}

// Today returns the current calendar date according to the clock
func (r *Refresher) Today() time.Time {
	return schedule.Date(r.clock.Now())
}

// Engine returns the schedule engine the sensors read from
func (r *Refresher) Engine() *schedule.Engine {
	return r.engine
}

// Refresh recomputes every sensor reading
func (r *Refresher) Refresh() {
	now := r.clock.Now()
	today := schedule.Date(now)

	fresh := make(map[string]Reading, len(r.sensors))
	for _, s := range r.sensors {
		reading := s.Read(today)
		reading.UpdatedAt = now
		fresh[s.Resource()] = reading

		state := "<nil>"
		if reading.State != nil {
			state = *reading.State
		}
		r.log.Debug("sensor updated",
			zap.String("resource", s.Resource()),
			zap.String("state", state))
	}

	r.mu.Lock()
	r.readings = fresh
	r.mu.Unlock()

	if r.metrics != nil {
		next := make(map[schedule.WasteType]*schedule.WasteSchedule, 2)
		for _, t := range []schedule.WasteType{schedule.Trash, schedule.Green} {
			if s, ok := r.engine.NextCollectionOf(t, today); ok {
				next[t] = &s
			} else {
				next[t] = nil
			}
		}
		r.metrics.ObserveRefresh(today, next)
	}
}

// Run refreshes immediately and then on every tick until ctx is done
func (r *Refresher) Run(ctx context.Context) error {
	t := r.clock.NewTicker(r.interval)
	defer t.Stop()

	r.Refresh()
	r.log.Info("refresher started",
		zap.Duration("interval", r.interval),
		zap.Int("sensors", len(r.sensors)))

	for {
		select {
		case <-ctx.Done():
			r.log.Info("refresher stopped")
			return ctx.Err()
		case <-t.Chan():
			r.Refresh()
		}
	}
}

// Readings returns the last readings in sensor order
func (r *Refresher) Readings() []Reading {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Reading, 0, len(r.sensors))
	for _, s := range r.sensors {
		if reading, ok := r.readings[s.Resource()]; ok {
			out = append(out, reading)
		}
	}
	return out
}

// Reading returns the last reading of one resource
func (r *Refresher) Reading(resource string) (Reading, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reading, ok := r.readings[resource]
	return reading, ok
}
