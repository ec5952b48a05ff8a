package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/waste-sensor/internal/schedule"
)

// MaxExportDays bounds the range of exports and subscription feeds
const MaxExportDays = 730

// Server publishes the sensor readings and schedule queries over HTTP
type Server struct {
	refresher *Refresher
	auth      *BasicAuth
	metrics   *Metrics
	log       *zap.Logger
}

// NewServer creates the HTTP surface. auth and metrics may be nil.
func NewServer(refresher *Refresher, auth *BasicAuth, metrics *Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{refresher: refresher, auth: auth, metrics: metrics, log: log}
}

// CollectionResponse is the JSON form of a schedule query result
type CollectionResponse struct {
	Date       string  `json:"date"`
	Collection *string `json:"trash_type"`
}

// Routes returns the router of the service
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Instrument)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Get("/sensors", s.handleSensors)
		r.Get("/sensors/{resource}", s.handleSensor)
		r.Get("/collections/next/{type}", s.handleNext)
		r.Get("/collections/on/{date}", s.handleOn)
		r.Get("/download", s.handleDownload)
		r.Get("/subscribe", s.handleSubscribe)
	})

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("error encoding response", zap.Error(err))
	}
}

// handleSensors returns the last reading of every published sensor
func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.refresher.Readings())
}

// handleSensor returns the last reading of one sensor
// URL: /api/sensors/{resource}
func (s *Server) handleSensor(w http.ResponseWriter, r *http.Request) {
	reading, ok := s.refresher.Reading(chi.URLParam(r, "resource"))
	if !ok {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, reading)
}

// handleNext returns the next collection of a waste type
// URL: /api/collections/next/{type}
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	t := schedule.WasteType(chi.URLParam(r, "type"))
	if t != schedule.Trash && t != schedule.Green {
		http.Error(w, ErrUnknownType, http.StatusNotFound)
		return
	}

	resp := CollectionResponse{}
	if sched, ok := s.refresher.Engine().NextCollectionOf(t, s.refresher.Today()); ok {
		resp = collectionResponse(sched)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleOn reports which waste type is collected on a date
// URL: /api/collections/on/{date}
func (s *Server) handleOn(w http.ResponseWriter, r *http.Request) {
	date, err := ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		http.Error(w, ErrInvalidDateFormat, http.StatusBadRequest)
		return
	}

	resp := CollectionResponse{Date: date.Format(schedule.DateLayout)}
	if sched, ok := s.refresher.Engine().CollectionOn(date); ok {
		resp = collectionResponse(sched)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func collectionResponse(sched schedule.WasteSchedule) CollectionResponse {
	t := string(sched.Type)
	return CollectionResponse{
		Date:       sched.PickupDate.Format(schedule.DateLayout),
		Collection: &t,
	}
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(schedule.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// exportQuery holds the parsed range and filter of an export request
type exportQuery struct {
	from  time.Time
	days  int
	types []string
}

func (s *Server) parseExportQuery(r *http.Request) (exportQuery, error) {
	q := exportQuery{from: s.refresher.Today(), days: DefaultExportDays}

	if v := r.URL.Query().Get("from"); v != "" {
		from, err := ParseDate(v)
		if err != nil {
			return q, err
		}
		q.from = from
	}
	if v := r.URL.Query().Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 || days > MaxExportDays {
			return q, fmt.Errorf("%s: %q", ErrInvalidDays, v)
		}
		q.days = days
	}
	if v := r.URL.Query().Get("types"); v != "" {
		q.types = strings.Split(v, ",")
	}
	return q, nil
}

// exportQueryError maps a query parsing error to its response message
func exportQueryError(err error) string {
	if errors.Is(err, ErrInvalidDate) {
		return ErrInvalidDateFormat
	}
	return ErrInvalidDays
}

func (q exportQuery) events(e *schedule.Engine) []Event {
	return EventsFrom(e.Upcoming(q.from, q.days), q.types)
}

// remindersFromQuery reads the reminder settings of a download request
func remindersFromQuery(r *http.Request) []Reminder {
	params := []struct {
		enabled, at string
		daysBefore  int
	}{
		{"reminder2Days", "time2Days", 2},
		{"reminder1Day", "time1Day", 1},
		{"reminderSameDay", "timeSameDay", 0},
	}

	var out []Reminder
	for _, p := range params {
		if r.URL.Query().Get(p.enabled) == "true" && r.URL.Query().Get(p.at) != "" {
			out = append(out, Reminder{DaysBefore: p.daysBefore, At: r.URL.Query().Get(p.at)})
		}
	}
	return out
}

// handleDownload exports upcoming collections as ICS, CSV or JSON
// Query params: format, from, days, types and the reminder settings
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != FormatICS && format != FormatCSV && format != FormatJSON {
		http.Error(w, ErrInvalidFormat, http.StatusBadRequest)
		return
	}

	q, err := s.parseExportQuery(r)
	if err != nil {
		http.Error(w, exportQueryError(err), http.StatusBadRequest)
		return
	}

	opts := ICSOptions{Name: "Waste collection", Reminders: remindersFromQuery(r)}

	w.Header().Set("Content-Type", ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=waste_%s_%dd.%s",
		q.from.Format(schedule.DateLayout), q.days, format))

	if err := Export(w, format, q.events(s.refresher.Engine()), opts, q.from, q.days, s.refresher.Now()); err != nil {
		s.log.Error("error writing export", zap.String("format", format), zap.Error(err))
	}
}

// handleSubscribe serves an ICS subscription feed of upcoming collections.
// Unlike downloads it is inline content without alarms.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseExportQuery(r)
	if err != nil {
		http.Error(w, exportQueryError(err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", ContentType(FormatICS))
	opts := ICSOptions{Name: "Waste collection", Subscription: true}
	if err := WriteICS(w, q.events(s.refresher.Engine()), opts, s.refresher.Now()); err != nil {
		s.log.Error("error writing subscription feed", zap.Error(err))
	}
}

// Start serves h on addr until ctx is cancelled
func Start(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("error shutting down server", zap.Error(err))
		}
	}()

	log.Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
