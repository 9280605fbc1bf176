package webapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nergy-se/hourcontroller/pkg/api/v1/meter"
	"github.com/nergy-se/hourcontroller/pkg/api/v1/types"
	"github.com/nergy-se/hourcontroller/pkg/hourselection"
	"github.com/nergy-se/hourcontroller/pkg/state"
	"github.com/nergy-se/hourcontroller/pkg/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Status struct {
	State   state.State           `json:"state"`
	Alarms  []string              `json:"alarms"`
	Meters  map[string]meter.Data `json:"meters,omitempty"`
	Version version.Info          `json:"version"`
}

// Backend is the controller behind the http api.
type Backend interface {
	Status() Status
	HoursToday() hourselection.HourObject
	HoursTomorrow() hourselection.HourObject
	DoUpdate(caller string) error
	SetMockHour(hour int)
	ClearMockHour()
}

type Server struct {
	backend  Backend
	gatherer prometheus.Gatherer
	mounts   map[string]http.Handler
}

func NewServer(backend Backend, gatherer prometheus.Gatherer) *Server {
	return &Server{
		backend:  backend,
		gatherer: gatherer,
		mounts:   map[string]http.Handler{},
	}
}

// Mount adds a sub router, for example the development endpoints of a gate.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.mounts[pattern] = h
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/hours", s.handleHours)
		r.Get("/hours/{day}", s.handleHoursDay)
		r.Post("/update", s.handleUpdate)
		r.Put("/mockhour", s.handleSetMockHour)
		r.Delete("/mockhour", s.handleClearMockHour)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	for pattern, h := range s.mounts {
		r.Mount(pattern, h)
	}
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.backend.Status())
}

func (s *Server) handleHours(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]hourselection.HourObject{
		types.DayToday:    s.backend.HoursToday(),
		types.DayTomorrow: s.backend.HoursTomorrow(),
	})
}

func (s *Server) handleHoursDay(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "day") {
	case types.DayToday:
		respondJSON(w, http.StatusOK, s.backend.HoursToday())
	case types.DayTomorrow:
		respondJSON(w, http.StatusOK, s.backend.HoursTomorrow())
	default:
		respondError(w, http.StatusNotFound, "unknown day")
	}
}

var updateCallers = map[string]bool{
	hourselection.CallerToday:    true,
	hourselection.CallerTomorrow: true,
	hourselection.CallerHour:     true,
	hourselection.CallerOptions:  true,
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	caller := r.URL.Query().Get("caller")
	if caller == "" {
		caller = hourselection.CallerHour
	}
	if !updateCallers[caller] {
		respondError(w, http.StatusBadRequest, "unknown caller")
		return
	}

	err := s.backend.DoUpdate(caller)
	if errors.Is(err, hourselection.ErrInvalidOptions) {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.handleHours(w, r)
}

func (s *Server) handleSetMockHour(w http.ResponseWriter, r *http.Request) {
	hour, err := strconv.Atoi(r.URL.Query().Get("hour"))
	if err != nil || hour < 0 || hour > 23 {
		respondError(w, http.StatusBadRequest, "hour must be 0-23")
		return
	}
	s.backend.SetMockHour(hour)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearMockHour(w http.ResponseWriter, r *http.Request) {
	s.backend.ClearMockHour()
	w.WriteHeader(http.StatusNoContent)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logrus.WithFields(logrus.Fields{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"duration":  time.Since(start),
			"requestId": middleware.GetReqID(r.Context()),
		}).Debug("webapi: request")
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		logrus.Errorf("webapi: error encoding response: %s", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
