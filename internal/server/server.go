// Package server exposes the aggregation over HTTP. Every data request runs
// the pipeline afresh; nothing is stored between requests.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Eldo84/live-health-sub002/internal/category"
	"github.com/Eldo84/live-health-sub002/internal/config"
	"github.com/Eldo84/live-health-sub002/internal/dedup"
	"github.com/Eldo84/live-health-sub002/internal/geo"
	"github.com/Eldo84/live-health-sub002/internal/model"
	"github.com/Eldo84/live-health-sub002/internal/pipeline"
	"github.com/Eldo84/live-health-sub002/internal/session"
)

// SessionHeader carries the client's session id. Requests without one keep no
// state: only that request's own lat/lon is used.
const SessionHeader = "X-Session-ID"

// Runner performs one aggregation.
type Runner interface {
	Run(ctx context.Context) (pipeline.Result, error)
}

type Server struct {
	runner   Runner
	log      *zap.Logger
	now      func() time.Time
	sessions *sessionStore

	router *mux.Router
	server *http.Server
}

func New(cfg config.ServerConfig, sess config.SessionConfig, runner Runner, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		runner:   runner,
		log:      log,
		now:      time.Now,
		sessions: newSessionStore(sess.MaxSessions, sess.IdleTTL, sess.PermissionTimeout),
		router:   mux.NewRouter(),
	}
	s.router.HandleFunc("/api/v1/outbreaks", s.handleOutbreaks).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/categories", s.handleCategories).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/diseases/growth", s.handleGrowth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/session", s.handleResetSession).Methods(http.MethodDelete)
	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.server = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler              { return s.router }
func (s *Server) Serve() error                       { return s.server.ListenAndServe() }
func (s *Server) Shutdown(ctx context.Context) error { return s.server.Shutdown(ctx) }

// run executes the pipeline for r. ok is false when the client went away;
// nothing must be written then.
func (s *Server) run(r *http.Request) (pipeline.Result, bool) {
	res, err := s.runner.Run(r.Context())
	if err != nil {
		s.log.Debug("request cancelled before the run finished", zap.String("path", r.URL.Path), zap.Error(err))
		return pipeline.Result{}, false
	}
	return res, true
}

type outbreaksResponse struct {
	RunID   string                 `json:"run_id"`
	Stage   pipeline.Stage         `json:"stage"`
	Origin  *model.Position        `json:"origin,omitempty"`
	Signals []model.OutbreakSignal `json:"signals"`
}

func (s *Server) handleOutbreaks(w http.ResponseWriter, r *http.Request) {
	origin := s.position(r)
	res, ok := s.run(r)
	if !ok {
		return
	}
	out := outbreaksResponse{RunID: res.RunID, Stage: res.Stage, Signals: res.Signals}
	if origin != nil {
		out.Origin = origin
		byDistance(out.Signals, *origin)
	}
	writeJSON(w, http.StatusOK, out)
}

// position asks the session for the client's position. The query carries
// the browser's answer; the session makes sure it is requested only once.
// Without a session header only this request's own coordinates count.
func (s *Server) position(r *http.Request) *model.Position {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		if p, ok := queryPosition(r); ok {
			return &p
		}
		return nil
	}
	sess := s.sessions.get(id)
	var loc session.Locator
	if p, ok := queryPosition(r); ok {
		loc = session.LocatorFunc(func(context.Context) (model.Position, error) { return p, nil })
	}
	if loc == nil && !sess.Asked() {
		return nil
	}
	p, err := sess.RequestPosition(r.Context(), loc)
	if err != nil {
		return nil
	}
	return &p
}

func queryPosition(r *http.Request) (model.Position, bool) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return model.Position{}, false
	}
	return model.Position{Lat: lat, Lon: lon}, true
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	if id := r.Header.Get(SessionHeader); id != "" {
		s.sessions.remove(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func byDistance(signals []model.OutbreakSignal, origin model.Position) {
	sort.SliceStable(signals, func(i, j int) bool {
		return geo.DistanceKm(origin, signals[i].Position) < geo.DistanceKm(origin, signals[j].Position)
	})
}

// handleCategories lists the canonical vocabulary, or with in_use=true only
// the categories present in a fresh run.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if v, _ := strconv.ParseBool(r.URL.Query().Get("in_use")); !v {
		writeJSON(w, http.StatusOK, category.All())
		return
	}
	res, ok := s.run(r)
	if !ok {
		return
	}
	entries := make([]category.CatalogEntry, 0, len(res.Signals))
	for _, sig := range res.Signals {
		entries = append(entries, category.CatalogEntry{Name: sig.Category})
	}
	writeJSON(w, http.StatusOK, category.Merge(entries))
}

type growthResponse struct {
	RunID  string                `json:"run_id"`
	Window string                `json:"window"`
	Counts map[string]int        `json:"counts"`
	Growth []dedup.DiseaseGrowth `json:"growth"`
}

func (s *Server) handleGrowth(w http.ResponseWriter, r *http.Request) {
	window := 7 * 24 * time.Hour
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "window must be a positive duration, e.g. 168h"})
			return
		}
		window = d
	}
	res, ok := s.run(r)
	if !ok {
		return
	}
	reports := dedup.ReportsFromSignals(res.Signals)
	writeJSON(w, http.StatusOK, growthResponse{
		RunID:  res.RunID,
		Window: window.String(),
		Counts: dedup.CountByDisease(reports),
		Growth: dedup.Growth(reports, s.now(), window),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
