package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/icheck/internal/domain"
	"github.com/hamed0406/icheck/internal/httpapi/middleware"
	"github.com/hamed0406/icheck/internal/scheduler"
)

// Source is the read side of the application the API serves from.
type Source interface {
	Events(ctx context.Context) (domain.EventLog, error)
	Outages(ctx context.Context) ([]domain.Outage, error)
	Job(ctx context.Context) (scheduler.Job, error)
}

type Options struct {
	AllowedOrigins []string
	APIKeys        []string
	RPM            int
	Burst          int
}

type Server struct {
	Logger *zap.Logger
	Source Source
	Opts   Options
}

func NewServer(l *zap.Logger, src Source, opts Options) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Source: src, Opts: opts}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	if len(s.Opts.AllowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.Opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "X-API-Key", "Content-Type"},
			MaxAge:         300,
		}))
	}
	r.Use(middleware.RateLimit(s.Opts.RPM, s.Opts.Burst))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireKey(s.Opts.APIKeys))
		r.Get("/events", s.handleEvents)
		r.Get("/events/last", s.handleLastEvent)
		r.Get("/outages", s.handleOutages)
		r.Get("/job", s.handleJob)
	})

	return r
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	l, err := s.Source.Events(r.Context())
	if err != nil {
		s.fail(w, "events", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleLastEvent(w http.ResponseWriter, r *http.Request) {
	l, err := s.Source.Events(r.Context())
	if err != nil {
		s.fail(w, "last_event", err)
		return
	}
	writeJSON(w, http.StatusOK, l.LastEvent)
}

func (s *Server) handleOutages(w http.ResponseWriter, r *http.Request) {
	out, err := s.Source.Outages(r.Context())
	if err != nil {
		s.fail(w, "outages", err)
		return
	}
	if out == nil {
		out = []domain.Outage{}
	}
	writeJSON(w, http.StatusOK, out)
}

type jobPayload struct {
	Installed bool           `json:"installed"`
	Job       *scheduler.Job `json:"job,omitempty"`
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.Source.Job(r.Context())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusOK, jobPayload{})
	case err != nil:
		s.fail(w, "job", err)
	default:
		writeJSON(w, http.StatusOK, jobPayload{Installed: true, Job: &j})
	}
}

// fail maps the domain error kinds onto status codes. Check
// ErrNotInitialized before ErrNotFound: it wraps it.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotInitialized):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrSchedulerUnavailable):
		code = http.StatusServiceUnavailable
	}
	kind := domain.KindOf(err)
	if kind == "" {
		kind = "Internal"
	}
	s.Logger.Warn("api_error", zap.String("op", op), zap.String("kind", kind), zap.Error(err))
	writeJSON(w, code, map[string]string{"error": kind})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
