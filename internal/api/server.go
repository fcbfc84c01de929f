package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/snarg/speech-analytics/internal/config"
	"github.com/snarg/speech-analytics/internal/events"
	"github.com/snarg/speech-analytics/internal/metrics"
)

// ServerOptions carries everything the HTTP layer is wired to. Only Config
// and Analyzer are required.
type ServerOptions struct {
	Config      *config.Config
	Analyzer    Analyzer
	Transcriber Transcriber
	Publisher   events.Publisher
	Events      EventSource
	Reports     ReportStore
	MQTT        ConnStatus
	Live        LiveStatus
	Backends    []string
	OpenAPISpec []byte
	Version     string
	StartTime   time.Time
	Log         zerolog.Logger
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(opts ServerOptions) *Server {
	cfg := opts.Config
	log := opts.Log

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      NewRouter(opts),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

// NewRouter builds the full route tree.
func NewRouter(opts ServerOptions) http.Handler {
	cfg := opts.Config
	log := opts.Log

	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(CORSWithOrigins(cfg.CORSOrigins))
	if cfg.MetricsEnabled {
		r.Use(metrics.InstrumentHandler)
		r.Handle("/metrics", promhttp.Handler())
	}

	health := NewHealthHandler(opts.Transcriber, opts.MQTT, opts.Live, opts.Backends, opts.Version, opts.StartTime)
	analyze := NewAnalyzeHandler(opts.Analyzer, opts.Publisher, cfg.MaxTextBytes, log)
	transcribe := NewTranscribeHandler(opts.Transcriber, opts.Publisher, cfg.MaxUploadBytes(), log)
	stream := NewEventsHandler(opts.Events)
	reports := NewReportsHandler(opts.Reports)

	// One limiter shared by both mounts so clients get a single budget.
	auth := BearerAuth(cfg.AuthToken)
	limit := RateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	protected := func(r chi.Router) {
		r.Use(auth)
		r.Use(limit)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			// Health and OpenAPI document: no auth
			r.Get("/health", health.ServeHTTP)
			if opts.OpenAPISpec != nil {
				r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set("Content-Type", "application/yaml")
					w.Write(opts.OpenAPISpec)
				})
			}

			r.Group(func(r chi.Router) {
				protected(r)
				analyze.Routes(r)
				transcribe.Routes(r)
				stream.Routes(r)
				reports.Routes(r)
			})
		})

		// Unversioned transcription routes used by the browser recorder.
		r.Group(func(r chi.Router) {
			protected(r)
			transcribe.Routes(r)
		})
	})

	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
