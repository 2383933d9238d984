package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/joeblew999/geo311/internal/api"
	"github.com/joeblew999/geo311/internal/api/events"
	"github.com/joeblew999/geo311/internal/db"
	"github.com/joeblew999/geo311/internal/humastar"
	"github.com/joeblew999/geo311/internal/metrics"
	"github.com/joeblew999/geo311/internal/service"
	"github.com/joeblew999/geo311/internal/wfs"
)

// Version is reported by /health and the OpenAPI document.
const Version = "1.0.0"

// Config holds the server configuration.
type Config struct {
	Host     string
	Port     int
	Endpoint string // WFS endpoint
	TypeName string // WFS feature type
	PageSize int

	// Loader replaces the WFS paginator, mainly for tests.
	Loader service.Loader
	// NoDB skips the in-memory analytics database.
	NoDB bool
}

// Server is the geo311 HTTP server.
type Server struct {
	config  Config
	router  *chi.Mux
	humaAPI huma.API
	links   *humastar.Links
	cases   *service.CaseService
	store   *db.Store
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates a new geo311 server. Cases are not loaded until Load is called.
func New(cfg Config, log zerolog.Logger) *Server {
	m := metrics.New()

	loader := cfg.Loader
	if loader == nil {
		client := wfs.NewClient(wfs.Query{Endpoint: cfg.Endpoint, TypeName: cfg.TypeName}, nil, log)
		loader = wfs.NewPaginator(client, cfg.PageSize, log, m)
	}

	var store *db.Store
	var sink service.Sink
	if !cfg.NoDB {
		st, err := db.Open(context.Background())
		if err != nil {
			log.Warn().Err(err).Msg("analytics database unavailable")
		} else {
			store, sink = st, st
		}
	}

	s := &Server{
		config:  cfg,
		router:  chi.NewRouter(),
		links:   humastar.NewLinks(),
		cases:   service.NewCaseService(loader, sink, service.NewEventBus(), log),
		store:   store,
		metrics: m,
		log:     log,
	}

	humaConfig := huma.DefaultConfig("geo311 API", Version)
	humaConfig.Info.Description = "Municipal 311 service requests paginated from a WFS layer, summarized and filtered for a map."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, s.links.Transformer())

	s.middleware()
	s.humaAPI = humachi.New(s.router, humaConfig)
	s.routes()
	return s
}

func (s *Server) middleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	// No middleware.Timeout: it would cut the SSE stream.
	s.router.Use(s.accessLog)
}

func (s *Server) routes() {
	api.RegisterRoutes(s.humaAPI, s.cases, Version)

	source := api.Source{Endpoint: s.config.Endpoint, TypeName: s.config.TypeName, PageSize: s.config.PageSize}
	api.NewInfoHandler(Version, source, s.store != nil, s.cases).RegisterRoutes(s.humaAPI)

	var conn *sql.DB
	if s.store != nil {
		conn = s.store.DB()
	}
	api.NewDBHandler(conn).RegisterRoutes(s.humaAPI)

	events.NewEventHandler(s.cases).RegisterRoutes(s.humaAPI)

	s.links.Build(s.humaAPI, events.Tag)

	s.router.Handle("/metrics", s.metrics.Handler())
	s.router.Get("/", s.handleRoot)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Load fetches the full dataset. See service.CaseService.Load.
func (s *Server) Load(ctx context.Context) error {
	return s.cases.Load(ctx)
}

// Cases returns the case service.
func (s *Server) Cases() *service.CaseService {
	return s.cases
}

// OpenAPI returns the generated API description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close closes server resources.
func (s *Server) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), time.Since(start))

		s.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	for _, link := range s.links.Root() {
		w.Header().Add("Link", link)
	}
	status := s.cases.Status()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"service": "geo311",
		"status":  "running",
		"loaded":  status.Loaded,
		"cases":   status.Cases,
	})
}
