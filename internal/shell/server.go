// Package shell serves the client core to a web view layer: a typed JSON
// API over the store and feature services, a change stream, and the
// session-gated view routes.
package shell

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goodaideas/goodaideas/internal/http/response"
	"github.com/goodaideas/goodaideas/internal/metrics"
	"github.com/goodaideas/goodaideas/internal/realtime"
	"github.com/goodaideas/goodaideas/internal/router"
	"github.com/goodaideas/goodaideas/internal/service"
	"github.com/goodaideas/goodaideas/internal/sse"
	"github.com/goodaideas/goodaideas/internal/state"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Services groups the feature services the API exposes. Chat may be nil,
// which disables the chat endpoints.
type Services struct {
	Session     *service.SessionService
	Settings    *service.SettingsService
	Ideas       *service.IdeaService
	Comments    *service.CommentService
	Collections *service.CollectionService
	Leaderboard *service.LeaderboardService
	Challenges  *service.ChallengeService
	Search      *service.SearchService
	Activity    *service.ActivityService
	Chat        *realtime.TeamChat
}

// Options configures a Server.
type Options struct {
	Store          *state.Store
	Services       *Services
	SSE            *sse.Manager
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	// BaseURL is the public origin used in share links.
	BaseURL string
	Logger  *slog.Logger
	Now     func() time.Time
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    *state.Store
	services *Services
	sse      *sse.Manager
	gatherer prometheus.Gatherer
	origins  []string
	baseURL  string
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
	now      func() time.Time
}

// NewServer creates a server with all routes configured.
func NewServer(opts Options) *Server {
	s := &Server{
		store:    opts.Store,
		services: opts.Services,
		sse:      opts.SSE,
		gatherer: opts.Gatherer,
		origins:  opts.AllowedOrigins,
		baseURL:  opts.BaseURL,
		router:   chi.NewRouter(),
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if s.services == nil {
		s.services = &Services{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}

	s.setupMiddleware()

	cfg := huma.DefaultConfig("goodaideas", Version)
	cfg.OpenAPIPath = "/api/openapi"
	cfg.DocsPath = "/api/docs"
	cfg.SchemasPath = "/api/schemas"
	s.api = humachi.New(s.router, cfg)
	RegisterErrorHandler()

	s.registerStateRoutes()
	s.registerAuthRoutes()
	s.registerIdeaRoutes()
	s.registerCommunityRoutes()
	s.registerCollectionRoutes()
	if s.services.Chat != nil {
		s.registerChatRoutes()
	}
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	if len(s.origins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// setupRoutes mounts the non-API surfaces. Anything not matched by the API
// is a view path and goes through the session gate.
func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", metrics.Handler(s.gatherer))

	if s.sse != nil {
		stream := sse.NewHandler(s.sse, func(*http.Request) string {
			return s.store.Snapshot().Session.UserID()
		}, s.logger)
		s.router.Get("/api/v1/stream", stream.ServeHTTP)
	}

	s.router.With(router.Guard(s.authenticated)).Get("/*", s.handleView)
}

func (s *Server) authenticated(*http.Request) bool {
	return s.store.Snapshot().Authenticated()
}

// handleView answers a gated view path with the routing decision; the view
// layer renders it.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	d, ok := router.FromContext(r.Context())
	if !ok {
		response.NotFound(w, "Page not found", s.logger)
		return
	}
	response.Success(w, d, s.logger)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
