package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/catalog"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/httputil"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/middleware"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/observability"
)

// CatalogService is the domain behind the HTTP handlers
type CatalogService interface {
	ComponentNames(ctx context.Context) ([]catalog.ComponentName, error)
	ComponentCount(ctx context.Context) (int64, error)
	FormattedComponents(ctx context.Context) ([]catalog.CategoryGroup, error)
	CreateComponent(ctx context.Context, in *catalog.ComponentInput, img *catalog.ImageUpload) (int64, *string, error)
	ModifyComponent(ctx context.Context, id int64, in *catalog.ComponentInput, img *catalog.ImageUpload) error
	UpdateResources(ctx context.Context, id int64, patch *catalog.ResourcePatch) (catalog.ResourceUpdate, error)
	RemoveComponent(ctx context.Context, id int64) error
	UploadImage(ctx context.Context, img *catalog.ImageUpload, name string) (string, error)
}

var _ CatalogService = (*catalog.Service)(nil)

// Options configures the middleware stack and optional features of a Server
type Options struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics

	// RateLimiter, when set, limits every request per client IP
	RateLimiter *middleware.RateLimitMiddleware

	AllowedOrigins []string
	RequestTimeout time.Duration
	MaxBodyBytes   int64

	// StaticDir, when set, is served for any path no route matches
	StaticDir string
}

// Server represents our API server
type Server struct {
	service CatalogService
	router  *mux.Router
	opts    Options
	logger  *observability.Logger

	staticMounted bool
}

// NewServer creates a new API server
func NewServer(service CatalogService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		service: service,
		router:  mux.NewRouter(),
		opts:    opts,
		logger:  opts.Logger.WithField("component", "api"),
	}

	s.router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/handshake", s.handshake).Methods("GET")

	// Listings
	s.router.HandleFunc("/allcomponents", s.listComponentNames).Methods("GET")
	s.router.HandleFunc("/count", s.countComponents).Methods("GET")
	s.router.HandleFunc("/components", s.listComponents).Methods("GET")

	// Images
	s.router.HandleFunc("/uploads/images", s.uploadImage).Methods("POST")

	// Component writes
	s.router.HandleFunc("/categories/{category}/components", s.createComponent).Methods("POST")
	s.router.HandleFunc("/categories/{category}/components/{id}", s.updateComponent).Methods("PUT")
	s.router.HandleFunc("/components/resources/{id}", s.updateResources).Methods("PUT")
	s.router.HandleFunc("/components/{id}", s.deleteComponent).Methods("DELETE")
}

// RouteRegistrar is an interface for types that can register routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// RegisterRoutes registers routes from a RouteRegistrar
func (s *Server) RegisterRoutes(registrar RouteRegistrar) {
	registrar.RegisterRoutes(s.router)
}

// Handler returns the router wrapped in the middleware stack. Routes
// registered after this call are still served. The static directory, if
// any, is mounted here so it stays behind every other route.
func (s *Server) Handler() http.Handler {
	if s.opts.StaticDir != "" && !s.staticMounted {
		s.staticMounted = true
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.opts.StaticDir))).Methods("GET", "HEAD")
	}

	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.opts.Logger),
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(s.opts.AllowedOrigins),
	}
	if s.opts.RateLimiter != nil {
		chain = append(chain, s.opts.RateLimiter.Handler)
	}
	if s.opts.RequestTimeout > 0 {
		chain = append(chain, httputil.TimeoutMiddleware(s.opts.RequestTimeout))
	}
	if s.opts.MaxBodyBytes > 0 {
		chain = append(chain, httputil.MaxBytesMiddleware(s.opts.MaxBodyBytes))
	}
	chain = append(chain, httputil.ContentTypeMiddleware)

	return httputil.Chain(chain...)(s.router)
}

// ServeHTTP implements http.Handler without the middleware stack
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger returns the request-scoped logger set by the logging
// middleware, or the server logger
func (s *Server) requestLogger(r *http.Request) *observability.Logger {
	if _, ok := r.Context().Value(observability.LoggerKey).(*observability.Logger); ok {
		return observability.FromContext(r.Context())
	}
	return s.logger
}
