package debugserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	derrors "github.com/arcadiusmc/delphi/internal/errors"
	"github.com/arcadiusmc/delphi/pkg/debugdump"
	"github.com/arcadiusmc/delphi/pkg/render"
	"github.com/arcadiusmc/delphi/pkg/surface"
)

// Config configures the debug server.
type Config struct {
	// Addr is the listen address used by Run.
	Addr string

	// AllowedOrigins enables CORS for these origins. Empty disables CORS.
	AllowedOrigins []string

	// Gatherer serves /metrics. Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Sink receives dumps. Without one the dump endpoint answers 503.
	Sink debugdump.Sink

	// ReadHeaderTimeout bounds reading request headers. Default: 5s.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds the graceful shutdown. Default: 5s.
	ShutdownTimeout time.Duration

	Logger *slog.Logger
}

// Server is the debug HTTP server.
type Server struct {
	config   Config
	surfaces *surface.Manager
	handler  http.Handler
	logger   *slog.Logger
}

// New creates a Server exposing surfaces.
func New(surfaces *surface.Manager, config Config) *Server {
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if config.ReadHeaderTimeout == 0 {
		config.ReadHeaderTimeout = 5 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default().With("component", "debugserver")
	}

	s := &Server{
		config:   config,
		surfaces: surfaces,
		logger:   logger,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/surfaces", func(r chi.Router) {
		r.Get("/", s.listSurfaces)
		r.Get("/{id}", s.getSurface)
		r.Post("/{id}/dump", s.dumpSurface)
	})

	if len(s.config.AllowedOrigins) == 0 {
		return r
	}
	c := cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Run listens on config.Addr and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return derrors.New("D042").WithDetail("listen " + s.config.Addr).Wrap(err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("debug server starting", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return derrors.New("D042").Wrap(err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
		s.logger.Info("debug server stopped")
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.WrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

type surfaceList struct {
	Surfaces []surface.Info `json:"surfaces"`
	Stats    surface.Stats  `json:"stats"`
}

func (s *Server) listSurfaces(w http.ResponseWriter, r *http.Request) {
	list := s.surfaces.List()
	if list == nil {
		list = []surface.Info{}
	}
	writeJSON(w, http.StatusOK, surfaceList{Surfaces: list, Stats: s.surfaces.Stats()})
}

func (s *Server) getSurface(w http.ResponseWriter, r *http.Request) {
	sf, ok := s.lookup(w, r)
	if !ok {
		return
	}
	info, tree := sf.Snapshot()

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, info)
		return
	}

	out, err := render.NewRenderer(render.RendererConfig{
		Pretty: true,
		Header: "surface " + info.ID + " state " + info.State.String(),
	}).RenderToString(tree)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", debugdump.ContentType+"; charset=utf-8")
	w.Write([]byte(out))
}

func (s *Server) dumpSurface(w http.ResponseWriter, r *http.Request) {
	if s.config.Sink == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no dump sink configured"))
		return
	}
	sf, ok := s.lookup(w, r)
	if !ok {
		return
	}
	info, tree := sf.Snapshot()

	loc, err := debugdump.Save(r.Context(), s.config.Sink, debugdump.Dump{
		Surface: info.ID,
		State:   info.State.String(),
		Tree:    tree,
	})
	if err != nil {
		s.logger.Warn("dump failed", "surface", info.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("dump written", "surface", info.ID, "location", loc)
	writeJSON(w, http.StatusCreated, map[string]string{"location": loc})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*surface.Surface, bool) {
	id := chi.URLParam(r, "id")
	sf, ok := s.surfaces.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown surface "+id))
	}
	return sf, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError answers with {"error": ...}; coded errors add their code.
func writeError(w http.ResponseWriter, status int, err error) {
	body := map[string]string{"error": err.Error()}
	if code := derrors.Code(err); code != "" {
		body["code"] = code
	}
	writeJSON(w, status, body)
}
