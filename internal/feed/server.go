// Package feed serves the live toast list to external renderers over HTTP
// and websockets, and accepts toast requests and user intents from them.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/keyo-app/pulse-toast/internal/logging"
	"github.com/keyo-app/pulse-toast/internal/scope"
	"github.com/keyo-app/pulse-toast/internal/toast"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxBodyBytes    = 64 << 10
	shutdownTimeout = 5 * time.Second
)

// Option configures a Server.
type Option func(*Server)

// WithButtonHandler sets the handler wired to buttons of toasts created
// through POST /toasts.
func WithButtonHandler(h toast.ButtonHandler) Option {
	return func(s *Server) {
		s.onButton = h
	}
}

// WithGatherer exposes the gatherer at GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the server logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server routes feed requests to a scope's manager.
type Server struct {
	scope    *scope.Scope
	hub      *Hub
	onButton toast.ButtonHandler
	gatherer prometheus.Gatherer
	logger   logging.Logger
	stop     func()
	router   chi.Router
}

// NewServer creates a server over an open scope. Close releases the scope
// watch and disconnects websocket clients.
func NewServer(sc *scope.Scope, opts ...Option) *Server {
	if sc == nil {
		panic("feed: scope cannot be nil")
	}
	s := &Server{scope: sc, logger: logging.GetGlobal()}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(sc.Toasts, s.logger)
	s.stop = sc.Watch(func([]toast.Toast) { s.hub.Refresh() })
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ws", s.hub.ServeWS)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/toasts", func(r chi.Router) {
		r.Get("/", s.list)
		r.Post("/", s.create)
		r.Delete("/", s.dismissAll)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.dismiss)
			r.Post("/action", s.intent((*toast.Manager).Activate))
			r.Post("/cancel", s.intent((*toast.Manager).CancelToast))
			r.Post("/close", s.intent((*toast.Manager).Close))
		})
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close stops pushing updates and disconnects websocket clients.
func (s *Server) Close() {
	s.stop()
	s.hub.Close()
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("feed listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("feed server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("feed serve: %w", err)
	case <-ctx.Done():
	}

	// Hijacked websocket connections are not tracked by Shutdown.
	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("feed shutdown: %w", err)
	}
	<-errCh
	return nil
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toast.NewViews(s.scope.Toasts()))
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req toast.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", toast.ErrInvalidRequest, err))
		return
	}
	id, err := req.Submit(s.scope.Manager(), s.onButton)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.logger.Debug("toast created via feed", "id", id, "kind", req.Kind)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) dismissAll(w http.ResponseWriter, r *http.Request) {
	s.scope.Manager().DismissAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dismiss(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.scope.Manager().Remove(id) {
		writeError(w, http.StatusNotFound, toast.ErrToastNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) intent(fn func(*toast.Manager, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(s.scope.Manager(), chi.URLParam(r, "id")); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, toast.ErrToastNotFound):
		return http.StatusNotFound
	case errors.Is(err, toast.ErrNotDismissible), errors.Is(err, toast.ErrNoAction), errors.Is(err, toast.ErrNoCancel):
		return http.StatusConflict
	case errors.Is(err, toast.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
