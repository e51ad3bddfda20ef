// Package api provides the gateway's HTTP surface.
//
// Endpoints:
//   - GET /                       redirect to /docs
//   - GET /docs                   API reference page
//   - GET /chat/{username}        normalized chat object
//   - GET /messages/{username}    page of normalized messages
//   - GET /media/{token}          media stream behind an opaque token
//   - GET /healthz                backend session liveness probe
//
// Each handler is stateless: it borrows the shared backend handle, maps
// backend outcomes to HTTP statuses at this boundary only, and never
// retries. Middleware order: recovery → request id → logging → host filter.
package api

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"net/url"
	"time"

	"github.com/koval01/telegram-gateway/internal/log"
	"github.com/koval01/telegram-gateway/internal/normalize"
	"github.com/koval01/telegram-gateway/internal/telegram"
	"github.com/koval01/telegram-gateway/internal/token"
)

// Server timeout configuration.
const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads (Slowloris protection).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is generous because media relays can be large.
	WriteTimeout = 5 * time.Minute

	// IdleTimeout applies to keep-alive connections.
	IdleTimeout = 2 * time.Minute
)

// Backend is the chat-platform capability the endpoints consume. The
// concrete implementation lives in internal/telegram; the interface is
// defined here, by its consumer.
type Backend interface {
	GetChat(ctx context.Context, handle string) (*telegram.Chat, error)
	History(ctx context.Context, handle string, page telegram.HistoryPage) iter.Seq2[telegram.Message, error]
	StreamMedia(ctx context.Context, fileID string) (io.ReadCloser, error)
	Me(ctx context.Context) error
}

// ServerConfig contains dependencies for creating the gateway server.
type ServerConfig struct {
	Logger       log.Logger   // optional; nil selects a no-op logger
	Backend      Backend      // required
	Codec        *token.Codec // required
	AllowedHosts []string     // empty or "*" allows any Host header
	AppDomain    string       // fallback host for generated media URLs
}

// Server is the gateway HTTP server.
type Server struct {
	mux          *http.ServeMux
	logger       log.Logger
	allowedHosts []string
}

// NewServer creates a server with all routes registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Backend == nil {
		return nil, errors.New("backend is required")
	}
	if cfg.Codec == nil {
		return nil, errors.New("token codec is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	norm := normalize.New(cfg.Codec)

	ch := &chatHandler{
		backend:   cfg.Backend,
		norm:      norm,
		appDomain: cfg.AppDomain,
		logger:    logger.With("component", "chat"),
	}
	mh := &mediaHandler{
		backend: cfg.Backend,
		codec:   cfg.Codec,
		logger:  logger.With("component", "media"),
	}
	hh := &healthHandler{
		backend: cfg.Backend,
		logger:  logger.With("component", "health"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/{username}", ch.getChat)
	mux.HandleFunc("GET /messages/{username}", ch.getMessages)
	mux.HandleFunc("GET /media/{token}", mh.getMedia)
	mux.HandleFunc("GET /healthz", hh.healthz)
	mux.HandleFunc("GET /docs", docs)
	mux.HandleFunc("GET /{$}", redirectDocs)

	return &Server{mux: mux, logger: logger, allowedHosts: cfg.AllowedHosts}, nil
}

// Handler returns the server's handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		requestIDMiddleware(),
		loggingMiddleware(s.logger),
		hostFilterMiddleware(s.allowedHosts),
	)
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// listener fails, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// requestBase derives the scheme and host that generated media URLs should
// carry from the inbound request itself, so URLs are self-referential and
// portable across environments. fallback covers requests with no Host.
func requestBase(r *http.Request, fallback string) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	host := r.Host
	if host == "" {
		host = fallback
	}
	return &url.URL{Scheme: scheme, Host: host}
}
