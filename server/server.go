// Package server exposes a world's debug and inspection surface over HTTP.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/loomworks/weft"
	"github.com/loomworks/weft/lifecycle"
)

const (
	// DefaultPort is the debug port the server listens on unless WithPort
	// overrides it.
	DefaultPort = "4040"

	shutdownTimeout = 5 * time.Second
)

type Server struct {
	app   *fiber.App
	w     *weft.World
	port  string
	stage *lifecycle.Manager
}

// New returns an HTTP server with the world's inspection routes mounted. The
// server does not start listening until Serve.
func New(w *weft.World, opts ...Option) (*Server, error) {
	if w == nil {
		return nil, eris.New("server requires a non-nil world")
	}

	app := fiber.New(fiber.Config{
		Network:               "tcp", // Enable server listening on both ipv4 & ipv6 (default: ipv4 only)
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          ErrorHandler,
	})
	app.Use(cors.New())

	s := &Server{
		app:   app,
		w:     w,
		port:  DefaultPort,
		stage: lifecycle.NewManager(lifecycle.Init),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()

	return s, nil
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve serves the application, blocking the calling goroutine until the
// context is canceled or the listener fails. Cancellation triggers a graceful
// shutdown.
func (s *Server) Serve(ctx context.Context) error {
	if !s.stage.CompareAndSwap(lifecycle.Init, lifecycle.Running) {
		return eris.Errorf("server stage is %s, serve requires %s", s.stage.Current(), lifecycle.Init)
	}

	serverErr := make(chan error, 1)
	go func() {
		s.w.Logger().Info().Msgf("Starting HTTP server at port %s", s.port)
		if err := s.app.Listen(":" + s.port); err != nil {
			serverErr <- eris.Wrap(err, "error starting http server")
		}
	}()

	select {
	case err := <-serverErr:
		s.stage.Store(lifecycle.ShutDown)
		return eris.Wrap(err, "server encountered an error")
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the server, letting in-flight requests
// finish within a timeout.
func (s *Server) Shutdown() error {
	if !s.stage.CompareAndSwap(lifecycle.Running, lifecycle.ShuttingDown) {
		return eris.Errorf("server stage is %s, shutdown requires %s", s.stage.Current(), lifecycle.Running)
	}
	s.w.Logger().Info().Msg("Shutting down server")
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return eris.Wrap(err, "error shutting down server")
	}
	s.stage.Store(lifecycle.ShutDown)
	s.w.Logger().Info().Msg("Successfully shut down server")
	return nil
}

func (s *Server) setupRoutes() {
	// Route: /health
	s.app.Get("/health", GetHealth(s.w))

	// Route: /world
	s.app.Get("/world", GetWorld(s.w))

	// Route: /debug/state
	s.app.Get("/debug/state", GetState(s.w))
}
