// Package web exposes the session orchestrator over HTTP: JSON command
// endpoints under /api/session and a websocket event stream at /api/events.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Iron-Ham/researchdesk/internal/event"
	"github.com/Iron-Ham/researchdesk/internal/logging"
	"github.com/Iron-Ham/researchdesk/internal/orchestrator/phase"
	"github.com/Iron-Ham/researchdesk/internal/research"
)

const shutdownTimeout = 5 * time.Second

// Desk is the orchestrator surface the API drives.
type Desk interface {
	Session() (research.Session, bool)
	History() phase.History
	DefaultConstraints() research.Constraints
	CreateSession(ctx context.Context, topic string, c research.Constraints) (research.Session, error)
	ConfirmBriefing(ctx context.Context, decision research.BriefingDecision) (research.Session, error)
	DecideCompute(ctx context.Context, decision research.ComputeDecision) (research.Session, error)
	SelectNextStep(ctx context.Context, optionID string) (research.Session, error)
	StopSession(ctx context.Context) (research.Session, error)
	Reset()
}

// Server serves the API for one Desk.
type Server struct {
	desk   Desk
	hub    *Hub
	logger *logging.Logger
	mux    *http.ServeMux
}

// NewServer builds the routes. Events published on bus are streamed to
// websocket clients.
func NewServer(desk Desk, bus *event.Bus, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NopLogger()
	}
	s := &Server{
		desk:   desk,
		hub:    NewHub(bus, logger),
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/session", s.handleGetSession)
	s.mux.HandleFunc("POST /api/session", s.handleCreateSession)
	s.mux.HandleFunc("DELETE /api/session", s.handleReset)
	s.mux.HandleFunc("GET /api/session/history", s.handleHistory)
	s.mux.HandleFunc("POST /api/session/briefing", s.handleBriefing)
	s.mux.HandleFunc("POST /api/session/compute", s.handleCompute)
	s.mux.HandleFunc("POST /api/session/next", s.handleNextStep)
	s.mux.HandleFunc("POST /api/session/stop", s.handleStop)
	s.mux.Handle("GET /api/events", s.hub)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub returns the event stream hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
// ready, if non-nil, receives the bound address once listening.
func (s *Server) Run(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if ready != nil {
		ready(ln.Addr())
	}
	s.logger.Info("web server listening", "addr", ln.Addr().String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	s.logger.Info("web server stopped")
	return err
}
