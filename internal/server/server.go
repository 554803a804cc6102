package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/san-kum/gravsim/internal/dynamo"
)

type Config struct {
	Bind string
	Port int

	// StepRate is the pace of the background stepping loop in steps per
	// second. Zero leaves the simulation paused; rate.Inf steps freely.
	StepRate rate.Limit

	// MaxSteps stops the loop after that many steps. Zero means no limit.
	MaxSteps int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Bind:     "127.0.0.1",
		Port:     8080,
		StepRate: 10,
	}
}

// Server exposes a live simulation over read-only HTTP accessors. Each
// step holds the write lock; handlers read under the read lock and copy
// what they return.
type Server struct {
	cfg     Config
	router  *chi.Mux
	log     *slog.Logger
	started time.Time

	mu      sync.RWMutex
	sim     *dynamo.Simulator
	running bool
	lastErr error
}

func New(sim *dynamo.Simulator, cfg Config) *Server {
	s := &Server{
		cfg:     cfg,
		sim:     sim,
		log:     logger(cfg).With("component", "server"),
		started: time.Now(),
	}
	s.router = s.routes()
	return s
}

func logger(cfg Config) *slog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return slog.Default()
}

// Router returns the underlying router, useful for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Bind, fmt.Sprint(s.cfg.Port))
}

// Step advances the simulation by one step under the write lock.
func (s *Server) Step() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.sim.Step()
	if err != nil {
		s.lastErr = err
	}
	return err
}

// RunSteps steps the simulation at cfg.StepRate until ctx is done, a step
// fails or cfg.MaxSteps steps have been taken.
func (s *Server) RunSteps(ctx context.Context) error {
	if s.cfg.StepRate <= 0 {
		<-ctx.Done()
		return nil
	}

	limiter := rate.NewLimiter(s.cfg.StepRate, 1)
	s.setRunning(true)
	defer s.setRunning(false)

	for taken := 0; s.cfg.MaxSteps == 0 || taken < s.cfg.MaxSteps; taken++ {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) setRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}

// Start serves HTTP and runs the stepping loop until ctx is done, then
// shuts the listener down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr(), Handler: s.router}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.RunSteps(ctx); err != nil {
			s.log.Error("stepping loop stopped", "err", err)
		}
	}()
	go func() {
		defer wg.Done()
		<-ctx.Done()
		ctxTo, cancelTo := context.WithTimeout(context.Background(), time.Second)
		defer cancelTo()
		if err := srv.Shutdown(ctxTo); err != nil {
			s.log.Warn("shutdown", "err", err)
		}
	}()

	s.log.Info("listening", "addr", s.Addr(), "step_rate", float64(s.cfg.StepRate))
	err := srv.ListenAndServe()
	cancel()
	wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/status", s.status)
	r.Get("/api/conserved", s.conserved)
	r.Get("/api/bodies", s.listBodies)
	r.Get("/api/bodies/{id}", s.getBody)
	r.Get("/api/accelerations/{id}", s.getAcceleration)
	return r
}
