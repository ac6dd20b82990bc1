// Command ktune-server exposes a ResultStore over HTTP: a tuning session
// can be kicked off for a demo kernel and its results polled, grounded on
// mantle's own echo bring-up in cmd/mantle/serve.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/accel-tune/ktune"
	"github.com/accel-tune/ktune/internal/demo"
)

type sessionStatus string

const (
	statusRunning sessionStatus = "running"
	statusDone    sessionStatus = "done"
	statusFailed  sessionStatus = "failed"
)

type session struct {
	ID         string        `json:"id"`
	KernelName string        `json:"kernel_name"`
	Status     sessionStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
}

// server holds one ResultStore shared across every tuning session started
// through /tune, plus the in-flight/completed session ledger.
type server struct {
	mu       sync.Mutex
	sessions map[string]*session
	store    *ktune.ResultStore
	log      *slog.Logger
}

func newServer(log *slog.Logger) *server {
	return &server{
		sessions: make(map[string]*session),
		store:    ktune.NewResultStore(),
		log:      log,
	}
}

type tuneRequest struct {
	Kernel               string  `json:"kernel"`
	Size                 int     `json:"size"`
	Seed                 int64   `json:"seed"`
	MaxLaunchesPerSecond float64 `json:"max_launches_per_second"`
}

func (s *server) handleTune(c *echo.Context) error {
	req := tuneRequest{Kernel: "vectoradd", Size: 1 << 20, Seed: 1}
	if c.Request().ContentLength > 0 {
		dec := json.NewDecoder(c.Request().Body)
		if err := dec.Decode(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
	}
	build, ok := demo.Catalogue[req.Kernel]
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown kernel %q", req.Kernel)})
	}

	sess := &session{
		ID:         uuid.NewString(),
		KernelName: req.Kernel,
		Status:     statusRunning,
		StartedAt:  time.Now(),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	go s.runSession(sess, build, req)

	return c.JSON(http.StatusAccepted, sess)
}

func (s *server) runSession(sess *session, build func(int) *demo.Kernel, req tuneRequest) {
	s.log.Info("tuning session started", "session", sess.ID, "kernel", req.Kernel)
	k := build(req.Size)
	runner := ktune.NewTuningRunner(k.Engine, k.Store, k.Registry, s.store)
	runner.SetSeed(req.Seed)
	limiterCfg := ktune.TunerConfig{MaxLaunchesPerSecond: req.MaxLaunchesPerSecond}
	runner.SetLaunchLimiter(limiterCfg.LaunchLimiter())

	_, err := runner.TuneKernel(k.Id)

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.FinishedAt = time.Now()
	if err != nil {
		sess.Status = statusFailed
		sess.Error = err.Error()
		s.log.Error("tuning session failed", "session", sess.ID, "error", err)
		return
	}
	sess.Status = statusDone
	s.log.Info("tuning session finished", "session", sess.ID)
}

func (s *server) handleSession(c *echo.Context) error {
	id := c.Param("id")
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *server) handleResults(c *echo.Context) error {
	kernel := c.QueryParam("kernel")
	if kernel == "" {
		return c.JSON(http.StatusOK, s.store.All())
	}
	return c.JSON(http.StatusOK, s.store.Results(kernel))
}

func (s *server) handleBest(c *echo.Context) error {
	kernel := c.QueryParam("kernel")
	if kernel == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "kernel query parameter is required"})
	}
	best, ok := s.store.Best(kernel)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no valid result recorded for kernel"})
	}
	return c.JSON(http.StatusOK, best)
}

func (s *server) register(e *echo.Echo) {
	e.POST("/tune", s.handleTune)
	e.GET("/sessions/:id", s.handleSession)
	e.GET("/results", s.handleResults)
	e.GET("/results/best", s.handleBest)
}

func main() {
	var (
		addr        string
		readTimeout time.Duration
	)
	flag.StringVar(&addr, "addr", "127.0.0.1:8088", "listen address")
	flag.DurationVar(&readTimeout, "read-timeout", 30*time.Second, "read timeout")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	srv := newServer(log)
	e := echo.New()
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	srv.register(e)

	log.Info("starting ktune-server", "address", addr)
	sc := echo.StartConfig{
		Address: addr,
		BeforeServeFunc: func(httpSrv *http.Server) error {
			httpSrv.ReadHeaderTimeout = readTimeout
			return nil
		},
	}
	if err := sc.Start(context.Background(), e); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
