package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/scythe504/mafia-backend/internal/config"
	"github.com/scythe504/mafia-backend/internal/database"
	"github.com/scythe504/mafia-backend/internal/game"
	"github.com/scythe504/mafia-backend/internal/logger"
	"github.com/scythe504/mafia-backend/internal/metrics"
	"github.com/scythe504/mafia-backend/internal/sessions"
	ws "github.com/scythe504/mafia-backend/internal/websocket"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.Config
	logger *zap.Logger

	registry  *game.Registry
	hub       *ws.Hub
	db        database.Service
	directory sessions.Directory
	promReg   *prometheus.Registry
	cron      *cron.Cron
}

// NewServer wires the registry to its transport and stores. Postgres and
// Redis are only dialed when configured.
func NewServer(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		logger:  log,
		promReg: prometheus.NewRegistry(),
	}
	s.promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.DatabaseURL != "" {
		db, err := database.New(ctx, cfg.DatabaseURL, logger.Named(log, "database"))
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		s.db = db
	}

	if cfg.RedisAddr != "" {
		dir, err := sessions.NewRedisDirectory(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL, logger.Named(log, "sessions"))
		if err != nil {
			s.closeStores()
			return nil, fmt.Errorf("session directory: %w", err)
		}
		s.directory = dir
	} else {
		s.directory = sessions.NewMemoryDirectory(cfg.SessionTTL)
	}

	s.hub = ws.NewHub(logger.Named(log, "hub"))

	opts := game.Options{
		Durations:    cfg.Phases,
		Transport:    s.hub,
		Directory:    s.directory,
		Metrics:      metrics.New(s.promReg),
		Logger:       logger.Named(log, "game"),
		AbandonedTTL: cfg.AbandonedRoomTTL,
		EndedTTL:     cfg.EndedRoomTTL,
	}
	if s.db != nil {
		opts.Archive = s.db
	}
	s.registry = game.NewRegistry(opts)

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(cfg.SweepSchedule, s.sweep); err != nil {
		s.closeStores()
		return nil, fmt.Errorf("sweep schedule %q: %w", cfg.SweepSchedule, err)
	}

	return s, nil
}

func (s *Server) Registry() *game.Registry {
	return s.registry
}

// HTTPServer builds the listener config around the routes.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// StartSweeper begins the periodic eviction of ended and abandoned rooms.
func (s *Server) StartSweeper() {
	s.cron.Start()
	s.logger.Info("Room sweeper started", zap.String("schedule", s.cfg.SweepSchedule))
}

func (s *Server) sweep() {
	evicted := s.registry.Sweep(time.Now())
	if len(evicted) > 0 {
		s.logger.Info("[sweep] evicted rooms", zap.Strings("rooms", evicted))
	}
}

// Shutdown stops the sweeper, drops every socket, closes every room, waits
// for pending archive and directory writes and closes the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		s.logger.Warn("[Shutdown] sweeper did not stop in time")
	}

	s.hub.Close()
	s.registry.Close()

	done := make(chan struct{})
	go func() {
		s.registry.Wait()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("waiting for archive writes: %w", ctx.Err())
	}

	return errors.Join(err, s.closeStores())
}

func (s *Server) closeStores() error {
	var errs []error
	if s.directory != nil {
		errs = append(errs, s.directory.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}
