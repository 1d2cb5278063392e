package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"certwatch/internal/clock"
	"certwatch/internal/config"
	"certwatch/internal/logging"
	"certwatch/internal/notify"
	"certwatch/internal/probe"
	"certwatch/internal/state"
)

// Overrides carries CLI values that take precedence over the config file.
// Params: optional daemon flag and interval seconds.
// Returns: sparse override set applied after config load.
type Overrides struct {
	Daemon      *bool
	IntervalSec *int
}

// Service composes runtime dependencies and the process lifecycle.
// Params: validated config and shared runtime components.
// Returns: runnable monitoring service.
type Service struct {
	cfg      config.Config
	logger   *slog.Logger
	closeLog func()
	store    state.Store
	runner   *Runner
	clock    clock.Clock
}

// NewService builds the service instance from a config source.
// Params: config source, clock implementation, and CLI overrides.
// Returns: initialized service or setup error.
func NewService(source config.ConfigSource, clk clock.Clock, over Overrides) (*Service, error) {
	cfg, err := config.LoadSnapshot(source)
	if err != nil {
		return nil, err
	}
	if over.Daemon != nil {
		cfg.Service.Daemon = *over.Daemon
	}
	if over.IntervalSec != nil && *over.IntervalSec > 0 {
		cfg.Service.IntervalSec = *over.IntervalSec
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		closeLog()
		return nil, err
	}

	dispatcher := notify.NewDispatcher(time.Duration(cfg.Notify.TimeoutSec)*time.Second, logger)
	channels := notify.ResolveChannels(cfg, logger)
	prober := probe.NewProber(probe.DefaultTimeout)
	runner := NewRunner(cfg, logger, store, prober, dispatcher, channels, clk)

	return &Service{
		cfg:      cfg,
		logger:   logger,
		closeLog: closeLog,
		store:    store,
		runner:   runner,
		clock:    clk,
	}, nil
}

// Run executes a single cycle or the daemon loop per configuration.
// Params: root context.
// Returns: terminal run error (single mode) or nil after graceful daemon stop.
func (s *Service) Run(ctx context.Context) error {
	defer s.close()

	if !s.cfg.Service.Daemon {
		s.logger.Info("starting single check run", "service", s.cfg.Service.Name)
		return s.runner.RunCycle(ctx)
	}

	interval := time.Duration(s.cfg.Service.IntervalSec) * time.Second
	s.logger.Info("starting daemon mode",
		"service", s.cfg.Service.Name, "interval_sec", s.cfg.Service.IntervalSec)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("daemon stopping", "reason", ctx.Err().Error())
			return nil
		case <-sigChan:
			s.logger.Info("daemon stopping on signal")
			return nil
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

// cycle runs one check cycle, containing any error so the loop continues.
// Params: cycle context.
// Returns: nothing; cycle errors are logged.
func (s *Service) cycle(ctx context.Context) {
	if err := s.runner.RunCycle(ctx); err != nil {
		s.logger.Error("check cycle failed", "error", err.Error())
	}
}

// close releases runtime resources.
// Params: none.
// Returns: nothing; close failures are logged.
func (s *Service) close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("store close failed", "error", err.Error())
	}
	if s.closeLog != nil {
		s.closeLog()
	}
}

// buildStore creates the state backend selected by configuration.
// Params: config snapshot and logger.
// Returns: selected store backend or setup error.
func buildStore(cfg config.Config, logger *slog.Logger) (state.Store, error) {
	switch cfg.State.Backend {
	case config.StateBackendMemory:
		return state.NewMemoryStore(), nil
	case config.StateBackendNATS:
		return state.NewNATSStore(cfg.State.NATS, logger)
	default:
		return state.NewFileStore(cfg.State.Path, logger), nil
	}
}
