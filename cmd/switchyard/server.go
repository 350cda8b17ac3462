package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/switchyard/internal/core/service"
	"github.com/artpar/switchyard/internal/shell/api"
	"github.com/artpar/switchyard/internal/shell/docker"
	"github.com/artpar/switchyard/internal/shell/notify"
	"github.com/artpar/switchyard/internal/shell/orchestrator"
	"github.com/artpar/switchyard/internal/shell/probe"
	"github.com/artpar/switchyard/internal/shell/proxy"
	"github.com/artpar/switchyard/internal/shell/remote"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitManifestError   = 2
	ExitDockerError     = 3
	ExitHTTPServerError = 4
)

// =============================================================================
// Server
// =============================================================================

// Server wires the deployment pipeline behind the HTTP API.
type Server struct {
	config     *Config
	httpServer *http.Server
	docker     docker.Client
	runner     remote.Runner
	logger     *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	// Load the services manifest
	data, err := os.ReadFile(cfg.Manifest.Path)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      fmt.Errorf("read services manifest %s: %w", cfg.Manifest.Path, err),
			ExitCode: ExitManifestError,
		}
	}
	manifest, err := service.ParseManifest(data)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitManifestError,
		}
	}

	// Connect to Docker
	d, err := docker.NewDockerClient(cfg.Docker.Host)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDockerError,
		}
	}

	// Verify Docker connection
	if err := d.Ping(); err != nil {
		d.Close()
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDockerError,
		}
	}

	// Proxy host access: local shell or SSH
	var runner remote.Runner
	if cfg.Proxy.Mode == "ssh" {
		key, err := os.ReadFile(cfg.Proxy.SSHKeyPath)
		if err != nil {
			d.Close()
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      fmt.Errorf("read SSH key %s: %w", cfg.Proxy.SSHKeyPath, err),
				ExitCode: ExitConfigError,
			}
		}
		runner, err = remote.NewSSHRunner(remote.SSHConfig{
			Host:           cfg.Proxy.SSHHost,
			Port:           cfg.Proxy.SSHPort,
			User:           cfg.Proxy.SSHUser,
			PrivateKey:     key,
			CommandTimeout: cfg.Proxy.CommandTimeout,
		})
		if err != nil {
			d.Close()
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      err,
				ExitCode: ExitConfigError,
			}
		}
		logger.Info("proxy access via SSH",
			"host", cfg.Proxy.SSHHost,
			"user", cfg.Proxy.SSHUser,
		)
	} else {
		runner = remote.NewLocalRunner()
		logger.Info("proxy access via local shell")
	}

	controller := proxy.NewController(runner, proxy.Config{
		ReloadCommand: cfg.Proxy.ReloadCommand,
	}, logger)

	prober := probe.New(logger)

	var notifier notify.Notifier
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(notify.Config{
			URL:     cfg.Notify.WebhookURL,
			Channel: cfg.Notify.Channel,
		}, logger)
		logger.Info("notifications enabled", "channel", cfg.Notify.Channel)
	} else {
		notifier = notify.NewNoopNotifier()
		logger.Info("notifications disabled")
	}

	orch := orchestrator.New(d, controller, prober, notifier, orchestrator.Config{
		Probe: probe.Config{
			Timeout:     cfg.Probe.Timeout,
			MaxAttempts: cfg.Probe.MaxAttempts,
			Backoff:     cfg.Probe.Backoff,
		},
		SlotHost: cfg.Probe.SlotHost,
	}, logger)

	handler := api.NewHandler(manifest, orch, d, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("services loaded", "count", len(manifest.Services))

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		docker:     d,
		runner:     runner,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server. In-flight deployment requests
// get the shutdown timeout to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := s.runner.Close(); err != nil {
		s.logger.Error("proxy runner close error", "error", err)
	}

	if err := s.docker.Close(); err != nil {
		s.logger.Error("Docker client close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
